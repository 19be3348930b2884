package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/marathon-tools/mongodb-configurator/pkg/restclient"
)

var (
	client                           *restclient.Client
	errFailedToConnectToConfigurator = `Failed to connect to the configurator. Please check if
- the configurator is running (%s) and reachable from this node.
- the endpoint specified in the command is valid
`
)

func initRESTClient(endpoint, cacert string, insecure bool) {
	opts := []restclient.ClientOption{
		restclient.WithBaseURL(endpoint),
		restclient.WithTimeOut(time.Duration(flagTimeout) * time.Second),
	}
	if strings.HasPrefix(endpoint, "https://") {
		opts = append(opts, restclient.WithTLSConfig(&restclient.TLSOptions{
			CaCertFile:         cacert,
			InsecureSkipVerify: insecure,
		}))
	}
	if verbose {
		opts = append(opts, restclient.WithDebug())
	}

	var err error
	client, err = restclient.NewClientWithOpts(opts...)
	if err != nil {
		failure("failed to setup client", err, 1)
	}
}

func isConnectionRefusedErr(err error) bool {
	return strings.Contains(err.Error(), "connection refused")
}

func isNoSuchHostErr(err error) bool {
	return strings.Contains(err.Error(), "no such host")
}

func isNoRouteToHostErr(err error) bool {
	return strings.Contains(err.Error(), "no route to host")
}

func handleConnectFailure(msg, endpoint string, err error, errcode int) {
	if err == nil {
		return
	}

	if isConnectionRefusedErr(err) || isNoSuchHostErr(err) || isNoRouteToHostErr(err) {
		os.Stderr.WriteString(msg + "\n\n")
		os.Stderr.WriteString(fmt.Sprintf(errFailedToConnectToConfigurator, endpoint))
		os.Exit(errcode)
	}
}

func failure(msg string, err error, errcode int) {

	handleConnectFailure(msg, flagEndpoint, err, errcode)

	w := os.Stderr

	w.WriteString(msg + "\n")

	if client == nil && err != nil {
		fmt.Fprintln(w, err)
		os.Exit(errcode)
	}

	resp := client.LastErrorResponse()

	if resp == nil && err != nil {
		fmt.Fprintln(w, err)
		os.Exit(errcode)
	}

	if err != nil {
		w.WriteString("\nResponse headers:\n")
		for k, v := range resp.Header {
			if strings.HasSuffix(k, "-Id") || strings.HasSuffix(k, "-ID") {
				w.WriteString(fmt.Sprintf("%s: %s\n", k, v[0]))
			}
		}

		w.WriteString("\nResponse body:\n")
		w.WriteString(fmt.Sprintf("%s\n", err.Error()))
	}

	os.Exit(errcode)
}

// printJSON prints v as indented JSON, used by --json
func printJSON(v interface{}) {
	out, err := restclient.RawJSON(v)
	if err != nil {
		failure("failed to encode response", err, 1)
	}
	fmt.Println(out)
}
