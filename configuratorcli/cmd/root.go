// Package cmd implements the commands of configuratorcli, the command line
// client of the MongoDB configurator REST API
package cmd

import (
	"fmt"

	"github.com/marathon-tools/mongodb-configurator/pkg/logging"

	"github.com/spf13/cobra"
)

// RootCmd represents main command
var RootCmd = &cobra.Command{
	Use:   "configuratorcli",
	Short: "MongoDB configurator command line utility",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := logging.Init("", "stdout", flagLogLevel, false)
		if err != nil {
			fmt.Println("Error initializing log file ", err)
		}
		initRESTClient(flagEndpoint, flagCacert, flagInsecure)
	},
}

var (
	flagJSONOutput bool
	flagEndpoint   string
	flagCacert     string
	flagInsecure   bool
	flagLogLevel   string
	flagTimeout    int
	verbose        bool
)

const (
	defaultLogLevel = "INFO"
	defaultEndpoint = "http://127.0.0.1:3000"
	defaultTimeout  = 30
)

func init() {
	// Global flags, applicable for all sub commands
	RootCmd.PersistentFlags().BoolVarP(&flagJSONOutput, "json", "", false, "JSON Output")
	RootCmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", defaultEndpoint, "configurator endpoint")
	RootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", defaultTimeout, "request timeout in seconds")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Log options
	RootCmd.PersistentFlags().StringVarP(&flagLogLevel, logging.LevelFlag, "", defaultLogLevel, logging.LevelHelp)

	// SSL/TLS options
	RootCmd.PersistentFlags().StringVarP(&flagCacert, "cacert", "", "", "Path to CA certificate")
	RootCmd.PersistentFlags().BoolVarP(&flagInsecure, "insecure", "", false,
		"Accepts any certificate presented by the server and any host name in that certificate.")
}
