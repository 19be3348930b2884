package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	helpHealthCmd      = "check the liveness of the configurator"
	helpReleaseLockCmd = "delete the coordination markers of the application"
	helpUnsubscribeCmd = "remove the scheduler event subscription (primary only)"
	helpEndpointsCmd   = "list the configurator REST endpoints"
	helpVersionCmd     = "show the configurator version"
)

func init() {
	RootCmd.AddCommand(healthCmd)
	RootCmd.AddCommand(releaseLockCmd)
	RootCmd.AddCommand(unsubscribeCmd)
	RootCmd.AddCommand(endpointsCmd)
	RootCmd.AddCommand(versionCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: helpHealthCmd,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		healthy, err := client.Health()
		if err != nil {
			failure("Health check failed", err, 1)
		}
		if !healthy {
			fmt.Println("Unhealthy: the configurator is terminating")
			os.Exit(2)
		}
		fmt.Println("OK")
	},
}

var releaseLockCmd = &cobra.Command{
	Use:   "release-lock",
	Short: helpReleaseLockCmd,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := client.ReleaseLock()
		if err != nil {
			if verbose {
				log.WithError(err).Error("release lock failed")
			}
			failure("Release lock failed", err, 1)
		}
		if flagJSONOutput {
			printJSON(resp)
			return
		}
		fmt.Println(resp.Message)
	},
}

var unsubscribeCmd = &cobra.Command{
	Use:   "unsubscribe",
	Short: helpUnsubscribeCmd,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		resp, err := client.DeleteEventSubscription()
		if err != nil {
			if verbose {
				log.WithError(err).Error("unsubscribe failed")
			}
			failure("Removing the event subscription failed", err, 1)
		}
		fmt.Println(resp.Message)
	},
}

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: helpEndpointsCmd,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		endpoints, err := client.Endpoints()
		if err != nil {
			failure("Failed to list endpoints", err, 1)
		}
		if flagJSONOutput {
			printJSON(endpoints)
			return
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Method", "Path", "Description"})
		for _, e := range endpoints {
			table.Append([]string{e.Name, e.Method, e.Path, e.Description})
		}
		table.Render()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: helpVersionCmd,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		v, err := client.Version()
		if err != nil {
			failure("Failed to get version", err, 1)
		}
		fmt.Printf("configurator version: %s\n", v.Version)
		if v.GitSHA != "" {
			fmt.Printf("git SHA: %s\n", v.GitSHA)
		}
	},
}
