package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/marathon-tools/mongodb-configurator/pkg/api"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	helpConfigCmd = "show the current replica set config"
	helpStatusCmd = "show the replica set member status"
)

func init() {
	RootCmd.AddCommand(configCmd)
	RootCmd.AddCommand(statusCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: helpConfigCmd,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := client.Config()
		if err != nil {
			if verbose {
				log.WithError(err).Error("failed to get replica set config")
			}
			failure("Failed to get replica set config", err, 1)
		}
		if flagJSONOutput {
			printJSON(cfg)
			return
		}
		fmt.Printf("Replica set: %s\n", cfg.ID)
		fmt.Printf("Version: %d\n", cfg.Version)
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "Host"})
		table.AppendBulk(memberRows(cfg))
		table.Render()
	},
}

func memberRows(cfg api.ReplicaSetConfig) [][]string {
	rows := make([][]string, 0, len(cfg.Members))
	for _, m := range cfg.Members {
		rows = append(rows, []string{strconv.Itoa(m.ID), m.Host})
	}
	return rows
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: helpStatusCmd,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		status, err := client.Status()
		if err != nil {
			if verbose {
				log.WithError(err).Error("failed to get replica set status")
			}
			failure("Failed to get replica set status", err, 1)
		}
		if flagJSONOutput {
			printJSON(status)
			return
		}
		fmt.Printf("Replica set: %v\n", status["set"])
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "State", "Health"})
		table.AppendBulk(statusRows(status))
		table.Render()
	},
}

// statusRows extracts the member rows of a replSetGetStatus document
func statusRows(status map[string]interface{}) [][]string {
	members, _ := status["members"].([]interface{})
	rows := make([][]string, 0, len(members))
	for _, m := range members {
		member, ok := m.(map[string]interface{})
		if !ok {
			continue
		}
		rows = append(rows, []string{
			fmt.Sprint(member["name"]),
			fmt.Sprint(member["stateStr"]),
			fmt.Sprint(member["health"]),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows
}
