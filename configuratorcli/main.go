package main

import (
	"fmt"
	"os"

	"github.com/marathon-tools/mongodb-configurator/configuratorcli/cmd"
)

func main() {
	cmd.RootCmd.SilenceErrors = true

	if err := cmd.RootCmd.Execute(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
