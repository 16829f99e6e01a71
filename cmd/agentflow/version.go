package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentflow"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of agentflow",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("agentflow version %s\n", agentflow.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
