package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agentflow",
	Short: "Agentflow runs declarative node graphs with embedded tool-calling agents",
	Long:  `Agentflow compiles YAML graph documents into wired dataflow pipelines and executes them, including HTTP fetch nodes and LLM agent nodes.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}
