package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentflow"
)

var validateCmd = &cobra.Command{
	Use:   "validate <graph.yaml>",
	Short: "Check a graph document for consistency",
	Long:  `Parses and compiles the document, reporting unknown node types, duplicate ids and dangling edge references.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		g, err := agentflow.CompileFile(args[0])
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Graph is valid: %d node(s)\n", len(g.Nodes()))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
