package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentflow"
	"github.com/hupe1980/agentflow/logging"
	"github.com/hupe1980/agentflow/node"
)

// runCmd compiles a graph document, starts it and feeds --input pairs
// into its input nodes.
var runCmd = &cobra.Command{
	Use:   "run <graph.yaml>",
	Short: "Execute a graph document",
	Long:  `Compiles the document, starts the graph so config nodes emit, injects --input key=value pairs into the input nodes and prints every output node's final value as JSON.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		inputs, _ := cmd.Flags().GetStringArray("input")
		verbose, _ := cmd.Flags().GetBool("verbose")

		if err := runGraph(args[0], inputs, verbose); err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArray("input", nil, "Input value as key=value, injected into every input node")
}

func runGraph(path string, pairs []string, verbose bool) error {
	logger := logging.Logger(logging.NoOpLogger{})
	if verbose {
		logger = logging.NewSlogLogger(logging.LogLevelDebug, "text", false).WithComponent("graph")
	}

	g, err := agentflow.CompileFile(path, func(o *agentflow.Options) {
		o.Logger = logger
	})
	if err != nil {
		return err
	}

	values, err := parsePairs(pairs)
	if err != nil {
		return err
	}

	g.Start()

	for _, id := range g.Nodes() {
		n, _ := g.Node(id)
		if in, ok := n.(*node.Input); ok && len(values) > 0 {
			in.Inject(values)
		}
	}

	for _, id := range g.Nodes() {
		n, _ := g.Node(id)

		out, ok := n.(*node.Output)
		if !ok {
			continue
		}

		encoded, err := json.MarshalIndent(map[string]any{id: out.Last()}, "", "  ")
		if err != nil {
			return err
		}

		fmt.Println(string(encoded))
	}

	return nil
}

func parsePairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	values := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --input %q, expected key=value", pair)
		}

		values[key] = value
	}

	return values, nil
}
