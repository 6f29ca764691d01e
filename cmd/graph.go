package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/accel-pim/pimsim/sim/graph"
)

// graphCmd builds a graph file and prints its layer table
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Build a network graph and print its layers",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		spec, err := graph.LoadGraphFile(args[0])
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		g, err := graph.Build(spec)
		if err != nil {
			logrus.Fatalf("building %s: %v", args[0], err)
		}
		if err := g.WriteTable(os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}
