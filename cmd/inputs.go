package cmd

import (
	"context"

	"golang.org/x/sync/errgroup"

	sim "github.com/accel-pim/pimsim/sim"
	"github.com/accel-pim/pimsim/sim/graph"
	"github.com/accel-pim/pimsim/sim/workload"
)

// runInputPaths names the files a run reads. Only commandList is required.
type runInputPaths struct {
	commandList string
	graph       string
	descriptors string
}

type runInputs struct {
	commands    []sim.Command
	graph       *graph.GraphSpec
	descriptors []string
}

// loadRunInputs reads the command list, graph and descriptor stream in
// parallel. The first failure cancels the rest.
func loadRunInputs(ctx context.Context, paths runInputPaths) (*runInputs, error) {
	in := &runInputs{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cmds, err := workload.LoadCommandList(paths.commandList)
		in.commands = cmds
		return err
	})
	if paths.graph != "" {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			spec, err := graph.LoadGraphFile(paths.graph)
			in.graph = spec
			return err
		})
	}
	if paths.descriptors != "" {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			lines, err := workload.LoadDescriptors(paths.descriptors)
			in.descriptors = lines
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return in, nil
}
