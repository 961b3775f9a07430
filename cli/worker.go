package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/spilist/tokscale/internal/aggregator"
	"github.com/spilist/tokscale/internal/model"
	"github.com/spilist/tokscale/internal/worker"
)

// workerCmd runs one aggregation request read from stdin and exits.
// The graph and submit commands spawn it via the worker bridge.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := worker.NewServer()
		srv.Handle("byModel", func(ctx context.Context, raw json.RawMessage) (any, error) {
			events, err := workerLoad(ctx, raw)
			if err != nil {
				return nil, err
			}
			return aggregator.ByModel(events), nil
		})
		srv.Handle("byMonth", func(ctx context.Context, raw json.RawMessage) (any, error) {
			events, err := workerLoad(ctx, raw)
			if err != nil {
				return nil, err
			}
			return aggregator.ByMonth(events), nil
		})
		srv.Handle("buildGraph", func(ctx context.Context, raw json.RawMessage) (any, error) {
			events, err := workerLoad(ctx, raw)
			if err != nil {
				return nil, err
			}
			return aggregator.BuildGraph(events, version), nil
		})

		os.Exit(srv.Run(cmd.Context(), os.Stdin, os.Stdout, os.Stderr))
		return nil
	},
}

func workerLoad(ctx context.Context, raw json.RawMessage) ([]model.UsageEvent, error) {
	var args loadArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, err
		}
	}
	if len(args.Sources) == 0 {
		args.Sources = model.AllSources()
	}

	events, _, err := loadPricedEvents(ctx, args)
	return events, err
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
