package main

import (
	"github.com/spf13/cobra"

	"github.com/spilist/tokscale/cli/internal/output"
	"github.com/spilist/tokscale/internal/aggregator"
	"github.com/spilist/tokscale/internal/config"
	"github.com/spilist/tokscale/internal/model"
	"github.com/spilist/tokscale/internal/worker"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show usage broken down by model",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := loadEvents(cmd.Context())
		if err != nil {
			return err
		}

		report := aggregator.ByModel(events)
		if flags.jsonOut {
			output.PrintJSON(report)
			return nil
		}
		output.PrintModelReport(report, output.TableOptions{ForceCompact: flags.compact})
		return nil
	},
}

var monthlyCmd = &cobra.Command{
	Use:   "monthly",
	Short: "Show usage broken down by calendar month",
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := loadEvents(cmd.Context())
		if err != nil {
			return err
		}

		report := aggregator.ByMonth(events)
		if flags.jsonOut {
			output.PrintJSON(report)
			return nil
		}
		output.PrintMonthlyReport(report, output.TableOptions{ForceCompact: flags.compact})
		return nil
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the daily contribution graph",
	Long:  "Build the per-day usage graph. Parsing and aggregation run in a worker subprocess so a corrupt session file cannot take the main process down.",
	RunE: func(cmd *cobra.Command, args []string) error {
		graph, err := buildGraphViaWorker(cmd)
		if err != nil {
			return err
		}

		if flags.jsonOut {
			output.PrintJSON(graph)
			return nil
		}
		output.PrintGraph(graph, output.TableOptions{ForceCompact: flags.compact})
		return nil
	},
}

var workerHandle = worker.NewSelfHandle()

func buildGraphViaWorker(cmd *cobra.Command) (model.Graph, error) {
	cfg, err := config.Load()
	if err != nil {
		return model.Graph{}, err
	}
	loadArgs, err := argsFromFlags(cfg)
	if err != nil {
		return model.Graph{}, err
	}

	bridge, err := workerHandle.Bridge()
	if err != nil {
		return model.Graph{}, err
	}

	var graph model.Graph
	if err := bridge.Call(cmd.Context(), "buildGraph", loadArgs, &graph); err != nil {
		return model.Graph{}, err
	}
	return graph, nil
}

func init() {
	rootCmd.AddCommand(modelsCmd, monthlyCmd, graphCmd)
}
