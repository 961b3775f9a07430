package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/spilist/tokscale/internal/config"
	"github.com/spilist/tokscale/internal/model"
	"github.com/spilist/tokscale/internal/syncclient"
)

var submitFlags struct {
	dryRun bool
}

var submitCmd = &cobra.Command{
	Use:     "submit",
	Aliases: []string{"sync"},
	Short:   "Submit a usage snapshot to the configured server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSubmitConfig()
		if err != nil {
			return err
		}
		return submitOnce(cmd.Context(), cfg, submitFlags.dryRun)
	},
}

// loadSubmitConfig loads the config and ensures a device ID exists,
// persisting one on first submit.
func loadSubmitConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cfg.Server == "" || cfg.APIKey == "" {
		return nil, errors.New("not configured, run 'tokscale config --server <url> --api-key <key>' first")
	}
	if cfg.DeviceID == "" {
		if err := config.Save(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func submitOnce(ctx context.Context, cfg *config.Config, dryRun bool) error {
	loadArgs, err := argsFromFlags(cfg)
	if err != nil {
		return err
	}

	bridge, err := workerHandle.Bridge()
	if err != nil {
		return err
	}
	var graph model.Graph
	if err := bridge.Call(ctx, "buildGraph", loadArgs, &graph); err != nil {
		return err
	}

	if len(graph.Contributions) == 0 {
		fmt.Println("No usage data to submit.")
		return nil
	}

	fmt.Printf("Snapshot covers %d days (%s to %s).\n",
		len(graph.Contributions), graph.Meta.DateRangeStart, graph.Meta.DateRangeEnd)

	if dryRun {
		fmt.Println("Dry run - no data sent.")
		return nil
	}

	merged, err := syncclient.NewClient(cfg).Submit(ctx, graph, loadArgs.Sources)
	if err != nil {
		return err
	}
	fmt.Printf("Submit complete. %d days merged.\n", merged)
	return nil
}

// submitService implements service.Interface for periodic submission
type submitService struct {
	interval time.Duration
	stop     chan struct{}
	logger   service.Logger
}

func (s *submitService) Start(svc service.Service) error {
	s.stop = make(chan struct{})
	go s.run()
	return nil
}

func (s *submitService) Stop(svc service.Service) error {
	close(s.stop)
	return nil
}

func (s *submitService) run() {
	cfg, err := loadSubmitConfig()
	if err != nil {
		if s.logger != nil {
			s.logger.Errorf("Not configured: %v", err)
		}
		return
	}

	// Submit immediately on start
	s.doSubmit(cfg)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.doSubmit(cfg)
		case <-s.stop:
			return
		}
	}
}

func (s *submitService) doSubmit(cfg *config.Config) {
	if err := submitOnce(context.Background(), cfg, false); err != nil {
		if s.logger != nil {
			s.logger.Errorf("Submit failed: %v", err)
		}
		return
	}
	if s.logger != nil {
		s.logger.Info("Submit succeeded")
	}
}

var serviceFlags struct {
	interval time.Duration
}

var serviceCmd = &cobra.Command{
	Use:   "service [install|uninstall|start|stop|status|run]",
	Short: "Manage the background submit service",
	Long:  "Install or control a background service that submits usage snapshots on an interval.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := "run"
		if len(args) > 0 {
			action = args[0]
		}

		svcConfig := &service.Config{
			Name:        "tokscale-submit",
			DisplayName: "tokscale Submit Service",
			Description: "Periodically submits AI tool usage snapshots to the configured server",
			Arguments:   []string{"service", "run", fmt.Sprintf("--interval=%s", serviceFlags.interval)},
		}

		svc := &submitService{interval: serviceFlags.interval}
		s, err := service.New(svc, svcConfig)
		if err != nil {
			return fmt.Errorf("create service: %w", err)
		}

		switch action {
		case "install":
			if _, err := loadSubmitConfig(); err != nil {
				return err
			}
			if err := s.Install(); err != nil {
				return fmt.Errorf("install service: %w", err)
			}
			if err := s.Start(); err != nil {
				return fmt.Errorf("service installed but failed to start: %w", err)
			}
			fmt.Println("Service installed and started.")
			fmt.Printf("Submit interval: %s\n", serviceFlags.interval)
			return nil

		case "start":
			if err := s.Start(); err != nil {
				return fmt.Errorf("start service: %w", err)
			}
			fmt.Println("Service started.")
			return nil

		case "stop":
			if err := s.Stop(); err != nil {
				return fmt.Errorf("stop service: %w", err)
			}
			fmt.Println("Service stopped.")
			return nil

		case "uninstall":
			s.Stop() // ignore error
			if err := s.Uninstall(); err != nil {
				return fmt.Errorf("uninstall service: %w", err)
			}
			fmt.Println("Service uninstalled.")
			return nil

		case "status":
			status, err := s.Status()
			if err != nil {
				fmt.Printf("Service status: not installed or error (%v)\n", err)
				return nil
			}
			switch status {
			case service.StatusRunning:
				fmt.Println("Service status: running")
			case service.StatusStopped:
				fmt.Println("Service status: stopped")
			default:
				fmt.Println("Service status: unknown")
			}
			return nil

		case "run":
			logger, err := s.Logger(nil)
			if err == nil {
				svc.logger = logger
			}
			return s.Run()

		default:
			return fmt.Errorf("unknown service action %q", action)
		}
	},
}

func init() {
	submitCmd.Flags().BoolVar(&submitFlags.dryRun, "dry-run", false, "build the snapshot without sending it")
	serviceCmd.Flags().DurationVar(&serviceFlags.interval, "interval", time.Hour, "submit interval for service mode (e.g., 1h, 30m)")
	rootCmd.AddCommand(submitCmd, serviceCmd)
}
