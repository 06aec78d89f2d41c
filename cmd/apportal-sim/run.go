package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/apportal/internal/config"
	"github.com/muurk/apportal/internal/console"
	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/simulator"
)

// Run command flags
var (
	logLevel string
	logFile  string
	headless bool
	tick     time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulated device",
	Long: `Boot the simulated device described by the profile.

With a terminal attached the interactive console shows the provisioning
state, the status LED and the simulated radio. Logs then go to a file so
they do not tear the display. With --headless the device runs until
interrupted and logs to stdout.`,
	Example: `  # Interactive console with the default profile
  apportal-sim run

  # Headless with debug logging
  apportal-sim run --headless --log-level debug

  # Another profile, ticking every 10ms
  apportal-sim run --profile ./garage.yaml --tick 10ms`,
	RunE: runSimulator,
}

func init() {
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $APPORTAL_LOG_LEVEL")
	runCmd.Flags().StringVar(&logFile, "log-file", "", "Log file for the console (default: apportal-sim.log next to the profile)")
	runCmd.Flags().BoolVar(&headless, "headless", false, "Run without the interactive console")
	runCmd.Flags().DurationVar(&tick, "tick", simulator.DefaultTickInterval, "Loop interval")
}

func runSimulator(cmd *cobra.Command, args []string) error {
	profile, err := config.Load(profilePath)
	if err != nil {
		return err
	}

	if headless {
		if err := logging.Initialize(logLevel); err != nil {
			return err
		}
	} else {
		path := logFile
		if path == "" {
			path = filepath.Join(filepath.Dir(profile.Storage.RegionPath), "apportal-sim.log")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		if err := logging.InitializeToFile(logLevel, path); err != nil {
			return err
		}
	}
	defer logging.Sync()

	dev, err := simulator.New(profile, simulator.Options{TickInterval: tick})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if headless {
		logging.Info("Starting simulator",
			zap.String("thing_name", profile.Device.ThingName),
			zap.String("portal", profile.Portal.Listen),
		)
		return dev.Run(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- dev.Run(ctx) }()

	_, uiErr := tea.NewProgram(console.NewModel(dev), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	cancel()
	runErr := <-done

	if errors.Is(uiErr, tea.ErrProgramKilled) {
		uiErr = nil
	}
	return errors.Join(uiErr, runErr)
}
