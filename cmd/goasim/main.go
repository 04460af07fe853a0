// Command goasim runs the Goa 1590 harbour simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/goa1590/internal/config"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "goasim",
		Short:        "Goa 1590 trading world simulation",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML tuning file (defaults apply when omitted)")

	root.AddCommand(
		newRunCmd(&configPath),
		newSimulateCmd(&configPath),
		newReportCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and installs the default logger at its level.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)
	return cfg, nil
}
