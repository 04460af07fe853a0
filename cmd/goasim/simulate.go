package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/goa1590/internal/engine"
)

func newSimulateCmd(configPath *string) *cobra.Command {
	var (
		days int
		step time.Duration
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a headless simulation for a number of game days and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				return fmt.Errorf("days must be positive")
			}
			if step <= 0 {
				return fmt.Errorf("step must be positive")
			}
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			sim, err := engine.NewSimulation(engine.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}

			eng := engine.NewEngine(cfg.FrameInterval())
			eng.OnFrame = sim.Update

			started := time.Now()
			target := sim.Clock.Day() + days
			for sim.Clock.Day() < target {
				eng.Step(step)
			}
			slog.Info("headless run finished", "days", days, "frames", eng.Frames, "wall", time.Since(started).Round(time.Millisecond))

			printSummary(cmd.OutOrStdout(), sim)
			return nil
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 30, "game days to simulate")
	cmd.Flags().DurationVar(&step, "step", time.Second, "virtual time per frame")
	return cmd
}
