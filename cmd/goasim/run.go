package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/goa1590/internal/api"
	"github.com/talgya/goa1590/internal/config"
	"github.com/talgya/goa1590/internal/engine"
	"github.com/talgya/goa1590/internal/persistence"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the simulation in real time with the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	slog.Info("Goa 1590 harbour simulation", "seed", cfg.Seed, "speed", cfg.Speed)

	// ── Database ──────────────────────────────────────────────────────
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.NewSimulation(engine.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	loaded, err := db.LoadWorldState(sim)
	if err != nil {
		return fmt.Errorf("load saved state: %w", err)
	}
	if loaded {
		slog.Info("saved world restored", "stamp", sim.Clock.Stamp(), "location", sim.World.Current().ID)
	} else {
		slog.Info("no saved state found, starting a new game")
		if err := db.SaveWorldState(sim); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	// ── Journal ───────────────────────────────────────────────────────
	if cfg.JournalDir != "" {
		journal := persistence.NewJournal(cfg.JournalDir)
		journal.SkipMinutes = true
		journal.Attach(sim.Bus, sim.Clock)
		defer journal.Close()
		slog.Info("event journal enabled", "dir", cfg.JournalDir)
	}

	// Auto-save every AutosaveDays sim-days.
	if cfg.AutosaveDays > 0 {
		sim.OnDay = func(day int) {
			if day%cfg.AutosaveDays != 0 {
				return
			}
			if err := db.SaveWorldState(sim); err != nil {
				slog.Error("daily save failed", "day", day, "error", err)
			}
		}
	}

	eng := engine.NewEngine(cfg.FrameInterval())
	eng.SetSpeed(cfg.Speed)
	eng.OnFrame = sim.Update

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.APIPort > 0 {
		if cfg.AdminKey == "" {
			slog.Warn("GOA_ADMIN_KEY not set, POST endpoints disabled")
		}
		hub := api.NewHub()
		hub.Attach(sim.Bus)
		go hub.Run(ctx)

		srv := &api.Server{
			Sim:      sim,
			Eng:      eng,
			Hub:      hub,
			Port:     cfg.APIPort,
			AdminKey: cfg.AdminKey,
			Save:     func() error { return db.SaveWorldState(sim) },
		}
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("HTTP server error", "error", err)
			}
		}()
	}

	eng.Run(ctx)

	// Final save under the engine lock; the API may still be draining.
	var saveErr error
	eng.Do(func() { saveErr = db.SaveWorldState(sim) })
	if saveErr != nil {
		return fmt.Errorf("final save: %w", saveErr)
	}
	slog.Info("shutdown complete", "stamp", sim.Clock.Stamp())
	return nil
}
