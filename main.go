package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pthm-cable/golem/api"
	"github.com/pthm-cable/golem/config"
	"github.com/pthm-cable/golem/population"
	"github.com/pthm-cable/golem/rival"
	"github.com/pthm-cable/golem/session"
	"github.com/pthm-cable/golem/store"
	"github.com/pthm-cable/golem/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	port := flag.Int("port", 0, "API port (0 = use config)")
	storeDriver := flag.String("store", "", "Storage driver: sqlite or memory (empty = use config)")
	dbPath := flag.String("db", "", "SQLite database path (empty = use config)")
	rivalURL := flag.String("rival-url", "", "Rival service URL (empty = use config)")
	steps := flag.Int("steps", 0, "Headless mode: advance N steps and exit (0 = serve the API)")
	output := flag.String("output", "", "Headless mode: CSV file for step telemetry")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *storeDriver != "" {
		cfg.Storage.Driver = *storeDriver
	}
	if *dbPath != "" {
		cfg.Storage.Path = *dbPath
	}
	if *rivalURL != "" {
		cfg.Rival.URL = *rivalURL
	}

	st, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	model, err := population.FromConfig(cfg)
	if err != nil {
		slog.Error("failed to build population model", "error", err)
		os.Exit(1)
	}

	sess, err := session.New(session.Options{
		Model:     model,
		Resolver:  rival.New(cfg),
		Store:     st,
		RivalName: cfg.Simulation.Rival,
	})
	if err != nil {
		slog.Error("failed to create session", "error", err)
		os.Exit(1)
	}

	if *steps > 0 {
		if err := runHeadless(sess, *steps, *output, cfg.Telemetry.LogSteps); err != nil {
			slog.Error("headless run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	server := api.New(cfg, sess, st)
	if err := server.Run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// openStore picks the storage driver from config.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return store.NewMemoryStore(), nil
	case "", "sqlite":
		return store.NewSQLiteStore(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// runHeadless advances the session N steps without the HTTP server,
// optionally writing CSV telemetry. Used for smoke runs and calibration
// data generation.
func runHeadless(sess *session.Session, steps int, output string, logSteps bool) error {
	writer, err := telemetry.NewWriter(output)
	if err != nil {
		return err
	}
	defer writer.Close()

	slog.Info("starting headless run", "steps", steps, "output", output)

	ctx := context.Background()
	for i := 0; i < steps; i++ {
		rec, err := sess.Step(ctx)
		if err != nil {
			return err
		}
		if logSteps {
			slog.Info("step", "tick", rec.Tick, "populations", rec.Populations, "rival_source", rec.RivalSource)
		}
		if err := writer.WriteStep(rec); err != nil {
			return err
		}
	}

	slog.Info("headless run complete", "tick", sess.State().Tick)
	return nil
}
