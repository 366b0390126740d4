// Command packsim runs the pet pack social simulation.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/avaley/petpack/internal/api"
	"github.com/avaley/petpack/internal/config"
	"github.com/avaley/petpack/internal/entropy"
	"github.com/avaley/petpack/internal/pets"
	"github.com/avaley/petpack/internal/sim"
	"github.com/avaley/petpack/internal/social"
	"github.com/avaley/petpack/internal/statestore"
)

func init() {
	godotenv.Load()
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("petpack — a social world for virtual pets")

	configPath := os.Getenv("PETPACK_CONFIG")
	if configPath == "" {
		configPath = "petpack.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("config load failed", "path", configPath, "error", err)
		os.Exit(1)
	}
	slog.Info("config loaded",
		"path", configPath,
		"seed", cfg.Seed,
		"backend", cfg.Store.Backend,
		"tick_interval", cfg.TickEvery(),
	)

	ctx := context.Background()

	// ── Store ─────────────────────────────────────────────────────────
	store, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// ── Load or Spawn the Pack ────────────────────────────────────────
	rng := entropy.NewSeeded(cfg.Seed)
	pack := social.NewPack(rng)

	var petList []*pets.Pet
	var epoch time.Time
	var startTick uint64

	has, err := store.HasWorld(ctx)
	if err != nil {
		slog.Error("failed to check for saved world", "error", err)
		os.Exit(1)
	}

	if has {
		slog.Info("found saved world, loading...")
		ws, err := store.LoadWorld(ctx)
		if err != nil {
			slog.Error("failed to load world", "error", err)
			os.Exit(1)
		}

		petList = ws.Pets
		startTick = uint64(ws.Tick)
		epoch = ws.Epoch
		if epoch.IsZero() {
			// Saves from before the epoch column carry none; recover one
			// from the save time so ages stay plausible.
			epoch = ws.SavedAt.Add(-time.Duration(ws.Tick) * time.Minute)
		}
		pack.Restore(ws.Social)

		slog.Info("world restored",
			"pets", len(petList),
			"tick", startTick,
			"sim_time", sim.SimTime(startTick),
		)
	} else {
		slog.Info("no saved world, spawning a fresh pack", "size", cfg.Pack.Size)
		epoch = time.Now().UTC().Truncate(time.Minute)

		spawner := pets.NewSpawner(cfg.Seed)
		petList = spawner.SpawnPack(cfg.Pack.Size, epoch)
		for _, p := range petList {
			if err := pack.AddPet(p.ID, p.Name, p.Traits, p.AgeDays(epoch), p.Size, epoch); err != nil {
				slog.Error("failed to add pet", "pet", p.Name, "error", err)
				os.Exit(1)
			}
			slog.Info("pet spawned",
				"name", p.Name,
				"species", p.Species,
				"size", pets.SizeName(p.Size),
				"age_days", p.AgeDays(epoch),
				"tricks", len(p.Tricks),
			)
		}
	}

	runner := sim.NewRunner(petList, pack, sim.NewOwnerAttention(cfg.Seed), rng, epoch)
	runner.SetTick(startTick)

	// ── Clock ─────────────────────────────────────────────────────────
	clock := sim.NewClock()
	clock.Interval = cfg.TickEvery()
	clock.SetTick(startTick)
	clock.OnTick = runner.TickMinute
	clock.OnHour = runner.TickHour
	clock.OnDay = runner.TickDay

	saveWorld := func(trigger string) {
		if err := store.SaveWorld(ctx, runner.WorldState(time.Now().UTC())); err != nil {
			slog.Error("save failed", "trigger", trigger, "error", err)
		}
	}

	// Save on fresh generation only (loaded worlds are already saved).
	if !has {
		saveWorld("initial")
	}

	// ── Autosave ──────────────────────────────────────────────────────
	if cfg.AutosaveEnabled() {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Sim.Autosave, func() { saveWorld("autosave") }); err != nil {
			slog.Error("invalid autosave schedule", "spec", cfg.Sim.Autosave, "error", err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
		slog.Info("autosave scheduled", "spec", cfg.Sim.Autosave)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn("no admin key set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Runner:   runner,
		Clock:    clock,
		Store:    store,
		Port:     cfg.API.Port,
		AdminKey: cfg.API.AdminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		clock.Stop()
	}()

	fmt.Printf("\nThe pack is awake: %d pets under one roof.\n", len(petList))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", startTick, sim.SimTime(startTick))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	clock.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	saveWorld("shutdown")

	fmt.Println("Simulation stopped. World state saved.")
}

// openStore builds the configured persistence backend. The sqlite path's
// directory is created on demand so a fresh checkout runs without setup.
func openStore(ctx context.Context, cfg *config.Config) (statestore.Store, error) {
	switch cfg.Store.Backend {
	case "redis":
		return statestore.OpenRedis(ctx, cfg.Store.Redis.Addr, cfg.Store.Redis.Password, cfg.Store.Redis.DB)
	default:
		if dir := filepath.Dir(cfg.Store.Path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, err
			}
		}
		return statestore.OpenSQLite(cfg.Store.Path)
	}
}
