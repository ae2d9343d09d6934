package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/talgya/mini-mind/internal/api"
	"github.com/talgya/mini-mind/internal/arena"
	"github.com/talgya/mini-mind/internal/config"
	"github.com/talgya/mini-mind/internal/engine"
	"github.com/talgya/mini-mind/internal/persistence"
	"github.com/talgya/mini-mind/internal/telemetry"
	"github.com/talgya/mini-mind/internal/weather"
)

const (
	reportEvery     = 200 // frames between summary log lines
	weatherInterval = 10 * time.Minute
)

var runFlags struct {
	frames    uint64
	noAPI     bool
	noJournal bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the arena simulation",
	RunE:  runArena,
}

func init() {
	runCmd.Flags().Uint64Var(&runFlags.frames, "frames", 0, "stop after this many frames (0 = run until interrupted)")
	runCmd.Flags().BoolVar(&runFlags.noAPI, "no-api", false, "do not start the inspection API")
	runCmd.Flags().BoolVar(&runFlags.noJournal, "no-journal", false, "do not journal decisions")
}

// instance is a wired arena ready to run.
type instance struct {
	cfg     config.Config
	sim     *arena.Simulation
	loop    *engine.Loop
	journal *persistence.Journal
	reader  *sdkmetric.ManualReader
}

// build wires the engine, environment, simulation, journal, and frame loop
// from configuration.
func build(cfg config.Config, withJournal bool) (*instance, error) {
	vetoes, err := cfg.Transitions()
	if err != nil {
		return nil, err
	}

	metrics, reader, err := telemetry.Local()
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	eng := engine.New(
		engine.WithUpdateFrequency(cfg.Engine.UpdateFrequency),
		engine.WithWorkers(cfg.Engine.Workers),
		engine.WithMetrics(metrics),
	)
	field := weather.NewField(cfg.Seed, cfg.Env.BaseTemperature)
	spawner := arena.NewSpawner(cfg.Seed, cfg.Arena.Size)
	spawner.Vetoes = vetoes

	sim := arena.NewSimulation(arena.Config{
		Hostiles:    cfg.Arena.Hostiles,
		Resources:   cfg.Arena.Resources,
		SenseRadius: cfg.Arena.SenseRadius,
	}, cfg.Arena.Agents, eng, field, spawner)
	sim.Metrics = metrics

	inst := &instance{cfg: cfg, sim: sim, reader: reader}

	if withJournal {
		if dir := filepath.Dir(cfg.DB.Path); dir != "" {
			os.MkdirAll(dir, 0755)
		}
		journal, err := persistence.Open(cfg.DB.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		run, err := journal.StartRun(cfg.Seed, cfg.Arena.Agents)
		if err != nil {
			journal.Close()
			return nil, fmt.Errorf("start run: %w", err)
		}
		sim.Journal = journal
		sim.RunID = run.ID
		inst.journal = journal
	}

	loop := engine.NewLoop()
	loop.Interval = cfg.Engine.FrameInterval
	loop.SetSpeed(cfg.Engine.Speed)
	loop.OnFrame = func(frame uint64, dt float64) {
		sim.Step(frame, dt)
		if frame%reportEvery == 0 {
			logSummary(sim.Summary())
		}
		if runFlags.frames > 0 && frame >= runFlags.frames {
			loop.Stop()
		}
	}
	inst.loop = loop

	return inst, nil
}

func (inst *instance) close() {
	if inst.journal != nil {
		inst.journal.Close()
	}
}

func runArena(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	slog.Info("mini-mind arena starting",
		"seed", cfg.Seed,
		"agents", cfg.Arena.Agents,
		"hostiles", cfg.Arena.Hostiles,
		"resources", cfg.Arena.Resources,
		"workers", cfg.Engine.Workers,
		"vetoes", len(cfg.Engine.Vetoes),
	)

	inst, err := build(cfg, !runFlags.noJournal)
	if err != nil {
		return err
	}
	defer inst.close()
	if inst.journal != nil {
		slog.Info("journal opened", "path", cfg.DB.Path, "run", inst.sim.RunID)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Real-world weather (optional) ────────────────────────────────
	if wc := weather.NewClient(cfg.Env.WeatherAPIKey, cfg.Env.WeatherLocation); wc != nil {
		go refreshWeather(ctx, wc, inst.sim.Field)
	} else {
		slog.Info("OPENWEATHER_API_KEY not set, using procedural weather only")
	}

	// ── HTTP API ─────────────────────────────────────────────────────
	if !runFlags.noAPI {
		if cfg.API.AdminKey == "" {
			slog.Warn("ARENA_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		api.New(inst.sim, inst.loop, inst.journal, cfg.API.AdminKey).Start(ctx, cfg.ListenAddr())
		fmt.Printf("API: http://localhost%s/api/v1/status\n", cfg.ListenAddr())
	}

	fmt.Printf("\nArena is live: %d agents, %d hostiles, %d resources.\n",
		cfg.Arena.Agents, cfg.Arena.Hostiles, cfg.Arena.Resources)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	inst.loop.Run(ctx)

	inst.report(context.Background())
	return nil
}

// refreshWeather polls the weather client and folds the result into the
// field until ctx is done.
func refreshWeather(ctx context.Context, wc *weather.Client, field *weather.Field) {
	ticker := time.NewTicker(weatherInterval)
	defer ticker.Stop()

	for {
		cond, err := wc.Fetch()
		if err != nil {
			slog.Warn("weather fetch failed", "error", err)
		} else {
			m := weather.ToModifiers(cond)
			field.ApplyWeather(m)
			slog.Info("weather applied", "description", m.Description, "temp", m.Temperature, "visibility", m.Visibility)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func logSummary(sum arena.Summary) {
	slog.Info("arena",
		"frame", sum.Frame,
		"engine_ticks", sum.EngineTicks,
		"agents", sum.Agents,
		"avg_health", fmt.Sprintf("%.2f", sum.AvgHealth),
		"avg_energy", fmt.Sprintf("%.2f", sum.AvgEnergy),
		"global_memory", sum.GlobalMemory,
		"decisions", sum.Stats.Decisions,
		"downed", sum.Stats.Downed,
	)
}

// report prints the end-of-run summary.
func (inst *instance) report(ctx context.Context) {
	sum := inst.sim.Summary()
	elapsed := engine.SimTime(sum.Frame, inst.loop.Interval)

	fmt.Printf("\nArena stopped after %s frames (%s simulated).\n", humanize.Comma(int64(sum.Frame)), elapsed)
	fmt.Printf("  decisions:   %s\n", humanize.Comma(int64(sum.Stats.Decisions)))
	fmt.Printf("  transitions: %s\n", humanize.Comma(int64(sum.Stats.Transitions)))
	fmt.Printf("  downed:      %d   hostiles defeated: %d   resources harvested: %d\n",
		sum.Stats.Downed, sum.Stats.Defeated, sum.Stats.Harvested)

	totals, err := telemetry.Totals(ctx, inst.reader)
	if err != nil {
		slog.Error("metric collection failed", "error", err)
		return
	}
	slog.Info("metric totals",
		"population_updates", totals["engine.population.updates"],
		"decisions", totals["agent.decisions"],
		"transitions", totals["agent.state.transitions"],
	)
}
