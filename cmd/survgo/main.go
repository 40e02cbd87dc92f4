package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/survgo/server/internal/config"
	"github.com/survgo/server/internal/core/assert"
	"github.com/survgo/server/internal/core/event"
	coresys "github.com/survgo/server/internal/core/system"
	"github.com/survgo/server/internal/data"
	"github.com/survgo/server/internal/handler"
	gonet "github.com/survgo/server/internal/net"
	"github.com/survgo/server/internal/net/packet"
	"github.com/survgo/server/internal/replay"
	"github.com/survgo/server/internal/replication"
	"github.com/survgo/server/internal/scripting"
	"github.com/survgo/server/internal/system"
	"github.com/survgo/server/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               survgo  v0.1.0              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       authoritative survival server       \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mServer:\033[0m %s\n\n", serverName)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name)

	// 3. Data tables
	printSection("Data")
	obstacles, err := data.LoadObstacleTable(cfg.Data.Obstacles)
	if err != nil {
		return fmt.Errorf("obstacles: %w", err)
	}
	printStat("obstacle types", obstacles.Count())
	loot, err := data.LoadLootTable(cfg.Data.Loot)
	if err != nil {
		return fmt.Errorf("loot: %w", err)
	}
	printStat("loot types", loot.Count())
	mapDef, err := data.LoadMapDef(cfg.Data.Map, obstacles, loot)
	if err != nil {
		return fmt.Errorf("map: %w", err)
	}
	printStat("map placements", len(mapDef.Placements))

	// 4. Lua rules
	engine, err := scripting.NewEngine(cfg.Data.Scripts, log)
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer engine.Close()
	printOK("Lua scripts loaded")

	// 5. World and map
	printSection("World")
	bus := event.NewBus()
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = mapDef.Seed
	}
	w := world.New(world.Config{
		Width:  mapDef.Width,
		Height: mapDef.Height,
		Seed:   seed,
	}, world.Defs{Obstacles: obstacles, Loot: loot}, bus, assert.NewChecker(cfg.Server.Strict, log), log)
	w.SubscribeEvents()
	placed, err := w.Generate(mapDef)
	if err != nil {
		return fmt.Errorf("generate map: %w", err)
	}
	printStat("objects placed", placed)
	// Ids handed out during generation are final; nobody has seen them yet.
	w.Flush()
	w.Gas.Start(engine)

	runner := coresys.NewRunner(coresys.OverloadConfig{
		Threshold:    cfg.Simulation.OverloadThreshold,
		Limit:        cfg.Simulation.OverloadLimit,
		WindowTicks:  cfg.Simulation.OverloadWindow,
		MaxThreshold: cfg.Simulation.MaxThreshold,
	}, log)

	// 6. Replication and replay
	rep := replication.New(w, replication.Config{
		ViewMargin:      cfg.Replication.ViewMargin,
		MaxMessageBytes: cfg.Replication.MaxMessageBytes,
		MaxFailures:     cfg.Replication.MaxFailures,
		Overload: coresys.OverloadConfig{
			Threshold:    cfg.Simulation.OverloadThreshold,
			Limit:        cfg.Simulation.OverloadLimit,
			WindowTicks:  cfg.Simulation.OverloadWindow,
			MaxThreshold: cfg.Simulation.MaxThreshold,
		},
	}, log)

	deps := &handler.Deps{
		World:      w,
		Replicator: rep,
		Loadout:    engine,
		Tick:       runner.TickCount,
		ViewRadius: cfg.Replication.SpectatorRadius,
		Log:        log,
	}

	var recorder *replay.Recorder
	if cfg.Replay.Enabled {
		recorder, err = replay.NewRecorder(cfg.Replay.Dir, cfg.Server.Name,
			int(cfg.Simulation.TickRate), time.Now, log)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		defer recorder.Close()
		rep.SetRecorder(recorder)
		deps.Events = recorder
		printOK("replay recording to " + recorder.Dir())
	}

	// 7. Packet handlers and network server
	pktReg := packet.NewRegistry(log)
	store := gonet.NewSessionStore()
	deps.Peers = store
	handler.RegisterAll(pktReg, deps)
	handler.SubscribeKills(deps)

	netServer, err := gonet.NewServer(cfg.Network.BindAddress, cfg.Network.Path, gonet.Options{
		InQueueSize:      cfg.Network.InQueueSize,
		OutQueueSize:     cfg.Network.OutQueueSize,
		MaxPacketsPerSec: cfg.Network.PacketsPerSecond,
		MaxMessageBytes:  cfg.Network.MaxMessageBytes,
		WriteTimeout:     cfg.Network.WriteTimeout,
		IdleTimeout:      cfg.Network.ReadTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 8. Systems in phase order
	runner.Register(system.NewInputSystem(netServer, pktReg, store, deps, cfg.Network.MaxPacketsPerTick, log))
	runner.Register(system.NewEventSystem(bus))
	runner.Register(system.NewGasSystem(w))
	runner.Register(system.NewEntitySystem(w, log))
	runner.Register(system.NewProjectileSystem(w, log))
	runner.Register(system.NewEffectSystem(w, log))
	runner.Register(system.NewReapSystem(w))
	runner.Register(system.NewReplicationSystem(w, rep, store, deps, cfg.Replication.Interval, runner.TickCount, log))

	// 9. Game loop until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := coresys.NewLoop(cfg.Simulation.TickRate, runner.Tick)

	printSection("Ready")
	printReady(fmt.Sprintf("listening on ws://%s%s", netServer.Addr().String(), cfg.Network.Path))
	printReady(fmt.Sprintf("game loop started (tick: %s)", loop.StepDuration()))
	fmt.Println()

	loop.Run(ctx)

	log.Info("shutdown signal received")
	store.ForEach(func(sess *gonet.Session) {
		sess.FlushOutput()
		sess.Close()
	})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := netServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	stats := runner.Stats()
	log.Info("server stopped",
		zap.Uint64("ticks", runner.TickCount()),
		zap.Float64("avg_fps", stats.AverageFPS()),
		zap.Uint64("replication_passes", rep.Passes()),
	)
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
