package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tim-ings/mmo/internal/assets"
	"github.com/tim-ings/mmo/internal/config"
	"github.com/tim-ings/mmo/internal/core/event"
	coresys "github.com/tim-ings/mmo/internal/core/system"
	"github.com/tim-ings/mmo/internal/data"
	"github.com/tim-ings/mmo/internal/entity"
	"github.com/tim-ings/mmo/internal/handler"
	gonet "github.com/tim-ings/mmo/internal/net"
	"github.com/tim-ings/mmo/internal/net/packet"
	"github.com/tim-ings/mmo/internal/persist"
	"github.com/tim-ings/mmo/internal/scene"
	"github.com/tim-ings/mmo/internal/scripting"
	"github.com/tim-ings/mmo/internal/system"
	"github.com/tim-ings/mmo/internal/terrain"
	"github.com/tim-ings/mmo/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(name, session string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              mmo client v0.1              \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mclient:\033[0m %s \033[90m(session %s)\033[0m\n\n", name, session)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main client logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, cfgPath, err := config.LoadDefault()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	sessionID := uuid.NewString()
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log = log.With(zap.String("session", sessionID))

	printBanner(cfg.Client.Name, sessionID)
	if cfgPath == "" {
		printOK("built-in defaults (no config file)")
	} else {
		printOK("config " + cfgPath)
	}

	if err := packet.UseCharset(cfg.Network.Charset); err != nil {
		return fmt.Errorf("charset: %w", err)
	}

	// 3. Assets
	printSection("assets")
	models, err := data.LoadModelTable(cfg.Assets.ModelList)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		models = data.NewModelTable(cfg.Assets.ModelRoot)
		log.Warn("model list missing, resolving by name", zap.String("path", cfg.Assets.ModelList))
	case err != nil:
		return fmt.Errorf("load model list: %w", err)
	}
	printStat("models", models.Count())
	loader := assets.NewFileLoader(models, log.Named("assets"))

	// 4. Chunk sources: staged defs, world DB, chunk directory, behind a cache.
	printSection("terrain")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	staged := terrain.NewStaged()
	var backing terrain.Chain

	if cfg.Database.Enabled {
		dbCtx, dbCancel := context.WithTimeout(ctx, 30*time.Second)
		db, err := persist.NewDB(dbCtx, cfg.Database, log.Named("db"))
		if err != nil {
			dbCancel()
			return err
		}
		defer db.Close()
		version, err := persist.RunMigrations(dbCtx, db)
		dbCancel()
		if err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		backing = append(backing, persist.NewChunkRepo(db))
		printOK(fmt.Sprintf("world database connected (schema v%d)", version))
	}

	dir, err := terrain.NewDir(cfg.Assets.ChunkDir)
	if err != nil {
		return fmt.Errorf("chunk dir: %w", err)
	}
	defer dir.Close()
	backing = append(backing, dir)
	printOK("chunk dir " + cfg.Assets.ChunkDir)

	cached, err := terrain.NewCached(backing, cfg.Assets.CacheMaxCost)
	if err != nil {
		return fmt.Errorf("chunk cache: %w", err)
	}
	defer cached.Close()

	bus := event.NewBus()
	graph := scene.NewGraph(log.Named("scene"))
	store := terrain.NewStore(terrain.StoreConfig{
		Source:   terrain.Chain{staged, cached},
		Scene:    graph,
		Models:   models,
		Bus:      bus,
		Editable: cfg.Client.Editor,
		Log:      log.Named("terrain"),
	})
	streamer := terrain.NewStreamer(store, staged, terrain.StreamerConfig{
		ViewDistance:   cfg.World.ViewDistance,
		StitchPasses:   cfg.World.StitchPasses,
		MaxConcurrency: cfg.World.MaxConcurrentLoads,
	}, log.Named("stream"))
	printStat("view distance", cfg.World.ViewDistance)

	// 5. Scripting
	printSection("scripting")
	var engine *scripting.Engine
	if cfg.Scripting.Enabled {
		engine, err = scripting.NewEngine(cfg.Scripting.Dir, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer engine.Close()
		engine.Bind(bus)
		event.Subscribe(bus, func(e event.EntityAdded) {
			p, ok := e.Entity.(*entity.Player)
			if !ok {
				return
			}
			def := p.Def()
			log.Debug("player in view", zap.String("nameplate", engine.Nameplate(e.Kind, def.Name, def.Level)))
		})
		printOK("lua engine ready")
	} else {
		printOK("scripting disabled")
	}

	// 6. Connect
	printSection("network")
	conn, err := gonet.Dial(ctx, gonet.Options{
		Transport:    cfg.Network.Transport,
		Address:      cfg.Network.Address,
		InQueueSize:  cfg.Network.InQueueSize,
		OutQueueSize: cfg.Network.OutQueueSize,
		DialTimeout:  cfg.Network.DialTimeout,
		WriteTimeout: cfg.Network.WriteTimeout,
	}, log.Named("net"))
	if err != nil {
		return err
	}
	defer conn.Close()
	printOK(fmt.Sprintf("connected %s://%s", cfg.Network.Transport, cfg.Network.Address))

	// 7. World and packet handlers
	w := world.New(world.Config{
		TickRate:    cfg.World.TickRate,
		DeathLinger: cfg.World.DeathLinger,
	}, world.Deps{
		Client: conn,
		Store:  store,
		Scene:  graph,
		Loader: loader,
		Paths:  models,
		Bus:    bus,
		Log:    log.Named("world"),
	})
	defer w.Close()

	deps := &handler.Deps{
		World:    w,
		Streamer: streamer,
		Log:      log.Named("handler"),
		Ctx:      ctx,
	}
	defer deps.Wait()

	reg := packet.NewRegistry(log.Named("packet"))
	handler.RegisterAll(reg, deps)

	// 8. Frame systems
	input := system.NewInputSystem(conn, reg, cfg.Network.MaxPacketsPerFrame, log.Named("input"))
	input.SetState(packet.StateInWorld)

	runner := coresys.NewRunner()
	runner.Register(input)
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewWorldSystem(w))
	runner.Register(system.NewOutputSystem(conn))
	runner.Register(system.NewStatsSystem(w, runner, 10*time.Second, log.Named("stats")))
	printStat("systems", runner.Len())

	// The world's chunk request was buffered at construction.
	conn.Flush()

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.World.FrameRate)
	defer ticker.Stop()

	printSection("ready")
	printReady(fmt.Sprintf("frame loop started (frame: %s, tick: %s)", cfg.World.FrameRate, cfg.World.TickRate))
	fmt.Println()

	last := time.Now()
	for {
		select {
		case now := <-ticker.C:
			runner.Tick(now.Sub(last))
			last = now
		case <-conn.Done():
			// Handle what arrived before the hangup, then stop.
			runner.Tick(time.Since(last))
			log.Info("server closed the connection")
			return nil
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			cancel()
			return nil
		}
	}
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

	log, err := zapCfg.Build()
	if err != nil || cfg.File == "" {
		return log, err
	}

	// File output is always JSON, rotated by size and age.
	rotate := &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	fileCore := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(rotate),
		zapCfg.Level,
	)
	return log.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, fileCore)
	})), nil
}
