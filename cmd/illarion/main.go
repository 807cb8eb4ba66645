package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/illarion/server/internal/config"
	"github.com/illarion/server/internal/data"
	"github.com/illarion/server/internal/monitor"
	gonet "github.com/illarion/server/internal/net"
	"github.com/illarion/server/internal/net/packet"
	"github.com/illarion/server/internal/persist"
	"github.com/illarion/server/internal/scripting"
	"github.com/illarion/server/internal/system"
	"github.com/illarion/server/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := "config/server.toml"
	if p := os.Getenv("ILLARION_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting", zap.String("server", cfg.Server.Name), zap.Int("id", cfg.Server.ID))

	// Database

	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	db, err := persist.NewDB(initCtx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := persist.RunMigrations(initCtx, db); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	playerRepo, err := persist.NewPlayerRepo(db)
	if err != nil {
		return fmt.Errorf("player repo: %w", err)
	}
	defer playerRepo.Close()
	spawnRepo := persist.NewSpawnRepo(db)
	onlineRepo := persist.NewOnlineRepo(db)

	// Static data

	weapons, err := data.LoadWeaponTable(cfg.Data.Weapons)
	if err != nil {
		return fmt.Errorf("load weapons: %w", err)
	}
	monsters, err := data.LoadMonsterTable(cfg.Data.Monsters)
	if err != nil {
		return fmt.Errorf("load monsters: %w", err)
	}
	maps, err := data.LoadMapTable(cfg.Data.Maps)
	if err != nil {
		return fmt.Errorf("load maps: %w", err)
	}
	npcs, err := data.LoadNPCTable(cfg.Data.NPCs)
	if err != nil {
		return fmt.Errorf("load npcs: %w", err)
	}
	scheduled, err := data.LoadScheduledScripts(cfg.Data.ScheduledScripts)
	if err != nil {
		return fmt.Errorf("load scheduled scripts: %w", err)
	}

	fields := world.NewFieldMap()
	fieldCount := maps.Build(fields)
	log.Info("static data loaded",
		zap.Int("weapons", weapons.Count()),
		zap.Int("monster_races", monsters.Count()),
		zap.Int("fields", fieldCount),
		zap.Int("npcs", len(npcs)),
		zap.Int("scheduled_scripts", len(scheduled)),
	)

	loc, err := time.LoadLocation(cfg.Calendar.Location)
	if err != nil {
		return fmt.Errorf("calendar location: %w", err)
	}
	cal := world.Calendar{Factor: cfg.Calendar.TimeFactor, Birth: cfg.Calendar.BirthTime, Location: loc}

	// Scripts

	luaEngine, err := scripting.NewEngine(cfg.Data.ScriptsDir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	log.Info("lua scripts loaded", zap.Int("modules", luaEngine.Modules()))
	for _, name := range monsters.Scripts() {
		if !luaEngine.Has(name) {
			log.Warn("monster script missing", zap.String("script", name))
		}
	}
	scripts := system.LuaScripts{
		Engine:    luaEngine,
		Scheduled: scripting.NewScheduledTable(luaEngine, scheduled, time.Now(), rand.New(rand.NewSource(time.Now().UnixNano())), log),
	}

	// World

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limits := &world.Limits{
		MaxAP:      cfg.World.MaxAP,
		MaxFP:      cfg.World.MaxFP,
		MinActAP:   cfg.World.MinActAP,
		MinFightFP: cfg.World.MinFightFP,
	}
	start := world.Position{X: cfg.World.StartX, Y: cfg.World.StartY, Z: cfg.World.StartZ}
	store := system.RepoStore{Repo: playerRepo, Now: time.Now}
	pm := system.NewPlayerManager(store, start, limits, cfg.Network.LoginQueueSize, log.Named("players"))

	deps := system.Deps{
		World:    cfg.World,
		Schedule: cfg.Schedule,
		Calendar: cal,
		Fields:   fields,
		Weapons:  weapons,
		Monsters: monsters,
		Scripts:  scripts,
		Saver:    store,
		Spawns:   spawnRepo,
		Online:   onlineRepo,
		Logout:   pm,
		Log:      log.Named("world"),
	}
	var hub *monitor.Hub
	if cfg.Monitor.Enabled {
		hub = monitor.NewHub(cfg.Monitor.Operators, cfg.Monitor.WriteTimeout, log.Named("monitor"))
		deps.Monitor = hub
	}

	sim := system.NewSimulation(deps)
	luaEngine.SetHost(sim)
	sim.SetLogins(pm.Ready())
	pm.Start(ctx)

	sim.LoadNPCs(npcs)
	if !sim.InitRespawns(initCtx) {
		log.Warn("monster spawning disabled")
	}
	sim.InitScheduler()

	// Network

	pktReg := packet.NewRegistry(log)
	system.RegisterHandlers(pktReg, sim, pm, cfg.Network.ClientVersion, log)

	netServer, err := gonet.NewServer(cfg.Network.BindAddress, system.Frame(pktReg), gonet.SessionOptions{
		OutQueueSize: cfg.Network.OutQueueSize,
		WriteTimeout: cfg.Network.WriteTimeout,
		ReadTimeout:  cfg.Network.ReadTimeout,
		PktPerSec:    cfg.Network.MaxPacketsPerSecond,
	}, log)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	if hub != nil {
		go func() {
			if err := hub.Serve(cfg.Monitor.BindAddress); err != nil {
				log.Error("monitor stopped", zap.Error(err))
			}
		}()
	}

	// Main loop

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGHUP)

	ticker := time.NewTicker(cfg.Schedule.Poll)
	defer ticker.Stop()

	log.Info("server ready",
		zap.Stringer("listen", netServer.Addr()),
		zap.Duration("game_loop", cfg.Schedule.GameLoop),
		zap.Duration("ap_update", cfg.World.MinAPUpdate),
	)

	for {
		select {
		case <-ticker.C:
			sim.Step()
		case <-reloadCh:
			reload(ctx, sim, cfg.Data, log)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			saved := sim.SaveAllPlayers()
			netServer.Shutdown(packet.LogOut(packet.LogoutServerShutdown))
			if hub != nil {
				stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := hub.Shutdown(stopCtx); err != nil {
					log.Warn("monitor shutdown", zap.Error(err))
				}
				stopCancel()
			}
			cancel()
			pm.Wait()
			log.Info("server stopped", zap.Int("saved", saved))
			return nil
		}
	}
}

// reload re-reads NPC placements and spawn points. Runs on the simulation
// goroutine between steps.
func reload(ctx context.Context, sim *system.Simulation, paths config.DataConfig, log *zap.Logger) {
	log.Info("reloading world data")
	if npcs, err := data.LoadNPCTable(paths.NPCs); err != nil {
		log.Error("reload npcs", zap.Error(err))
	} else {
		sim.LoadNPCs(npcs)
	}
	if !sim.ReloadSpawns(ctx) {
		log.Warn("spawn reload left no spawn points")
	}
	sim.InvalidatePlayerDialogs()
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
