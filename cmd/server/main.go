// Command server runs the world server: a TCP game protocol listener,
// a fixed-period tick engine, and the shared persistence connection
// the two draw from.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/tilerealm/worldserver/internal/ai"
	"github.com/tilerealm/worldserver/internal/attributemods"
	"github.com/tilerealm/worldserver/internal/broadcast"
	"github.com/tilerealm/worldserver/internal/catalog"
	"github.com/tilerealm/worldserver/internal/chatcmd"
	"github.com/tilerealm/worldserver/internal/config"
	"github.com/tilerealm/worldserver/internal/golddecay"
	"github.com/tilerealm/worldserver/internal/hungerthirst"
	"github.com/tilerealm/worldserver/internal/meditation"
	"github.com/tilerealm/worldserver/internal/model"
	"github.com/tilerealm/worldserver/internal/persistence"
	"github.com/tilerealm/worldserver/internal/regen"
	"github.com/tilerealm/worldserver/internal/respawn"
	"github.com/tilerealm/worldserver/internal/session"
	"github.com/tilerealm/worldserver/internal/social"
	"github.com/tilerealm/worldserver/internal/tick"
	"github.com/tilerealm/worldserver/internal/world"
)

const configPathEnv = "WORLDSERVER_CONFIG"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	code, err := run(ctx)
	if err != nil {
		slog.Error("fatal", "error", err)
	}
	os.Exit(code)
}

// run builds and drives the server, returning the process exit code:
// 0 clean, 1 config/startup failure, 2 bind or runtime failure.
func run(ctx context.Context) (int, error) {
	cfgPath := os.Getenv(configPathEnv)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return 1, fmt.Errorf("loading config: %w", err)
	}
	cfg, err = config.ParseFlags(cfg, os.Args[1:])
	if err != nil {
		return 1, fmt.Errorf("parsing flags: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)

	log.Info("worldserver starting", "host", cfg.Host, "port", cfg.Port, "debug", cfg.Debug)

	store, err := connectStore(ctx, cfg)
	if err != nil {
		return 1, fmt.Errorf("connecting to kv store: %w", err)
	}

	items, npcs, loot, spells, err := loadCatalogs(cfg)
	if err != nil {
		return 1, fmt.Errorf("loading catalogs: %w", err)
	}

	w := world.NewMapManager()
	defs, err := loadMaps(cfg.MapCatalogDir, w, log)
	if err != nil {
		return 1, fmt.Errorf("loading maps: %w", err)
	}
	spawnNPCs(w, npcs, defs, log)
	if err := restoreGroundItems(ctx, store, w, log); err != nil {
		return 1, fmt.Errorf("restoring ground items: %w", err)
	}

	fanout := broadcast.NewFanout(w, log)
	events := broadcast.NewEvents(fanout, w, log)
	chat := chatcmd.NewTable()
	social.NewRegistry(w).Register(chat)

	deps := &session.Deps{
		World:  w,
		Store:  store,
		Items:  items,
		NPCs:   npcs,
		Loot:   loot,
		Spells: spells,
		Fanout: fanout,
		Chat:   chat,
		Cfg:    cfg,
		Log:    log,
	}
	dispatcher := session.NewDispatcher(deps)

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0) * 2
	}
	pool := session.NewPool(dispatcher, workers, cfg.QueueDepth, log)
	srv := session.NewServer(cfg, pool, log)

	engine := buildTickEngine(cfg, w, events, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		engine.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(gctx); err != nil {
			return fmt.Errorf("game server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return 2, err
	}
	log.Info("worldserver stopped")
	return 0, nil
}

func connectStore(ctx context.Context, cfg config.Config) (persistence.Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%d", cfg.KVHost, cfg.KVPort),
		DB:   cfg.KVDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis at %s:%d: %w", cfg.KVHost, cfg.KVPort, err)
	}
	return persistence.NewRedisStore(client), nil
}

func loadCatalogs(cfg config.Config) (*catalog.ItemCatalog, *catalog.NPCCatalog, *catalog.LootCatalog, *catalog.SpellCatalog, error) {
	items, err := catalog.LoadItems(cfg.ItemCatalogPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	npcs, err := catalog.LoadNPCs(cfg.NPCCatalogPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	loot, err := catalog.LoadLoot(cfg.LootCatalogPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	spells, err := catalog.LoadSpells(cfg.SpellCatalogPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return items, npcs, loot, spells, nil
}

// loadMaps registers every *.toml file under dir as a map and returns
// the loaded definitions so their spawn points can be instantiated. A
// missing directory is not an error — the world degrades to
// all-walkable default maps generated on demand, per world.NewMapDef.
func loadMaps(dir string, w *world.MapManager, log *slog.Logger) ([]*world.MapDef, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.toml"))
	if err != nil {
		return nil, fmt.Errorf("globbing map catalog dir %s: %w", dir, err)
	}
	defs := make([]*world.MapDef, 0, len(matches))
	for _, path := range matches {
		def, err := catalog.LoadMap(path)
		if err != nil {
			return nil, err
		}
		w.RegisterMap(def)
		defs = append(defs, def)
	}
	if log != nil {
		log.Info("maps loaded", "count", len(matches), "dir", dir)
	}
	return defs, nil
}

// spawnNPCs instantiates every map's spawn points from the NPC
// template catalog. A spawn that references an unknown template or an
// unavailable tile is logged and skipped rather than aborting startup.
func spawnNPCs(w *world.MapManager, npcs *catalog.NPCCatalog, defs []*world.MapDef, log *slog.Logger) {
	var count int
	for _, def := range defs {
		for _, sp := range def.Spawns {
			tpl, ok := npcs.Get(sp.TemplateID)
			if !ok {
				log.Warn("spawn references unknown npc template", "map", def.ID, "template", sp.TemplateID)
				continue
			}
			loc := model.Location{Map: def.ID, X: sp.X, Y: sp.Y, Heading: model.South}
			n := catalog.NewNPC(tpl, w.AllocateNPCCharIndex(), loc)
			if err := w.AddNPC(n); err != nil {
				log.Warn("spawn tile unavailable", "map", def.ID, "x", sp.X, "y", sp.Y, "error", err)
				continue
			}
			count++
		}
	}
	log.Info("npcs spawned", "count", count)
}

// restoreGroundItems places every persisted ground stack back into
// world state, so the ground survives restarts. A stack whose tile
// already holds one (should not happen with a consistent store) is
// logged and skipped.
func restoreGroundItems(ctx context.Context, store persistence.Store, w *world.MapManager, log *slog.Logger) error {
	records, err := persistence.LoadGroundItems(ctx, store)
	if err != nil {
		return err
	}
	for _, rec := range records {
		item := rec.Item
		if err := w.AddGroundItem(rec.Map, rec.X, rec.Y, &item); err != nil {
			log.Warn("skipping persisted ground item", "map", rec.Map, "x", rec.X, "y", rec.Y, "error", err)
		}
	}
	log.Info("ground items restored", "count", len(records))
	return nil
}

// buildTickEngine registers the seven tick effects in the exact order
// the simulation requires: hunger/thirst and gold decay first, then
// player-facing restoration, then NPC AI, then buff expiry, then
// respawns.
func buildTickEngine(cfg config.Config, w *world.MapManager, events *broadcast.Events, log *slog.Logger) *tick.Engine {
	engine := tick.NewEngine(cfg.TickPeriod, log)

	engine.Register(hungerthirst.NewEffect(w, events, cfg.HungerThirstInterval, cfg.HungerThirstDecrement, cfg.StarvationDamage, log))
	engine.Register(golddecay.NewEffect(w, events, cfg.GoldDecayInterval, cfg.GoldDecayFraction, log))
	engine.Register(meditation.NewEffect(w, events, cfg.MeditationInterval, cfg.MeditationManaPct, log))
	engine.Register(regen.NewEffect(w, events, cfg.RegenInterval, cfg.StaminaRegenAmount, cfg.RestingStaminaBonus, log))
	engine.Register(ai.NewEffect(w, events, cfg.NPCAIInterval, log))
	engine.Register(attributemods.NewEffect(w, cfg.AttributeModInterval, log))
	engine.Register(respawn.NewEffect(w, events, cfg.RespawnCheckInterval, log))

	return engine
}
