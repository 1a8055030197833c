package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/voxpath/internal/config"
	"github.com/udisondev/voxpath/internal/db"
	"github.com/udisondev/voxpath/internal/octree"
	"github.com/udisondev/voxpath/internal/pathfind"
	"github.com/udisondev/voxpath/internal/sim"
)

const ConfigPath = "config/voxpath.yaml"

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

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load config first to determine log level
	cfgPath := ConfigPath
	if p := os.Getenv("VOXPATH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadNavServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := parseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))
	pathfind.EnableDebugLogging(logLevel == slog.LevelDebug)

	slog.Info("voxpath starting", "log_level", cfg.LogLevel)

	scenePath := cfg.ScenePath
	if p := os.Getenv("VOXPATH_SCENE"); p != "" {
		scenePath = p
	}
	sceneCfg, err := config.LoadScene(scenePath)
	if err != nil {
		return fmt.Errorf("loading scene: %w", err)
	}
	scene, err := sceneCfg.Build()
	if err != nil {
		return fmt.Errorf("building scene: %w", err)
	}
	slog.Info("scene loaded",
		"path", scenePath,
		"boxes", len(sceneCfg.Boxes),
		"spheres", len(sceneCfg.Spheres),
		"movers", len(sceneCfg.Movers),
		"patrols", len(sceneCfg.Patrols))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	volCfg, err := cfg.Volume.OctreeConfig()
	if err != nil {
		return fmt.Errorf("volume config: %w", err)
	}
	vol, err := octree.New(volCfg, scene,
		octree.WithPolicy(cfg.Volume.SearchPolicy()),
		octree.WithMetrics(octree.NewMetrics(reg)),
	)
	if err != nil {
		return fmt.Errorf("creating volume: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := vol.Close(closeCtx); err != nil {
			slog.Error("closing volume", "err", err)
		}
	}()
	nx, ny, nz := vol.GridSize()
	slog.Info("volume created", "grid", fmt.Sprintf("%dx%dx%d", nx, ny, nz), "depth", vol.Depth())

	pool := pathfind.NewPool(pathfind.Options{
		Workers:      cfg.Pathfinding.Workers,
		ReadyTimeout: cfg.Pathfinding.ReadyTimeout,
		Metrics:      pathfind.NewMetrics(reg),
	})
	defer pool.Close()

	var recorder *db.Recorder
	if cfg.Database.Enabled {
		database, err := db.New(ctx, cfg.Database.DSN())
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		slog.Info("database connected")

		if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		recorder = db.NewRecorder(db.NewPathStatRepository(database.Pool()), nil, 5*time.Second, cfg.Database.Retention)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		began := time.Now()
		if err := vol.Generate(gctx); err != nil {
			return fmt.Errorf("generating volume: %w", err)
		}
		stats, err := vol.Stats(gctx)
		if err != nil {
			return fmt.Errorf("volume stats: %w", err)
		}
		slog.Info("volume generated",
			"took", time.Since(began),
			"leaves", stats.Leaves(),
			"free_ratio", stats.FreeRatio())
		return nil
	})

	g.Go(func() error {
		if err := vol.Run(gctx); err != nil {
			return fmt.Errorf("obstacle updates: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting path result tick", "interval", cfg.Pathfinding.TickInterval)
		if err := pool.Run(gctx, cfg.Pathfinding.TickInterval); err != nil {
			return fmt.Errorf("path pool: %w", err)
		}
		return nil
	})

	if recorder != nil {
		g.Go(func() error {
			if err := recorder.Run(gctx); err != nil {
				return fmt.Errorf("path stats recorder: %w", err)
			}
			return nil
		})
	}

	if cfg.Simulation.Enabled {
		mgr := sim.NewManager(nil, cfg.Simulation.TickInterval)
		mgr.Populate(sceneCfg, scene, vol, sim.PatrolOptions{
			Requester: pool,
			Template:  requestTemplate(vol, cfg.Pathfinding),
			Interval:  cfg.Simulation.RequestInterval,
			Hook:      resultHook(recorder),
		})
		g.Go(func() error {
			if err := mgr.Start(gctx); err != nil {
				return fmt.Errorf("simulation: %w", err)
			}
			return nil
		})
	}

	if cfg.MetricsAddress != "" {
		srv := newMetricsServer(cfg.MetricsAddress, reg)
		g.Go(func() error {
			slog.Info("starting metrics server", "addr", cfg.MetricsAddress)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func newMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// requestTemplate carries the configured per-request defaults.
func requestTemplate(vol *octree.Volume, p config.Pathfinding) pathfind.Request {
	return pathfind.Request{
		Volume:          vol,
		SmoothingPasses: p.SmoothingPasses,
		UserData:        p.UserData,
		TimeLimit:       p.TimeLimit,
		AngleTolerance:  p.AngleTolerance,
		WantUserPath:    true,
	}
}

func resultHook(rec *db.Recorder) sim.ResultHook {
	return func(agent string, res *pathfind.Result) {
		if !res.Found() {
			slog.Warn("patrol path failed", "agent", agent, "reason", res.FailReason)
		}
		if rec != nil {
			rec.Add(pathStat(res))
		}
	}
}

func pathStat(res *pathfind.Result) db.PathStat {
	return db.PathStat{
		RequestID:      res.RequestID,
		FailReason:     res.FailReason.String(),
		Duration:       res.SearchDuration,
		PathLength:     res.PathLength,
		Points:         len(res.UserPath),
		NodesVisited:   res.NodesVisited,
		NodesProcessed: res.NodesProcessed,
	}
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
