package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"influxcal/internal/config"
	appLog "influxcal/internal/log"
	"influxcal/internal/pipeline"
	"influxcal/internal/web"
)

const version = "1.0.0"

type flagConfig struct {
	configPath string
	outDir     string
	listen     string
	once       bool
	initConfig bool
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("failed to load .env", "err", err)
	}

	appLog.Info("influxcal starting", "version", version)

	if flags.initConfig {
		if err := config.Sample().Save(flags.configPath); err != nil {
			appLog.Error("failed to write sample config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		appLog.Info("sample config written", "config_path", flags.configPath)
		return
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Warn("config unusable, continuing with empty configuration", "err", err)
	}
	if err := conf.ApplyEnv(); err != nil {
		appLog.Warn("environment overrides ignored", "err", err)
	}

	// CLI flags win over file and environment.
	if flags.outDir != "" {
		conf.OutputDir = flags.outDir
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"timezone", conf.Timezone,
		"output_dir", conf.OutputDir,
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
		"backfill_days", conf.BackfillDays,
		"horizon_days", conf.HorizonDays,
		"horizon_end", conf.HorizonEnd,
		"sources", len(conf.Sources),
		"browser", conf.Browser.Enabled,
		"once", flags.once,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if flags.once {
		if err := newBuilder(conf, pipeline.Deps{}, nil).run(ctx); err != nil {
			appLog.Error("build failed", err)
			os.Exit(1)
		}
		appLog.Info("influxcal exiting")
		return
	}

	if err := serve(ctx, conf); err != nil {
		appLog.Error("serve failed", err)
		os.Exit(1)
	}
	appLog.Info("influxcal exiting")
}

// serve rebuilds on the refresh schedule and, when a listen address is
// configured, serves the feeds until ctx is cancelled.
func serve(ctx context.Context, conf *config.Config) error {
	loc, err := conf.Location()
	if err != nil {
		appLog.Warn("invalid timezone, using fallback", "timezone", conf.Timezone, "fallback", loc.String())
	}

	var server *web.Server
	if conf.Listen != "" {
		server = web.NewServer(conf)
	}
	b := newBuilder(conf, pipeline.Deps{}, server)
	if server != nil {
		server.SetRefresh(b.run)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := b.run(ctx); err != nil {
			appLog.Error("scheduled build failed", err)
		}
	}); err != nil {
		return err
	}

	if err := b.run(ctx); err != nil {
		appLog.Error("initial build failed", err)
	}

	c.Start()
	appLog.Info("scheduler started", "refresh", conf.RefreshCron, "timezone", loc.String())
	defer func() {
		<-c.Stop().Done()
		appLog.Info("scheduler stopped")
	}()

	if server == nil {
		<-ctx.Done()
		return nil
	}
	return web.ListenAndServe(ctx, conf.Listen, server.Handler())
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file")
	flag.StringVar(&cfg.outDir, "out", "", "Output directory (overrides config if set)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one build, write the feeds and exit")
	flag.BoolVar(&cfg.initConfig, "init", false, "Write a sample config to -config and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
