package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/creachadair/command"
	"github.com/pkg/errors"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"texcalc/config"
	"texcalc/dispatch"
	"texcalc/listener"
	"texcalc/logging"
	"texcalc/middleware"
	"texcalc/procedure"
	"texcalc/registry"
	"texcalc/server"
)

var serveFlags struct {
	Config  string `flag:"config,Configuration file (TOML)"`
	Address string `flag:"address,Listen address (overrides the config file)"`
	Port    int    `flag:"port,default=-1,First port to try (overrides the config file)"`
}

var registryFlags struct {
	Config string `flag:"config,Configuration file (TOML)"`
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func runServe(env *command.Env) error {
	if len(env.Args) != 0 {
		return env.Usagef("extra arguments: %q", env.Args)
	}
	cfg, err := loadConfig(serveFlags.Config)
	if err != nil {
		return err
	}
	if serveFlags.Address != "" {
		cfg.Address = serveFlags.Address
	}
	if serveFlags.Port >= 0 {
		cfg.Port = serveFlags.Port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer log.Sync()

	tex, closeTeX, err := openTeX(cfg.TeXOutput)
	if err != nil {
		return err
	}
	defer closeTeX()

	src, closeSrc, err := openSource(cfg, tex, log)
	if err != nil {
		return err
	}
	defer closeSrc()

	ln, err := listener.Listen(listener.Endpoint{Address: cfg.Address, Port: cfg.Port}, cfg.MaxAttempts, log)
	if err != nil {
		return err
	}
	log.Info("bound", zap.Stringer("endpoint", ln.Endpoint()))

	d := dispatch.New(src, dispatch.Options{
		DisableExpressions: !cfg.Expressions,
		Logger:             log,
	})
	svr := server.NewServer(ln, d, server.Options{
		Framer:       cfg.Framer(),
		ExactFraming: cfg.ExactFraming,
		Logger:       log,
	})
	svr.Use(middleware.LoggingMiddleware(log))
	if cfg.RateLimit > 0 {
		svr.Use(middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateBurst))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = svr.Serve(ctx)
	if ctx.Err() != nil {
		log.Info("shut down")
	}
	return err
}

// openTeX returns where procedures write their TeX definitions.
func openTeX(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open tex output")
	}
	return f, func() { f.Close() }, nil
}

// openSource returns the procedure source selected by cfg.
func openSource(cfg config.Config, tex io.Writer, log *zap.Logger) (procedure.Source, func(), error) {
	switch cfg.Procedures.Source {
	case config.SourceFile:
		return registry.Source(registry.NewFileRegistry(cfg.Procedures.File), tex), func() {}, nil
	case config.SourceEtcd:
		reg, client, err := openEtcd(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return registry.Source(reg, tex), func() { client.Close() }, nil
	default:
		return procedure.Static(nil), func() {}, nil
	}
}

func openEtcd(cfg config.Config, log *zap.Logger) (*registry.EtcdRegistry, *clientv3.Client, error) {
	client, err := registry.DialEtcd(clientv3.Config{
		Endpoints:   cfg.Procedures.EtcdEndpoints,
		DialTimeout: cfg.Procedures.EtcdDialTimeout,
		Logger:      log.Named("etcd"),
	})
	if err != nil {
		return nil, nil, err
	}
	return registry.NewEtcdRegistry(client, cfg.Procedures.EtcdPrefix, log), client, nil
}
