package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/studioclock/integration/internal/pkg/caspar"
	"github.com/studioclock/integration/internal/pkg/config"
	"github.com/studioclock/integration/internal/pkg/mixer"
	"github.com/studioclock/integration/internal/pkg/model"
	"github.com/studioclock/integration/internal/pkg/mqtt"
	"github.com/studioclock/integration/internal/pkg/publisher"
	"github.com/studioclock/integration/internal/pkg/recorder"
	"github.com/studioclock/integration/internal/pkg/server"
	"github.com/studioclock/integration/internal/pkg/switcher"
)

// IntegrationCommand loads the config file, applies flag overrides and runs
// the daemon until the context is cancelled.
func IntegrationCommand(ctx *cli.Context) error {
	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}
	if v := ctx.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	if v := ctx.String("http-addr"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := ctx.String("switcher-target"); v != "" {
		cfg.Switcher.Target = v
		cfg.Switcher.Enabled = true
	}
	if v := ctx.String("recorder-target"); v != "" {
		cfg.Recorder.Target = v
		cfg.Recorder.Enabled = true
	}
	if v := ctx.String("mixer-host"); v != "" {
		cfg.Mixer.Host = v
		cfg.Mixer.Enabled = true
	}
	if v := ctx.String("mqtt-broker"); v != "" {
		cfg.MQTT.Broker = v
	}
	if v := ctx.String("mqtt-user"); v != "" {
		cfg.MQTT.Username = v
	}
	if v := ctx.String("mqtt-pass"); v != "" {
		cfg.MQTT.Password = v
	}

	return run(ctx.Context, &cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	eg, ctx := errgroup.WithContext(ctx)

	logCfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.Level = level
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.MQTT.Broker != "" {
		mq := mqtt.NewFromConfig(cfg.MQTT)
		if err := mq.Connect(); err != nil {
			return err
		}
		defer mq.Disconnect()
		if err := publisher.Register("mqtt", mq); err != nil {
			return err
		}
		logger.Info("mqtt publisher registered", zap.String("broker", cfg.MQTT.Broker))
	}

	sw := switcher.NewManager(cfg.Switcher, switcher.OnChange(func(state *model.DeviceState) {
		_ = publisher.Publish(ctx, "switcher/state", state)
	}))
	rec := recorder.NewManager(cfg.Recorder, recorder.OnChange(func(state *model.RecordingState) {
		_ = publisher.Publish(ctx, "recorder/state", state)
	}))
	mix := mixer.NewAggregator(cfg.Mixer, mixer.OnChange(func(snap mixer.Snapshot) {
		_ = publisher.Publish(ctx, "mixer/state", snap)
	}))
	cg := caspar.NewClient(cfg.Caspar)

	sw.Start(ctx)
	rec.Start(ctx)
	go mix.Start()

	srv := &http.Server{
		Handler:      server.New(sw, rec, mix, cg).Router(),
		Addr:         cfg.HTTPAddr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	eg.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		sw.Stop()
		rec.Stop()
		mix.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	})

	return eg.Wait()
}
