package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/tempest-monitor/internal/adapter/http"
	"github.com/couchcryptid/tempest-monitor/internal/adapter/influx"
	kafkaadapter "github.com/couchcryptid/tempest-monitor/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/tempest-monitor/internal/adapter/mqtt"
	"github.com/couchcryptid/tempest-monitor/internal/adapter/statefile"
	"github.com/couchcryptid/tempest-monitor/internal/adapter/udp"
	"github.com/couchcryptid/tempest-monitor/internal/adapter/webhook"
	"github.com/couchcryptid/tempest-monitor/internal/config"
	"github.com/couchcryptid/tempest-monitor/internal/domain"
	"github.com/couchcryptid/tempest-monitor/internal/notify"
	"github.com/couchcryptid/tempest-monitor/internal/observability"
	"github.com/couchcryptid/tempest-monitor/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	sinkFile, err := config.LoadSinkFile(cfg.AlertConfigFile)
	if err != nil {
		logger.Error("failed to load alert config", "path", cfg.AlertConfigFile, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fanout := notify.NewFanout(logger, metrics)
	var closers []func() error

	if sinkFile.WebhookEnabled() {
		slack, err := webhook.NewSlack(sinkFile.SlackHookURL,
			webhook.WithChannel(sinkFile.SlackChannel),
			webhook.WithIdentity(sinkFile.SlackUsername, sinkFile.SlackIcon),
		)
		if err != nil {
			logger.Error("invalid webhook config", "error", err)
			os.Exit(1)
		}
		fanout.Add("webhook", slack)
	}

	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaAlertTopic, logger)
		fanout.Add("kafka", writer)
		closers = append(closers, writer.Close)
	}

	if cfg.MQTTBroker != "" {
		pub, err := mqttadapter.Connect(mqttadapter.Config{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, logger)
		if err != nil {
			logger.Warn("mqtt sink disabled", "error", err)
		} else {
			fanout.Add("mqtt", pub)
			closers = append(closers, pub.Close)
		}
	}

	opts := pipeline.Options{
		OfflineTimeout: cfg.OfflineTimeout,
		OfflineGrace:   cfg.OfflineGrace,
		SweepInterval:  cfg.OfflineSweepInterval,
		SaveInterval:   cfg.StateSaveInterval,
	}
	if cfg.InfluxURL != "" {
		tel, err := influx.Connect(ctx, influx.Config{
			URL:    cfg.InfluxURL,
			Token:  cfg.InfluxToken,
			Org:    cfg.InfluxOrg,
			Bucket: cfg.InfluxBucket,
		}, logger, metrics)
		if err != nil {
			logger.Warn("influx telemetry disabled", "error", err)
		} else {
			opts.Telemetry = tel
			closers = append(closers, tel.Close)
		}
	}
	logger.Info("notification sinks configured", "sinks", fanout.Sinks())

	listener, err := udp.Listen(ctx, cfg.UDPAddr, cfg.UDPBufferSize, cfg.UDPReadTimeout, logger)
	if err != nil {
		logger.Error("failed to bind udp", "error", err)
		os.Exit(1)
	}

	store := statefile.New(cfg.StateFile)
	m := pipeline.New(listener, fanout, store, logger, metrics, opts)
	m.Restore()

	srv := httpadapter.NewServer(cfg.HTTPAddr, m, m, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	m.Announce(ctx, "WeatherFlow Monitor Starting", domain.SeverityOK)

	// Start monitor loop.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := m.Run(ctx); err != nil {
			logger.Error("monitor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := listener.Close(); err != nil {
		logger.Error("udp listener close error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("monitor loop did not stop before shutdown timeout")
	}

	if err := m.Save(); err != nil {
		logger.Error("final status save failed", "error", err)
	}
	m.Announce(shutdownCtx, "WeatherFlow Monitor Stopping", domain.SeverityWarning)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("sink close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
