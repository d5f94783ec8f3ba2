package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/savegress/vitalink/internal/alerts"
	"github.com/savegress/vitalink/internal/api"
	"github.com/savegress/vitalink/internal/ble"
	"github.com/savegress/vitalink/internal/config"
	"github.com/savegress/vitalink/internal/events"
	"github.com/savegress/vitalink/internal/readings"
	"github.com/savegress/vitalink/internal/session"
	"github.com/savegress/vitalink/pkg/models"
)

func main() {
	// Load configuration
	var cfg *config.Config
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			logrus.WithError(err).Fatal("failed to load config")
		}
	} else {
		cfg = config.LoadFromEnv()
	}

	if level, err := logrus.ParseLevel(cfg.Server.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	logrus.WithField("environment", cfg.Server.Environment).
		Info("starting VitaLink health monitor gateway")

	// BLE central
	central := ble.NewTinygoCentral(cfg.Bluetooth.ScanTimeout)

	// Device session
	sess := session.New(central, cfg)

	// Reading history
	store := readings.NewStore(cfg.History.Size)

	// Vitals alerting
	alertsEngine := alerts.NewEngine(&cfg.Alerts)
	alertsEngine.AddNotifier(alerts.NewLogNotifier())
	if cfg.Alerts.Webhook.URL != "" {
		alertsEngine.AddNotifier(alerts.NewWebhookNotifier(cfg.Alerts.Webhook))
		logrus.Info("webhook notifier configured")
	}

	// Live stream hub
	hub := api.NewHub()
	go hub.Run()

	alertsEngine.SetAlertCallback(func(alert *models.VitalAlert) {
		hub.BroadcastAlert(alert)
	})

	// Fan readings out to history, alerting and the stream
	for _, kind := range models.AllKinds {
		sess.On(string(kind), func(payload interface{}) {
			reading, ok := payload.(models.Reading)
			if !ok {
				return
			}
			store.Add(reading)
			alertsEngine.Process(reading)
			hub.BroadcastReading(reading)
		})
	}

	// Mirror session lifecycle events onto the stream
	for _, event := range []string{
		events.Disconnected,
		events.MeasurementStarted,
		events.MeasurementCompleted,
		events.ManualEntryRequired,
	} {
		event := event
		sess.On(event, func(payload interface{}) {
			hub.BroadcastEvent(event, payload)
		})
	}

	// HTTP server
	server := api.NewServer(sess, store, alertsEngine, hub)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:    addr,
		Handler: server.Handler(),
	}

	go func() {
		logrus.WithField("addr", addr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logrus.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Warn("HTTP server shutdown")
	}

	sess.Disconnect()
	hub.Stop()

	logrus.Info("VitaLink stopped")
}
