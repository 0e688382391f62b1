// Command supervisor bridges the irrigation controller to operators: it owns
// the serial link (or spawns a host controller), journals everything the
// controller reports, forwards telemetry to brokers and serves the HTTP API.
//
// @title                       Irrigation supervisor API
// @version                     1.0
// @description                 Pump control, live telemetry and journal for a soil-moisture irrigation controller.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"database/sql"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "irrigation_controller/docs"
	"irrigation_controller/internal/broker"
	"irrigation_controller/internal/config"
	"irrigation_controller/internal/handlers"
	"irrigation_controller/internal/link"
	"irrigation_controller/internal/logger"
	"irrigation_controller/internal/metrics"
	"irrigation_controller/internal/repository"
	"irrigation_controller/internal/repository/db"
	"irrigation_controller/internal/server"
	"irrigation_controller/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load(os.Getenv(config.EnvPrefix + "_CONFIG"))
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("invalid configuration", "err", err)
	}
	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()
	sup := cfg.Supervisor

	conn, err := db.InitDB(sup.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", sup.DB.Path)
	}
	defer closeDB(conn, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport, err := openTransport(ctx, sup)
	if err != nil {
		log.Fatalw("failed to reach controller", "err", err)
	}
	defer func() { _ = transport.Close() }()

	ln := link.New(transport, sup.CommandTimeout, sup.StaleAfter, log.Named("link"))
	go func() {
		if err := ln.Run(ctx); err != nil {
			log.Errorw("controller_link_stopped", "err", err)
		}
	}()

	m := metrics.New()
	sinks := openSinks(sup, m, log)
	defer func() { _ = sinks.Close() }()

	services, err := service.NewService(repository.NewRepository(conn), ln, service.Deps{
		DeviceID:   sup.DeviceID,
		SigningKey: sup.Auth.SigningKey,
		TokenTTL:   sup.Auth.TokenTTL,
		CheckEvery: cfg.Controller.TickPeriod,
		Sinks:      sinks,
		Log:        log.Named("service"),
	})
	if err != nil {
		log.Fatalw("failed to build services", "err", err)
	}
	go services.Recorder.Run(ctx)

	apiHandler := handlers.NewHandler(services, log.Named("http"), handlers.RateLimit{
		PerSec: sup.RateLimit.PerSec,
		Burst:  sup.RateLimit.Burst,
	}).WithMetrics(m)

	srv := server.New()
	runHTTPServer(srv, sup.Port, apiHandler, log)
	log.Infow("supervisor_started", "port", sup.Port, "device_id", sup.DeviceID, "serial", sup.Serial.Port)

	waitForShutdown(cancel, srv, log)
}

// openTransport prefers the serial port; without one it spawns the host controller.
func openTransport(ctx context.Context, sup config.SupervisorConfig) (io.ReadWriteCloser, error) {
	if sup.Serial.Port != "" {
		return link.OpenSerial(sup.Serial.Port, sup.Serial.Baud)
	}
	return link.StartProcess(ctx, sup.ControllerCmd)
}

// openSinks always includes the metrics gauges. A broker that cannot be
// reached at start-up is logged and skipped; telemetry forwarding is optional.
func openSinks(sup config.SupervisorConfig, m *metrics.Metrics, log *logger.Logger) broker.Fanout {
	sinks := broker.Fanout{m}
	if sup.MQTT.Enabled {
		s, err := broker.NewMQTTSink(broker.MQTTConfig{
			Broker:   sup.MQTT.Broker,
			ClientID: sup.MQTT.ClientID,
			Topic:    sup.MQTT.Topic,
			Username: sup.MQTT.Username,
			Password: sup.MQTT.Password,
		})
		if err != nil {
			log.Warnw("mqtt_sink_disabled", "err", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if sup.Kafka.Enabled {
		sinks = append(sinks, broker.NewKafkaSink(broker.KafkaConfig{
			Brokers: sup.Kafka.Brokers,
			Topic:   sup.Kafka.Topic,
		}))
	}
	return sinks
}

func closeDB(conn *sql.DB, log *logger.Logger) {
	if err := conn.Close(); err != nil {
		log.Errorw("failed to close sqlite", "err", err)
	}
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown blocks until SIGINT/SIGTERM, stops background work and
// drains in-flight requests.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down supervisor...")
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
