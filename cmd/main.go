package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"water_monitor/internal/broadcast"
	"water_monitor/internal/handlers"
	"water_monitor/internal/logger"
	"water_monitor/internal/mailer"
	"water_monitor/internal/repository"
	"water_monitor/internal/repository/db"
	"water_monitor/internal/server"
	"water_monitor/internal/service"
	"water_monitor/internal/source"

	"github.com/spf13/viper"
)

func main() {
	cfg, err := loadConfig(viper.New(), "configs", ".")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level)

	// open DB
	conn, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	hub := broadcast.NewHub(cfg.Broadcast.ClientBuffer, log.With("component", "hub"))
	publisher := newPublisher(cfg, hub, log)
	mail := newMailer(cfg, log)

	repos := repository.NewRepository(conn)
	engine := service.NewEngine(repos, publisher, mail, service.Config{
		AlertCooldown: cfg.Alerts.Cooldown,
		IngestQueue:   cfg.Ingest.QueueSize,
		EmailQueue:    cfg.Email.QueueSize,
		Auth:          service.AuthConfig{SigningKey: cfg.Auth.SigningKey, TokenTTL: cfg.Auth.TokenTTL},
	}, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Bootstrap(ctx); err != nil {
		log.Fatalw("failed to bootstrap engine", "err", err)
	}

	var wg sync.WaitGroup
	startWorkers(ctx, &wg, cfg, engine, log)

	apiHandler := handlers.NewHandler(engine.Service, hub, log.With("component", "http"))

	// start HTTP server
	srv := server.New(server.Config{WriteTimeout: cfg.HTTP.WriteTimeout})
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, cfg.HTTP, log)
	wg.Wait()
}

// openDB initializes the SQLite database using configuration.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "water_monitor.db")
		path = "water_monitor.db"
	}
	return db.InitDB(path)
}

// newPublisher returns the hub, or a fan-out to the hub and Redis when enabled.
func newPublisher(cfg *Config, hub *broadcast.Hub, log *logger.Logger) service.Broadcaster {
	if !cfg.Redis.Enabled {
		return hub
	}
	client := broadcast.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warnw("redis_unreachable_at_startup", "addr", cfg.Redis.Addr, "err", err)
	}
	log.Infow("redis_mirror_enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	return broadcast.Fanout{hub, broadcast.NewRedisSink(client, cfg.Redis.Channel, cfg.Redis.Timeout, log.With("component", "redis"))}
}

// newMailer returns nil when e-mail is disabled or misconfigured.
func newMailer(cfg *Config, log *logger.Logger) service.EmailGateway {
	if !cfg.Email.Enabled {
		return nil
	}
	m, err := mailer.New(mailer.Config{
		Host:     cfg.Email.Host,
		Port:     cfg.Email.Port,
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		Timeout:  cfg.Email.Timeout,
	}, log.With("component", "mailer"))
	if err != nil {
		log.Errorw("mailer_disabled", "err", err)
		return nil
	}
	return m
}

// startWorkers launches the background loops; each exits when ctx is canceled.
func startWorkers(ctx context.Context, wg *sync.WaitGroup, cfg *Config, engine *service.Engine, log *logger.Logger) {
	goWorker := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
			log.Infow("worker_stopped", "worker", name)
		}()
	}

	goWorker("dispatcher", func() { engine.Dispatcher.Run(ctx) })
	goWorker("queue", func() { engine.Queue.Run(ctx) })

	if cfg.Simulator.Enabled {
		goWorker("simulator", func() { engine.Simulator.Run(ctx, cfg.Simulator.Tick) })
	}

	if cfg.Kafka.Enabled {
		reader, err := source.NewKafkaReader(source.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		if err != nil {
			log.Fatalw("failed to create kafka reader", "err", err)
		}
		consumer := source.NewKafkaConsumer(reader, engine.Queue, log.With("component", "kafka"))
		goWorker("kafka", func() {
			if err := consumer.Run(ctx); err != nil {
				log.Errorw("kafka_consumer_failed", "err", err)
			}
		})
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

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, cfg HTTPConfig, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
