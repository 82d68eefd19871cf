package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veristack/eventplane/internal/api"
	"github.com/veristack/eventplane/internal/bgtask"
	"github.com/veristack/eventplane/internal/config"
	"github.com/veristack/eventplane/internal/dispatcher"
	"github.com/veristack/eventplane/internal/event"
	"github.com/veristack/eventplane/internal/hub"
	"github.com/veristack/eventplane/internal/logging"
	"github.com/veristack/eventplane/internal/mq"
	"github.com/veristack/eventplane/internal/streamstore"
)

const shutdownTimeout = 30 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	loadEnv()
	applyFlagOverrides()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	rdb := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.RedisAddr},
		DB:       cfg.RedisDB,
		Password: cfg.RedisPassword,
	})
	defer func() { _ = rdb.Close() }()

	store := streamstore.New(streamstore.NewGoRedisClient(rdb), logger.Named("streamstore"))
	queue := mq.NewQueue(store, mq.Config{
		StreamKey:             cfg.StreamKey,
		GroupName:             cfg.GroupName,
		Consumer:              mq.ConsumerID(cfg.NodeID, mq.ProcessIndex()),
		BlockTimeout:          cfg.BlockTimeout,
		AutoclaimInterval:     cfg.AutoclaimInterval,
		AutoclaimIdleTimeout:  cfg.AutoclaimIdleTimeout,
		ReconnectPollInterval: cfg.ReconnectPollInterval,
		MaxLen:                cfg.StreamMaxLen,
	}, logger.Named("mq"))

	disp := dispatcher.New(queue, dispatcher.Config{GracePeriod: cfg.GracePeriod}, logger.Named("dispatcher"))
	producer := dispatcher.NewProducer(queue, cfg.Source)
	eventHub := hub.New(logger.Named("hub"))
	bgtasks := bgtask.NewManager(store, producer, logger.Named("bgtask"))

	// Every decodable broadcast event feeds the hub so SSE subscribers see
	// the stream for their alias.
	for _, name := range event.Names() {
		disp.Subscribe(name, func(ctx context.Context, source string, ev event.Event) error {
			eventHub.Propagate(ev)
			return nil
		})
	}
	disp.Start()

	apiServer := api.New(cfg, eventHub, bgtasks, queue, logger.Named("api"))
	apiErr := make(chan error, 1)
	go func() { apiErr <- apiServer.Start() }()

	logger.Info("event plane started",
		zap.String("redis_addr", cfg.RedisAddr),
		zap.String("stream", cfg.StreamKey),
		zap.String("group", cfg.GroupName),
		zap.String("listen_addr", cfg.ListenAddr))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-apiErr:
		if err != nil {
			logger.Error("api server failed", zap.Error(err))
		}
	}

	// Shutdown order matters: the API stops accepting subscribers first,
	// cancelled bgtasks still need an open producer and queue to emit their
	// terminal events, and the queue closes last.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiServer.Shutdown(ctx); err != nil {
		logger.Warn("api shutdown incomplete", zap.Error(err))
	}
	if err := bgtasks.Shutdown(ctx); err != nil {
		logger.Warn("bgtask shutdown incomplete", zap.Error(err))
	}
	producer.Close()
	disp.Close()
	eventHub.Shutdown()
	queue.Close()

	logger.Info("event plane stopped")
	return nil
}

func applyFlagOverrides() {
	if listenAddr != "" {
		_ = os.Setenv("EVENTPLANE_LISTEN_ADDR", listenAddr)
	}
	if redisAddr != "" {
		_ = os.Setenv("EVENTPLANE_REDIS_ADDR", redisAddr)
	}
	if logLevel != "" {
		_ = os.Setenv("EVENTPLANE_LOG_LEVEL", logLevel)
	}
}
