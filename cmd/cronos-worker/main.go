// Cronos Worker — узел планировщика очередей.
//
// Worker:
//   - Получает уведомления леджера из RabbitMQ (слоты, часы, очереди)
//   - Ведёт индексы: сэмплы часов, ожидающие и готовые очереди
//   - Собирает, подписывает и отправляет транзакции исполнения
//   - Пишет историю попыток в PostgreSQL (если доступен)
//
// Несколько worker'ов работают с одним пулом делегатов;
// недолегаты подключаются только после grace period.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Cronos/internal/api"
	"github.com/shaiso/Cronos/internal/config"
	"github.com/shaiso/Cronos/internal/delegation"
	"github.com/shaiso/Cronos/internal/executor"
	"github.com/shaiso/Cronos/internal/index"
	"github.com/shaiso/Cronos/internal/ledger"
	"github.com/shaiso/Cronos/internal/mq"
	"github.com/shaiso/Cronos/internal/observer"
	"github.com/shaiso/Cronos/internal/repo"
	"github.com/shaiso/Cronos/internal/telemetry"
	"github.com/shaiso/Cronos/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting cronos-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	signer, err := ledger.LoadKeypair(cfg.KeypairPath)
	if err != nil {
		logger.Error("failed to load keypair", "error", err)
		os.Exit(1)
	}
	logger = telemetry.WithNode(logger, signer.PublicKey().String())
	logger.Info("node identity loaded")

	// Ledger RPC
	client := ledger.New(ledger.Config{
		URL:       cfg.RPCURL,
		RateLimit: cfg.RPCRateLimit,
		Logger:    logger,
	})

	// История попыток (опционально)
	var (
		store      worker.ExecutionStore
		executions api.ExecutionReader
	)
	pool, err := repo.NewPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Warn("database not available, execution history disabled", "error", err)
	} else {
		defer pool.Close()
		executionRepo := repo.NewExecutionRepo(pool)
		if err := executionRepo.EnsureSchema(ctx); err != nil {
			logger.Warn("failed to ensure schema, execution history disabled", "error", err)
		} else {
			store = executionRepo
			executions = executionRepo
			logger.Info("database connected")
		}
	}

	// RabbitMQ
	var (
		mqConn   *mq.Connection
		reporter worker.Reporter
	)
	mqConn, err = mq.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn, mq.DefaultTopology()); err != nil {
		logger.Error("failed to setup topology", "error", err)
		os.Exit(1)
	}
	reporter = mq.NewPublisher(mqConn, logger)

	// Позиция в пуле делегатов
	refresher := delegation.NewRefresher(delegation.RefresherConfig{
		Reader:   client,
		Pool:     cfg.Pool,
		Identity: signer.PublicKey(),
		Interval: cfg.PoolRefreshInterval,
		Logger:   logger,
	})

	// ClockIndex общий для Observer'а и Builder'а
	clock := index.NewClockIndex()

	builder := executor.New(executor.Config{
		ProgramID:        cfg.ProgramID,
		Signer:           signer,
		Ledger:           client,
		Clock:            clock,
		GracePeriod:      cfg.GracePeriod,
		MaxTasksPerTx:    cfg.MaxTasksPerTx,
		MaxTasksPerBuild: cfg.MaxTasksPerBuild,
		Logger:           logger,
	})

	obs := observer.New(observer.Config{
		Clock:            clock,
		Builder:          builder,
		Positions:        refresher.Positions(),
		ClockReader:      client,
		Lanes:            cfg.Lanes,
		BuildConcurrency: cfg.BuildConcurrency,
		Logger:           logger,
	})

	w := worker.New(worker.Config{
		Observer:      obs,
		Refresher:     refresher,
		Sink:          client,
		Store:         store,
		Reporter:      reporter,
		Conn:          mqConn,
		SweepInterval: cfg.SweepInterval,
		Logger:        logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics + API
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !mqConn.IsConnected() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("rabbitmq disconnected"))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	handler := api.NewHandler(api.Config{
		Executions: executions,
		State:      obs,
		Positions:  refresher.Positions(),
		Logger:     logger,
	})
	handler.RegisterRoutes(mux)

	port := ":" + cfg.Port

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	w.Stop()
	logger.Info("cronos-worker stopped")
}
