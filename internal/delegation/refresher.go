package delegation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/shaiso/Cronos/internal/domain"
	"github.com/shaiso/Cronos/internal/telemetry"
)

const defaultRefreshInterval = 30 * time.Second

// PoolReader читает аккаунт пула делегатов.
type PoolReader interface {
	GetPool(ctx context.Context, pool solana.PublicKey) (*domain.Pool, error)
}

// Refresher периодически перечитывает пул и обновляет позицию узла.
type Refresher struct {
	reader    PoolReader
	pool      solana.PublicKey
	identity  solana.PublicKey
	positions *Positions
	interval  time.Duration
	logger    *slog.Logger

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// RefresherConfig — конфигурация Refresher.
type RefresherConfig struct {
	Reader    PoolReader
	Pool      solana.PublicKey // адрес аккаунта пула
	Identity  solana.PublicKey // ключ этого узла
	Positions *Positions
	Interval  time.Duration // default: 30s
	Logger    *slog.Logger
}

// NewRefresher создаёт новый Refresher.
func NewRefresher(cfg RefresherConfig) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	positions := cfg.Positions
	if positions == nil {
		positions = NewPositions()
	}

	return &Refresher{
		reader:    cfg.Reader,
		pool:      cfg.Pool,
		identity:  cfg.Identity,
		positions: positions,
		interval:  interval,
		logger:    logger,
	}
}

// Positions возвращает хранилище позиции.
func (r *Refresher) Positions() *Positions {
	return r.positions
}

// Start запускает фоновое обновление. Первое обновление выполняется сразу.
func (r *Refresher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancelFunc = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(ctx)
	}()
}

// Stop останавливает обновление.
func (r *Refresher) Stop() {
	if r.cancelFunc != nil {
		r.cancelFunc()
	}
	r.wg.Wait()
}

func (r *Refresher) loop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh перечитывает пул один раз.
// При ошибке чтения предыдущая позиция сохраняется.
func (r *Refresher) Refresh(ctx context.Context) {
	pool, err := r.reader.GetPool(ctx, r.pool)
	if err != nil {
		r.logger.Warn("failed to refresh pool position", "pool", r.pool, "error", err)
		return
	}

	prev := r.positions.Get()
	next := domain.PoolPosition{
		CurrentPosition: pool.PositionOf(r.identity),
		Workers:         pool.Delegates,
	}
	r.positions.Set(next)

	if next.IsDelegate() {
		telemetry.IsDelegate.Set(1)
	} else {
		telemetry.IsDelegate.Set(0)
	}

	if prev.IsDelegate() != next.IsDelegate() {
		r.logger.Info("pool position changed",
			"is_delegate", next.IsDelegate(),
			"pool_size", len(next.Workers),
		)
	}
}
