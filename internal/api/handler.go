package api

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/shaiso/Cronos/internal/domain"
	"github.com/shaiso/Cronos/internal/index"
	"github.com/shaiso/Cronos/internal/repo"
)

// ExecutionReader — чтение истории попыток.
type ExecutionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error)
	List(ctx context.Context, filter repo.ExecutionFilter) ([]domain.Execution, error)
}

// StateSource — индексы планировщика (Observer).
type StateSource interface {
	Clock() *index.ClockIndex
	Pending() *index.PendingIndex
	Actionable() *index.ActionableSet
	Dropped() uint64
}

// PositionSource — текущая позиция узла в пуле.
type PositionSource interface {
	Get() domain.PoolPosition
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	executions ExecutionReader
	state      StateSource
	positions  PositionSource
	logger     *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Executions ExecutionReader // опционально: без БД история недоступна
	State      StateSource
	Positions  PositionSource // опционально
	Logger     *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		executions: cfg.Executions,
		state:      cfg.State,
		positions:  cfg.Positions,
		logger:     logger,
	}
}
