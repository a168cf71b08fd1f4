package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Cronos/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS executions (
		id          UUID PRIMARY KEY,
		queue       TEXT        NOT NULL,
		slot        BIGINT      NOT NULL,
		status      TEXT        NOT NULL,
		signature   TEXT,
		first_task  BIGINT      NOT NULL DEFAULT 0,
		task_count  INTEGER     NOT NULL DEFAULT 0,
		error       TEXT,
		created_at  TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS executions_queue_created_idx ON executions (queue, created_at DESC);
	CREATE INDEX IF NOT EXISTS executions_status_created_idx ON executions (status, created_at DESC);
`

const uniqueViolation = "23505"

// ExecutionRepo — история попыток исполнения очередей.
type ExecutionRepo struct {
	pool *pgxpool.Pool
}

// NewExecutionRepo создаёт новый ExecutionRepo.
func NewExecutionRepo(pool *pgxpool.Pool) *ExecutionRepo {
	return &ExecutionRepo{pool: pool}
}

// EnsureSchema создаёт таблицу executions, если её нет.
func (r *ExecutionRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure executions schema: %w", err)
	}
	return nil
}

// Create сохраняет запись.
func (r *ExecutionRepo) Create(ctx context.Context, e *domain.Execution) error {
	query := `
		INSERT INTO executions (id, queue, slot, status, signature, first_task, task_count, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		e.ID,
		e.Queue,
		int64(e.Slot),
		string(e.Status),
		nullString(e.Signature),
		int64(e.FirstTask),
		e.TaskCount,
		nullString(e.Error),
		e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: execution %s", ErrAlreadyExists, e.ID)
		}
		return queryError("insert execution", err)
	}
	return nil
}

// GetByID возвращает запись по ID.
func (r *ExecutionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Execution, error) {
	query := `
		SELECT id, queue, slot, status, signature, first_task, task_count, error, created_at
		FROM executions
		WHERE id = $1
	`
	e, err := scanExecution(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, queryError("get execution", err)
	}
	return e, nil
}

// ExecutionFilter — параметры выборки истории.
type ExecutionFilter struct {
	Queue  string
	Status domain.ExecutionStatus
	Limit  int
	Offset int
}

// List возвращает записи, новые первыми.
func (r *ExecutionRepo) List(ctx context.Context, filter ExecutionFilter) ([]domain.Execution, error) {
	query := `
		SELECT id, queue, slot, status, signature, first_task, task_count, error, created_at
		FROM executions
		WHERE ($1::text IS NULL OR queue = $1)
		  AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query,
		nullString(filter.Queue),
		nullString(string(filter.Status)),
		filter.Limit,
		filter.Offset,
	)
	if err != nil {
		return nil, queryError("list executions", err)
	}
	defer rows.Close()

	var out []domain.Execution
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// scanExecution сканирует строку (pgx.Row или pgx.Rows) в Execution.
func scanExecution(row pgx.Row) (*domain.Execution, error) {
	var (
		e         domain.Execution
		status    string
		slot      int64
		firstTask int64
		signature *string
		execErr   *string
	)

	err := row.Scan(
		&e.ID,
		&e.Queue,
		&slot,
		&status,
		&signature,
		&firstTask,
		&e.TaskCount,
		&execErr,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan execution: %w", err)
	}

	e.Slot = uint64(slot)
	e.FirstTask = uint64(firstTask)
	e.Status = domain.ExecutionStatus(status)
	if signature != nil {
		e.Signature = *signature
	}
	if execErr != nil {
		e.Error = *execErr
	}
	return &e, nil
}

// queryError оборачивает ошибку запроса; таймауты становятся ErrUnavailable.
func queryError(op string, err error) error {
	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
