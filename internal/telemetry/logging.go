package telemetry

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ParseLevel разбирает LOG_LEVEL (DEBUG, INFO, WARN, ERROR, регистр не важен).
// Пустое или неизвестное значение — INFO.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger создаёт логгер узла поверх w.
// format "text" — человекочитаемый вывод, иначе JSON.
func NewLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetupLogger инициализирует глобальный логгер из LOG_LEVEL и LOG_FORMAT.
func SetupLogger() *slog.Logger {
	logger := NewLogger(os.Stdout, ParseLevel(os.Getenv("LOG_LEVEL")), os.Getenv("LOG_FORMAT"))
	slog.SetDefault(logger)
	return logger
}

// WithNode помечает записи ключом узла: в пуле несколько worker'ов пишут в один поток логов.
func WithNode(logger *slog.Logger, identity string) *slog.Logger {
	return logger.With("node", identity)
}

// WithQueue возвращает логгер с добавленным queue.
func WithQueue(logger *slog.Logger, queue string) *slog.Logger {
	return logger.With("queue", queue)
}

// WithSlot возвращает логгер с добавленным slot.
func WithSlot(logger *slog.Logger, slot uint64) *slog.Logger {
	return logger.With("slot", slot)
}

type loggerKey struct{}

// WithLogger кладёт логгер запроса в контекст.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext достаёт логгер запроса; если его нет — глобальный.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}
