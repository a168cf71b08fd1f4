package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/shaiso/Cronos/internal/domain"
)

// Default configuration values.
const (
	defaultRateLimit    = 20
	defaultBurst        = 5
	defaultClockTimeout = 5 * time.Second
)

// RPC — методы RPC-клиента, которые использует Client.
// *rpc.Client удовлетворяет этому интерфейсу.
type RPC interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
}

// Client читает состояние леджера и отправляет транзакции.
type Client struct {
	rpc        RPC
	limiter    *rate.Limiter
	clockGroup   singleflight.Group
	clockTimeout time.Duration
	commitment   rpc.CommitmentType
	logger     *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// URL RPC-узла (используется, если RPC == nil)
	URL string

	// RPC — готовый клиент (опционально)
	RPC RPC

	RateLimit  float64            // запросов в секунду (default: 20)
	Burst      int                // default: 5
	Commitment rpc.CommitmentType // default: confirmed

	// ClockTimeout ограничивает общее на всех чтение часов (default: 5s)
	ClockTimeout time.Duration

	Logger *slog.Logger
}

// New создаёт новый Client.
func New(cfg Config) *Client {
	client := cfg.RPC
	if client == nil {
		client = rpc.New(cfg.URL)
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	commitment := cfg.Commitment
	if commitment == "" {
		commitment = rpc.CommitmentConfirmed
	}

	clockTimeout := cfg.ClockTimeout
	if clockTimeout <= 0 {
		clockTimeout = defaultClockTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		rpc:          client,
		limiter:      rate.NewLimiter(rate.Limit(limit), burst),
		clockTimeout: clockTimeout,
		commitment:   commitment,
		logger:       logger,
	}
}

// GetQueue читает и декодирует аккаунт очереди.
func (c *Client) GetQueue(ctx context.Context, queue solana.PublicKey) (*domain.Queue, error) {
	data, err := c.account(ctx, queue)
	if err != nil {
		return nil, err
	}
	return domain.DecodeQueue(data)
}

// GetTask читает и декодирует аккаунт task.
func (c *Client) GetTask(ctx context.Context, task solana.PublicKey) (*domain.Task, error) {
	data, err := c.account(ctx, task)
	if err != nil {
		return nil, err
	}
	return domain.DecodeTask(data)
}

// GetPool читает и декодирует пул делегатов.
func (c *Client) GetPool(ctx context.Context, pool solana.PublicKey) (*domain.Pool, error) {
	data, err := c.account(ctx, pool)
	if err != nil {
		return nil, err
	}
	return domain.DecodePool(data)
}

// GetClock читает sysvar Clock. Одновременные вызовы делят один запрос.
//
// Общий запрос не зависит от отмены ctx конкретного вызывающего:
// тот, кто перестал ждать, получает ctx.Err(), остальные — результат.
func (c *Client) GetClock(ctx context.Context) (*domain.Clock, error) {
	ch := c.clockGroup.DoChan("clock", func() (any, error) {
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.clockTimeout)
		defer cancel()

		data, err := c.account(readCtx, solana.SysVarClockPubkey)
		if err != nil {
			return nil, err
		}
		return domain.DecodeClock(data)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		c.logger.Debug("clock read shared between callers")
	}
	clock := *res.Val.(*domain.Clock)
	return &clock, nil
}

// GetLatestBlockhash возвращает последний blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Hash{}, err
	}

	res, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, fmt.Errorf("get latest blockhash: %w", ErrEmptyResponse)
	}
	return res.Value.Blockhash, nil
}

// Submit отправляет подписанную транзакцию.
//
// Включение в блок не гарантируется; повторной отправки нет.
func (c *Client) Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return solana.Signature{}, err
	}

	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.commitment,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("send transaction: %w", err)
	}
	return sig, nil
}

func (c *Client) account(ctx context.Context, key solana.PublicKey) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	res, err := c.rpc.GetAccountInfoWithOpts(ctx, key, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
		}
		return nil, fmt.Errorf("get account %s: %w", key, err)
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, key)
	}
	return res.Value.Data.GetBinary(), nil
}

// LoadKeypair читает ключ узла из JSON-файла формата solana-keygen.
func LoadKeypair(path string) (solana.PrivateKey, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", path, err)
	}
	return key, nil
}
