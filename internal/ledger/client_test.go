package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Cronos/internal/domain"
)

type fakeRPC struct {
	mu        sync.Mutex
	accounts  map[solana.PublicKey][]byte
	blockhash solana.Hash
	sendErr   error
	sent      []*solana.Transaction

	accountCalls atomic.Int32
	release      chan struct{} // если не nil, чтение аккаунта ждёт закрытия
}

func newFakeRPC() *fakeRPC {
	return &fakeRPC{accounts: make(map[solana.PublicKey][]byte)}
}

func (f *fakeRPC) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	f.accountCalls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{Data: rpc.DataBytesOrJSONFromBytes(data)},
	}, nil
}

func (f *fakeRPC) GetLatestBlockhash(context.Context, rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: f.blockhash},
	}, nil
}

func (f *fakeRPC) SendTransactionWithOpts(_ context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func clockSysvar(slot uint64, ts int64) []byte {
	data := make([]byte, 40)
	binary.LittleEndian.PutUint64(data[0:8], slot)
	binary.LittleEndian.PutUint64(data[32:40], uint64(ts))
	return data
}

func newTestClient(f *fakeRPC) *Client {
	return New(Config{RPC: f, RateLimit: 1000, Burst: 100})
}

func TestClient_GetQueue(t *testing.T) {
	f := newFakeRPC()
	key := solana.NewWallet().PublicKey()
	execAt := int64(1000)
	data, err := domain.MarshalQueue(&domain.Queue{ExecAt: &execAt, Status: domain.Processing(2), TaskCount: 3})
	require.NoError(t, err)
	f.accounts[key] = data

	q, err := newTestClient(f).GetQueue(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, q.ExecAt)
	assert.Equal(t, int64(1000), *q.ExecAt)
	assert.Equal(t, domain.Processing(2), q.Status)
}

func TestClient_AccountNotFound(t *testing.T) {
	_, err := newTestClient(newFakeRPC()).GetTask(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestClient_WrongAccountType(t *testing.T) {
	f := newFakeRPC()
	key := solana.NewWallet().PublicKey()
	data, err := domain.MarshalPool(&domain.Pool{})
	require.NoError(t, err)
	f.accounts[key] = data

	_, err = newTestClient(f).GetQueue(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrDiscriminatorMismatch)
}

func TestClient_GetPool(t *testing.T) {
	f := newFakeRPC()
	key, me := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	data, err := domain.MarshalPool(&domain.Pool{Delegates: []solana.PublicKey{me}})
	require.NoError(t, err)
	f.accounts[key] = data

	pool, err := newTestClient(f).GetPool(context.Background(), key)
	require.NoError(t, err)
	assert.NotNil(t, pool.PositionOf(me))
}

func TestClient_GetClock(t *testing.T) {
	f := newFakeRPC()
	f.accounts[solana.SysVarClockPubkey] = clockSysvar(77, 1_700_000_000)

	clock, err := newTestClient(f).GetClock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.Clock{Slot: 77, UnixTimestamp: 1_700_000_000}, *clock)
}

func TestClient_GetClockSharedBetweenCallers(t *testing.T) {
	f := newFakeRPC()
	f.accounts[solana.SysVarClockPubkey] = clockSysvar(1, 100)
	f.release = make(chan struct{})
	c := newTestClient(f)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock, err := c.GetClock(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, int64(100), clock.UnixTimestamp)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(f.release)
	wg.Wait()

	assert.Equal(t, int32(1), f.accountCalls.Load())
}

func TestClient_GetClockSurvivesFirstCallerCancel(t *testing.T) {
	f := newFakeRPC()
	f.accounts[solana.SysVarClockPubkey] = clockSysvar(1, 100)
	f.release = make(chan struct{})
	c := newTestClient(f)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.GetClock(firstCtx)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return f.accountCalls.Load() == 1 }, time.Second, 5*time.Millisecond)

	second := make(chan *domain.Clock, 1)
	go func() {
		clock, err := c.GetClock(context.Background())
		assert.NoError(t, err)
		second <- clock
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting")
	}

	close(f.release)
	select {
	case clock := <-second:
		require.NotNil(t, clock)
		assert.Equal(t, int64(100), clock.UnixTimestamp)
	case <-time.After(time.Second):
		t.Fatal("second caller did not get the shared clock")
	}
}

func TestClient_GetLatestBlockhash(t *testing.T) {
	f := newFakeRPC()
	f.blockhash = solana.Hash(solana.NewWallet().PublicKey())

	hash, err := newTestClient(f).GetLatestBlockhash(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.blockhash, hash)
}

func TestClient_Submit(t *testing.T) {
	f := newFakeRPC()
	signer := solana.NewWallet().PrivateKey
	payer := signer.PublicKey()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{solana.NewInstruction(
			solana.NewWallet().PublicKey(),
			solana.AccountMetaSlice{solana.NewAccountMeta(payer, true, true)},
			[]byte{1},
		)},
		solana.Hash{},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &signer
		}
		return nil
	})
	require.NoError(t, err)

	c := newTestClient(f)
	sig, err := c.Submit(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)
	assert.Len(t, f.sent, 1)

	f.sendErr = errors.New("blockhash not found")
	_, err = c.Submit(context.Background(), tx)
	assert.ErrorContains(t, err, "blockhash not found")
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	c := New(Config{RPC: newFakeRPC(), RateLimit: 0.001, Burst: 1})

	// первый запрос съедает burst
	_, _ = c.GetLatestBlockhash(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.GetLatestBlockhash(ctx)
	assert.Error(t, err)
}
