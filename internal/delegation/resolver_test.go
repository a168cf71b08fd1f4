package delegation

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/Cronos/internal/domain"
)

func assigned(pos uint64) domain.PoolPosition {
	return domain.PoolPosition{CurrentPosition: &pos}
}

func TestMayAct(t *testing.T) {
	tests := []struct {
		name string
		pos  domain.PoolPosition
		now  int64
		due  int64
		want bool
	}{
		{"delegate before due", assigned(0), 900, 1000, true},
		{"delegate inside grace", assigned(3), 1005, 1000, true},
		{"non-delegate inside grace", domain.PoolPosition{}, 1005, 1000, false},
		{"non-delegate just before grace ends", domain.PoolPosition{}, 1009, 1000, false},
		{"non-delegate at grace boundary", domain.PoolPosition{}, 1010, 1000, true},
		{"non-delegate after grace", domain.PoolPosition{}, 2000, 1000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MayAct(tt.pos, tt.now, tt.due, DefaultGracePeriod))
		})
	}
}

type fakePoolReader struct {
	pool *domain.Pool
	err  error
}

func (f *fakePoolReader) GetPool(context.Context, solana.PublicKey) (*domain.Pool, error) {
	return f.pool, f.err
}

func TestRefresher_Refresh(t *testing.T) {
	me := solana.NewWallet().PublicKey()
	other := solana.NewWallet().PublicKey()
	reader := &fakePoolReader{pool: &domain.Pool{Delegates: []solana.PublicKey{other, me}}}

	r := NewRefresher(RefresherConfig{Reader: reader, Identity: me})
	r.Refresh(context.Background())

	pos := r.Positions().Get()
	require.True(t, pos.IsDelegate())
	assert.Equal(t, uint64(1), *pos.CurrentPosition)
	assert.Len(t, pos.Workers, 2)

	// Узел выбыл из пула
	reader.pool = &domain.Pool{Delegates: []solana.PublicKey{other}}
	r.Refresh(context.Background())
	assert.False(t, r.Positions().Get().IsDelegate())
}

func TestRefresher_KeepsPositionOnError(t *testing.T) {
	me := solana.NewWallet().PublicKey()
	reader := &fakePoolReader{pool: &domain.Pool{Delegates: []solana.PublicKey{me}}}

	r := NewRefresher(RefresherConfig{Reader: reader, Identity: me})
	r.Refresh(context.Background())
	require.True(t, r.Positions().Get().IsDelegate())

	reader.err = errors.New("rpc unavailable")
	r.Refresh(context.Background())
	assert.True(t, r.Positions().Get().IsDelegate())
}
