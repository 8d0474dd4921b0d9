package throttle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

func TestGate_Acquire_WithinBurst(t *testing.T) {
	g := NewGate(1, 3, 50*time.Millisecond)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, g.Acquire(context.Background()))
	}
	assert.Less(t, time.Since(start), 30*time.Millisecond, "burst permits are immediate")
}

func TestGate_Acquire_WaitsForRefill(t *testing.T) {
	// 100/s with burst 1: the second acquire waits ~10ms for a token.
	g := NewGate(100, 1, time.Second)

	require.NoError(t, g.Acquire(context.Background()))
	start := time.Now()
	require.NoError(t, g.Acquire(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestGate_Acquire_CeilingExceeded(t *testing.T) {
	// 1 req/s with burst 1 and a 20ms ceiling: the second acquire would need
	// to wait ~1s, beyond the ceiling.
	g := NewGate(1, 1, 20*time.Millisecond)

	require.NoError(t, g.Acquire(context.Background()))
	err := g.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateGateTimeout)
}

func TestGate_Acquire_ParentCancellation(t *testing.T) {
	g := NewGate(1, 1, time.Minute)
	require.NoError(t, g.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := g.Acquire(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled, "caller cancellation is not a gate timeout")
	assert.NotErrorIs(t, err, domain.ErrRateGateTimeout)
}

func TestGate_ConcurrentCallers_NoneStarved(t *testing.T) {
	g := NewGate(1000, 1, time.Second)

	var done int32
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			err := g.Acquire(context.Background())
			if err == nil {
				atomic.AddInt32(&done, 1)
			}
			errs <- err
		}()
	}
	for i := 0; i < 10; i++ {
		require.NoError(t, <-errs)
	}
	assert.EqualValues(t, 10, atomic.LoadInt32(&done))
}

// nullExchange counts calls that made it through the gate.
type nullExchange struct {
	calls int32
}

func (n *nullExchange) ListOpenMarkets(context.Context) ([]domain.Market, error) {
	atomic.AddInt32(&n.calls, 1)
	return nil, nil
}
func (n *nullExchange) GetMarket(context.Context, string) (domain.Market, error) {
	atomic.AddInt32(&n.calls, 1)
	return domain.Market{}, nil
}
func (n *nullExchange) GetOrderBook(context.Context, string) (domain.OrderBook, error) {
	atomic.AddInt32(&n.calls, 1)
	return domain.OrderBook{}, nil
}
func (n *nullExchange) SubmitOrder(context.Context, domain.OrderRequest) (domain.OrderState, error) {
	atomic.AddInt32(&n.calls, 1)
	return domain.OrderState{}, nil
}
func (n *nullExchange) GetOrder(context.Context, string) (domain.OrderState, error) {
	atomic.AddInt32(&n.calls, 1)
	return domain.OrderState{}, nil
}
func (n *nullExchange) CancelOrder(context.Context, string) error {
	atomic.AddInt32(&n.calls, 1)
	return nil
}
func (n *nullExchange) GetBalance(context.Context) (int64, error) {
	atomic.AddInt32(&n.calls, 1)
	return 0, nil
}

func TestWrapExchange_GatesEveryCall(t *testing.T) {
	inner := &nullExchange{}
	// Burst of 2 with a tiny ceiling: the third call must fail without
	// reaching the inner exchange.
	ex := WrapExchange(inner, NewGate(0.001, 2, 10*time.Millisecond))
	ctx := context.Background()

	_, err := ex.ListOpenMarkets(ctx)
	require.NoError(t, err)
	_, err = ex.GetMarket(ctx, "KXUSA-A")
	require.NoError(t, err)

	_, err = ex.GetOrderBook(ctx, "KXUSA-A")
	assert.ErrorIs(t, err, domain.ErrRateGateTimeout)
	assert.EqualValues(t, 2, atomic.LoadInt32(&inner.calls), "rejected call never attempted")
}
