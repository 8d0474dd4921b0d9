package throttle

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// gatedExchange routes every exchange call through the shared gate, so no
// component can bypass the rate budget.
type gatedExchange struct {
	ex   ports.Exchange
	gate *Gate
}

// WrapExchange decorates an exchange so each call acquires a gate permit
// first. A failed acquisition means the call was never attempted.
func WrapExchange(ex ports.Exchange, gate *Gate) ports.Exchange {
	return &gatedExchange{ex: ex, gate: gate}
}

func (g *gatedExchange) ListOpenMarkets(ctx context.Context) ([]domain.Market, error) {
	if err := g.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	return g.ex.ListOpenMarkets(ctx)
}

func (g *gatedExchange) GetMarket(ctx context.Context, ticker string) (domain.Market, error) {
	if err := g.gate.Acquire(ctx); err != nil {
		return domain.Market{}, err
	}
	return g.ex.GetMarket(ctx, ticker)
}

func (g *gatedExchange) GetOrderBook(ctx context.Context, ticker string) (domain.OrderBook, error) {
	if err := g.gate.Acquire(ctx); err != nil {
		return domain.OrderBook{}, err
	}
	return g.ex.GetOrderBook(ctx, ticker)
}

func (g *gatedExchange) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderState, error) {
	if err := g.gate.Acquire(ctx); err != nil {
		return domain.OrderState{}, err
	}
	return g.ex.SubmitOrder(ctx, req)
}

func (g *gatedExchange) GetOrder(ctx context.Context, exchangeID string) (domain.OrderState, error) {
	if err := g.gate.Acquire(ctx); err != nil {
		return domain.OrderState{}, err
	}
	return g.ex.GetOrder(ctx, exchangeID)
}

func (g *gatedExchange) CancelOrder(ctx context.Context, exchangeID string) error {
	if err := g.gate.Acquire(ctx); err != nil {
		return err
	}
	return g.ex.CancelOrder(ctx, exchangeID)
}

func (g *gatedExchange) GetBalance(ctx context.Context) (int64, error) {
	if err := g.gate.Acquire(ctx); err != nil {
		return 0, err
	}
	return g.ex.GetBalance(ctx)
}
