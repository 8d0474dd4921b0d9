package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Exchange is the single outbound channel to Kalshi. Every call may fail
// with a *domain.TransientError (network/timeout) or a
// *domain.RejectionError (business-level refusal).
type Exchange interface {
	// ListOpenMarkets returns all markets currently open for trading.
	ListOpenMarkets(ctx context.Context) ([]domain.Market, error)

	// GetMarket returns the current snapshot for a single market.
	GetMarket(ctx context.Context, ticker string) (domain.Market, error)

	// GetOrderBook returns the current orderbook for a market.
	GetOrderBook(ctx context.Context, ticker string) (domain.OrderBook, error)

	// SubmitOrder places a limit order and returns the exchange's view of it.
	SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderState, error)

	// GetOrder returns the current status and fill state of an order.
	GetOrder(ctx context.Context, exchangeID string) (domain.OrderState, error)

	// CancelOrder requests cancellation. The exchange may still fill between
	// the request and the cancel taking effect — callers must re-query.
	CancelOrder(ctx context.Context, exchangeID string) error

	// GetBalance returns the available cash balance in cents.
	GetBalance(ctx context.Context) (int64, error)
}
