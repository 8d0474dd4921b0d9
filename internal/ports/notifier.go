package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Notifier receives the outward event stream: terminal orders, closed
// positions, and periodic portfolio reports.
type Notifier interface {
	// OrderTerminal is invoked exactly once per order reaching a terminal state.
	OrderTerminal(ctx context.Context, order domain.Order)

	// TradeClosed is invoked when a position (partially) closes with realized P&L.
	TradeClosed(ctx context.Context, trade domain.Trade)

	// ReportPortfolio renders the current portfolio state.
	ReportPortfolio(ctx context.Context, snap domain.PortfolioSnapshot, positions []domain.Position) error
}
