package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Ledger is the authoritative in-memory record of cash, open positions and
// realized P&L. All mutations and snapshot reads are serialized through a
// single mutex; callers must never hold it across a suspension point (the
// lifecycle manager and monitor call in only after their exchange I/O is
// done).
//
// Invariant: cash + Σ cost_basis − Σ realized == initial cash, for every
// sequence of fills. Any violation corrupts the ledger and halts new order
// placement upstream.
type Ledger struct {
	mu        sync.Mutex
	cash      int64
	baseline  int64 // initial total value, sizing base when compounding is off
	realized  int64
	positions map[string]*domain.Position // ticker → open/closing position
	archive   []domain.Position
	corrupted bool
}

// NewLedger creates a ledger seeded with the starting cash balance in cents.
func NewLedger(initialCash int64) *Ledger {
	return &Ledger{
		cash:      initialCash,
		baseline:  initialCash,
		positions: make(map[string]*domain.Position),
	}
}

// Baseline returns the fixed sizing baseline captured at start.
func (l *Ledger) Baseline() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.baseline
}

// Corrupted reports whether a bookkeeping invariant has been violated.
func (l *Ledger) Corrupted() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.corrupted
}

// Snapshot returns a consistent view of the portfolio.
func (l *Ledger) Snapshot() domain.PortfolioSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	var basis int64
	for _, p := range l.positions {
		basis += p.CostBasis()
	}
	return domain.PortfolioSnapshot{
		Cash:          l.cash,
		CostBasis:     basis,
		RealizedPnL:   l.realized,
		OpenPositions: len(l.positions),
		TakenAt:       time.Now().UTC(),
	}
}

// HasExposure reports whether an OPEN or CLOSING position exists for ticker.
func (l *Ledger) HasExposure(ticker string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.positions[ticker]
	return ok
}

// Position returns a copy of the position for ticker, if any.
func (l *Ledger) Position(ticker string) (domain.Position, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.positions[ticker]
	if !ok {
		return domain.Position{}, false
	}
	return *p, true
}

// OpenPositions returns copies of all OPEN positions (not CLOSING ones —
// those already have an exit in flight). Sorted by ticker for determinism.
func (l *Ledger) OpenPositions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Position, 0, len(l.positions))
	for _, p := range l.positions {
		if p.Status == domain.PositionOpen {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

// ApplyFill reconciles a terminal entry (buy) order: debits cash by the
// fill cost and creates the position. Applied exactly once per order by the
// lifecycle manager.
func (l *Ledger) ApplyFill(order domain.Order) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if order.Action != domain.ActionBuy {
		return l.violation("ApplyFill on non-buy order %s", order.ClientID)
	}
	if order.FilledQuantity <= 0 {
		return nil // nothing executed, nothing to book
	}
	if order.FilledQuantity > order.Quantity {
		return l.violation("order %s filled %d > requested %d", order.ClientID, order.FilledQuantity, order.Quantity)
	}
	if _, exists := l.positions[order.Ticker]; exists {
		return l.violation("second position for market %s", order.Ticker)
	}

	cost := order.FillCost()
	if cost > l.cash {
		return l.violation("fill cost %d exceeds cash %d on %s", cost, l.cash, order.Ticker)
	}

	l.cash -= cost
	l.positions[order.Ticker] = &domain.Position{
		Ticker:        order.Ticker,
		Side:          order.Side,
		Quantity:      order.FilledQuantity,
		AvgEntryPrice: order.AvgFillPrice,
		Status:        domain.PositionOpen,
		EnteredAt:     order.ClosedAt,
	}
	return nil
}

// MarkClosing transitions a position OPEN → CLOSING before its exit order
// is placed, so no second exit (or entry) targets the same market.
func (l *Ledger) MarkClosing(ticker string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[ticker]
	if !ok {
		return fmt.Errorf("ledger.MarkClosing: no position for %s", ticker)
	}
	if p.Status != domain.PositionOpen {
		return fmt.Errorf("ledger.MarkClosing: %s is %s, not OPEN", ticker, p.Status)
	}
	p.Status = domain.PositionClosing
	return nil
}

// ReleaseClosing reverts CLOSING → OPEN when an exit order terminated with
// zero fill; the monitor re-evaluates on its next tick.
func (l *Ledger) ReleaseClosing(ticker string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if p, ok := l.positions[ticker]; ok && p.Status == domain.PositionClosing {
		p.Status = domain.PositionOpen
	}
}

// ApplyClose reconciles a terminal exit (sell) order: credits cash with the
// exit proceeds, realizes P&L on the closed quantity, and marks the
// position CLOSED when nothing remains. A partial close leaves the residual
// quantity OPEN. Returns the realized P&L in cents.
func (l *Ledger) ApplyClose(order domain.Order) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if order.Action != domain.ActionSell {
		return 0, l.violation("ApplyClose on non-sell order %s", order.ClientID)
	}
	p, ok := l.positions[order.Ticker]
	if !ok {
		return 0, l.violation("close fill for unknown position %s", order.Ticker)
	}
	if order.FilledQuantity <= 0 {
		// Exit expired unfilled: position stays, back to OPEN.
		p.Status = domain.PositionOpen
		return 0, nil
	}
	if order.FilledQuantity > p.Quantity {
		return 0, l.violation("close of %d exceeds held %d on %s", order.FilledQuantity, p.Quantity, order.Ticker)
	}

	pnl := (order.AvgFillPrice - p.AvgEntryPrice) * order.FilledQuantity
	l.cash += order.AvgFillPrice * order.FilledQuantity
	l.realized += pnl
	p.RealizedPnL += pnl
	p.Quantity -= order.FilledQuantity

	if p.Quantity == 0 {
		p.Status = domain.PositionClosed
		p.ClosedAt = order.ClosedAt
		l.archive = append(l.archive, *p)
		delete(l.positions, order.Ticker)
	} else {
		p.Status = domain.PositionOpen
	}
	return pnl, nil
}

// ClosedPositions returns the archive of fully closed positions.
func (l *Ledger) ClosedPositions() []domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Position, len(l.archive))
	copy(out, l.archive)
	return out
}

// violation records corruption and returns a wrapped invariant error.
// Callers must hold l.mu.
func (l *Ledger) violation(format string, args ...any) error {
	l.corrupted = true
	return fmt.Errorf("%w: %s", domain.ErrLedgerInvariant, fmt.Sprintf(format, args...))
}
