package domain

import "time"

// PositionStatus is the lifecycle of a position in the ledger.
type PositionStatus string

const (
	PositionOpen    PositionStatus = "OPEN"
	PositionClosing PositionStatus = "CLOSING"
	PositionClosed  PositionStatus = "CLOSED"
)

// Position is an open holding in a market. Exclusively owned by the ledger;
// mutated by fill reconciliation on entry and by close reconciliation on
// exit. Archived once CLOSED.
type Position struct {
	Ticker        string
	Side          Side
	Quantity      int64 // contracts held, never negative
	AvgEntryPrice int64 // cents
	RealizedPnL   int64 // cents, accumulated over (partial) closes
	Status        PositionStatus
	EnteredAt     time.Time
	ClosedAt      time.Time
}

// CostBasis returns the remaining cost basis in cents.
func (p Position) CostBasis() int64 {
	return p.Quantity * p.AvgEntryPrice
}

// UnrealizedPnL values the position against the given mark, in cents.
func (p Position) UnrealizedPnL(mark int64) int64 {
	return (mark - p.AvgEntryPrice) * p.Quantity
}

// UnrealizedPct returns the unrealized P&L as a fraction of entry cost.
func (p Position) UnrealizedPct(mark int64) float64 {
	if p.AvgEntryPrice == 0 {
		return 0
	}
	return float64(mark-p.AvgEntryPrice) / float64(p.AvgEntryPrice)
}

// PortfolioSnapshot is a consistent read of the ledger at a point in time.
type PortfolioSnapshot struct {
	Cash          int64 // cents
	CostBasis     int64 // Σ open position cost bases, cents
	RealizedPnL   int64 // cents, to date
	OpenPositions int   // OPEN + CLOSING
	TakenAt       time.Time
}

// TotalValue is cash plus capital committed to open positions, in cents.
// Used as the compounding sizing baseline.
func (s PortfolioSnapshot) TotalValue() int64 {
	return s.Cash + s.CostBasis
}
