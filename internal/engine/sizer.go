package engine

import (
	"fmt"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// SizerConfig holds the position sizing limits.
type SizerConfig struct {
	MinPositionPct float64 // min fraction of the sizing base per trade
	MaxPositionPct float64 // max fraction of the sizing base per trade
	MinContracts   int64
	MaxContracts   int64 // 0 = unbounded
	MaxPriceCents  int64 // hard entry price cap
	Compounding    bool  // size from current total value instead of baseline
	MaxPositions   int   // max concurrent open positions
}

// RejectReason is a typed "no-size" outcome. Not an error condition:
// terminal for this cycle only.
type RejectReason string

const (
	RejectNone              RejectReason = ""
	RejectPriceCap          RejectReason = "price_above_cap"
	RejectCapReached        RejectReason = "max_positions_reached"
	RejectInsufficientFunds RejectReason = "insufficient_funds"
	RejectBelowMinContracts RejectReason = "below_min_contracts"
)

// Sizing is a concrete entry decision.
type Sizing struct {
	Contracts  int64
	LimitPrice int64 // cents
}

// Cost returns the committed capital in cents.
func (s Sizing) Cost() int64 {
	return s.Contracts * s.LimitPrice
}

// SizeResult is either a sizing or an explicit rejection — never a silent
// zero size.
type SizeResult struct {
	Sizing Sizing
	Reason RejectReason
}

// OK reports whether a size was produced.
func (r SizeResult) OK() bool { return r.Reason == RejectNone }

func (r SizeResult) String() string {
	if !r.OK() {
		return "rejected: " + string(r.Reason)
	}
	return fmt.Sprintf("x%d @ %dc", r.Sizing.Contracts, r.Sizing.LimitPrice)
}

// SizePosition computes the contract count and limit price for an
// opportunity. Pure: no side effects, no suspension.
//
// Base capital is the current total value when compounding, else the fixed
// baseline captured at start. The target notional is max_pct of the base,
// floored at min_pct of the base, intersected with available cash; the
// count is the floor of notional over price.
func SizePosition(snap domain.PortfolioSnapshot, baseline int64, opp domain.Opportunity, cfg SizerConfig) SizeResult {
	if cfg.MaxPriceCents > 0 && opp.EntryPrice > cfg.MaxPriceCents {
		return SizeResult{Reason: RejectPriceCap}
	}
	if cfg.MaxPositions > 0 && snap.OpenPositions >= cfg.MaxPositions {
		return SizeResult{Reason: RejectCapReached}
	}
	if opp.EntryPrice <= 0 {
		return SizeResult{Reason: RejectPriceCap}
	}

	base := baseline
	if cfg.Compounding {
		base = snap.TotalValue()
	}

	target := int64(float64(base) * cfg.MaxPositionPct)
	if floor := int64(float64(base) * cfg.MinPositionPct); target < floor {
		target = floor
	}
	if target > snap.Cash {
		target = snap.Cash
	}

	minContracts := cfg.MinContracts
	if minContracts < 1 {
		minContracts = 1
	}
	if minContracts*opp.EntryPrice > snap.Cash {
		return SizeResult{Reason: RejectInsufficientFunds}
	}

	contracts := target / opp.EntryPrice
	if contracts < minContracts {
		return SizeResult{Reason: RejectBelowMinContracts}
	}
	if cfg.MaxContracts > 0 && contracts > cfg.MaxContracts {
		contracts = cfg.MaxContracts
	}

	return SizeResult{Sizing: Sizing{Contracts: contracts, LimitPrice: opp.EntryPrice}}
}
