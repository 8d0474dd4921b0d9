package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// Exit precedence policies for the (thresholds-overlap) case where profit
// target and stop-loss are simultaneously satisfied on a stale mark.
const (
	PrecedenceProfitTarget = "profit_target"
	PrecedenceStopLoss     = "stop_loss"
)

// Exit trigger reasons, recorded on the closing order and the trade.
const (
	ExitProfitTarget = "profit_target"
	ExitStopLoss     = "stop_loss"
)

// MonitorConfig holds the exit evaluation parameters.
type MonitorConfig struct {
	Cadence           time.Duration // how often all positions are swept
	PollTimeout       time.Duration // per-position market fetch budget
	OrderTimeout      time.Duration // closing order timeout
	ProfitTargetPct   float64       // exit at this unrealized gain fraction
	StopLossPct       float64       // 0 disables the stop entirely
	StopLossMinVolume int64         // stop only applies above this traded volume
	Precedence        string        // PrecedenceProfitTarget (default) | PrecedenceStopLoss
}

// Monitor evaluates every OPEN position on a fixed cadence and closes the
// ones whose exit conditions trigger. Positions are evaluated concurrently
// — bounded by the rate gate, not by position count — each with its own
// poll timeout so a slow response never stalls unrelated positions.
type Monitor struct {
	ex        ports.Exchange
	ledger    *Ledger
	lifecycle *Lifecycle
	cfg       MonitorConfig
}

// NewMonitor creates the position monitor.
func NewMonitor(ex ports.Exchange, ledger *Ledger, lifecycle *Lifecycle, cfg MonitorConfig) *Monitor {
	if cfg.Cadence <= 0 {
		cfg.Cadence = 15 * time.Second
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 10 * time.Second
	}
	if cfg.Precedence == "" {
		cfg.Precedence = PrecedenceProfitTarget
	}
	return &Monitor{ex: ex, ledger: ledger, lifecycle: lifecycle, cfg: cfg}
}

// Run sweeps positions until ctx is canceled. The cancellation is observed
// within one cadence interval; in-flight closing orders are resolved by the
// lifecycle manager's own shutdown path.
func (m *Monitor) Run(ctx context.Context) {
	tick := time.NewTicker(m.cfg.Cadence)
	defer tick.Stop()

	slog.Info("monitor: started", "cadence", m.cfg.Cadence,
		"profit_target", m.cfg.ProfitTargetPct, "stop_loss", m.cfg.StopLossPct)

	for {
		select {
		case <-ctx.Done():
			slog.Info("monitor: stopped")
			return
		case <-tick.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep evaluates all OPEN positions once, concurrently, and returns the
// number of exits triggered.
func (m *Monitor) Sweep(ctx context.Context) int {
	positions := m.ledger.OpenPositions()
	if len(positions) == 0 {
		return 0
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		closed int
	)
	for _, pos := range positions {
		wg.Add(1)
		go func(pos domain.Position) {
			defer wg.Done()
			if m.evaluate(ctx, pos) {
				mu.Lock()
				closed++
				mu.Unlock()
			}
		}(pos)
	}
	wg.Wait()
	return closed
}

// evaluate fetches the current market state for one position and triggers a
// close if an exit condition holds. Returns true if an exit was triggered.
func (m *Monitor) evaluate(ctx context.Context, pos domain.Position) bool {
	pctx, cancel := context.WithTimeout(ctx, m.cfg.PollTimeout)
	defer cancel()

	mkt, err := m.ex.GetMarket(pctx, pos.Ticker)
	if err != nil {
		if errors.Is(err, domain.ErrRateGateTimeout) {
			slog.Debug("monitor: skipped (rate gate)", "ticker", pos.Ticker)
		} else if ctx.Err() == nil {
			slog.Warn("monitor: market fetch failed", "ticker", pos.Ticker, "err", err)
		}
		return false // retried next cadence
	}

	mark := mkt.SidePrice(pos.Side)
	reason := m.decide(pos, mark, mkt.Volume)
	if reason == "" {
		return false
	}

	slog.Info("monitor: exit triggered",
		"ticker", pos.Ticker, "reason", reason,
		"entry", pos.AvgEntryPrice, "mark", mark, "qty", pos.Quantity)
	return m.close(ctx, pos, mark, reason)
}

// decide applies the exit predicates. Profit target takes precedence over
// stop-loss by default: a position is never force-stopped while it is also
// above its target. The stop only applies on markets with enough traded
// volume — thin markets have noisy marks that fire false stops.
func (m *Monitor) decide(pos domain.Position, mark, volume int64) string {
	if mark <= 0 || pos.AvgEntryPrice <= 0 {
		return ""
	}
	pnlPct := pos.UnrealizedPct(mark)

	profit := pnlPct >= m.cfg.ProfitTargetPct
	stop := m.cfg.StopLossPct > 0 &&
		-pnlPct >= m.cfg.StopLossPct &&
		volume >= m.cfg.StopLossMinVolume

	if m.cfg.Precedence == PrecedenceStopLoss {
		if stop {
			return ExitStopLoss
		}
		if profit {
			return ExitProfitTarget
		}
		return ""
	}
	if profit {
		return ExitProfitTarget
	}
	if stop {
		return ExitStopLoss
	}
	return ""
}

// close transitions the position to CLOSING and places a closing order for
// the full remaining quantity at the current mark. On a partial result the
// ledger leaves the residual OPEN and the next cadence tick re-evaluates
// it, rather than assuming full closure.
func (m *Monitor) close(ctx context.Context, pos domain.Position, mark int64, reason string) bool {
	if err := m.ledger.MarkClosing(pos.Ticker); err != nil {
		// Lost the race to another sweep or an engine action.
		slog.Debug("monitor: close skipped", "ticker", pos.Ticker, "err", err)
		return false
	}

	order, err := m.lifecycle.PlaceAndTrack(ctx, domain.OrderRequest{
		Ticker:   pos.Ticker,
		Side:     pos.Side,
		Action:   domain.ActionSell,
		Price:    mark,
		Quantity: pos.Quantity,
		Tag:      reason,
	}, m.cfg.OrderTimeout)
	if err != nil {
		if errors.Is(err, domain.ErrRateGateTimeout) || errors.Is(err, context.Canceled) {
			m.ledger.ReleaseClosing(pos.Ticker)
			return false
		}
		slog.Error("monitor: close failed", "ticker", pos.Ticker, "err", err)
		return false
	}
	if order.FilledQuantity == 0 {
		// Expired or rejected unfilled: ledger already released the position.
		slog.Warn("monitor: exit order unfilled", "ticker", pos.Ticker, "status", order.Status)
		return false
	}

	slog.Info("monitor: position closed",
		"ticker", pos.Ticker, "reason", reason,
		"closed", order.FilledQuantity, "of", pos.Quantity,
		"exit_price", order.AvgFillPrice)
	return true
}
