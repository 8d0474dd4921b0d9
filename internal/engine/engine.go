package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// Config holds the orchestrator parameters.
type Config struct {
	ScanInterval time.Duration
	OrderTimeout time.Duration // entry order timeout
	Sizer        SizerConfig
}

// CycleResult contains everything produced by one scan/enter cycle.
type CycleResult struct {
	Scanned         int
	Entered         int
	SkippedExisting int // market already has a position or in-flight order
	SkippedCap      int
	SizeRejects     int
	OrderFailures   int
	EntryCost       int64 // cents committed this cycle
	Halted          bool
	Warnings        []string
}

// Engine drives the scan → size → enter cycle and hosts the monitor's
// independent exit cadence. The rate gate and the ledger are the only
// synchronization points shared with the monitor.
type Engine struct {
	source    ports.OpportunitySource
	ledger    *Ledger
	lifecycle *Lifecycle
	monitor   *Monitor
	journal   ports.TradeJournal // optional
	notifier  ports.Notifier     // optional
	cfg       Config
	rng       *rand.Rand
}

// New creates the trading engine.
func New(source ports.OpportunitySource, ledger *Ledger, lifecycle *Lifecycle, monitor *Monitor, journal ports.TradeJournal, notifier ports.Notifier, cfg Config) *Engine {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = time.Minute
	}
	if cfg.OrderTimeout <= 0 {
		cfg.OrderTimeout = 5 * time.Minute
	}
	return &Engine{
		source:    source,
		ledger:    ledger,
		lifecycle: lifecycle,
		monitor:   monitor,
		journal:   journal,
		notifier:  notifier,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run executes scan cycles until ctx is canceled, with the monitor running
// on its own cadence. Returns once all in-flight activity has reached a
// terminal state: no order is abandoned mid-flight.
func (e *Engine) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.monitor.Run(ctx)
	}()

	tick := time.NewTicker(e.cfg.ScanInterval)
	defer tick.Stop()

	e.cycle(ctx, 1)
	n := 1
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			slog.Info("engine: stopped", "cycles", n)
			return nil
		case <-tick.C:
			n++
			e.cycle(ctx, n)
		}
	}
}

func (e *Engine) cycle(ctx context.Context, n int) {
	result, err := e.RunOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("engine: cycle failed", "cycle", n, "err", err)
		}
		return
	}

	snap := e.ledger.Snapshot()
	slog.Info("engine: cycle complete",
		"cycle", n,
		"scanned", result.Scanned,
		"entered", result.Entered,
		"skip_existing", result.SkippedExisting,
		"skip_cap", result.SkippedCap,
		"size_rejects", result.SizeRejects,
		"order_failures", result.OrderFailures,
		"cash", fmt.Sprintf("$%.2f", float64(snap.Cash)/100),
		"open_positions", snap.OpenPositions,
		"realized_pnl", fmt.Sprintf("$%.2f", float64(snap.RealizedPnL)/100),
	)
	for _, w := range result.Warnings {
		slog.Warn("engine: warning", "msg", w)
	}

	if e.notifier != nil {
		positions := e.ledger.OpenPositions()
		if err := e.notifier.ReportPortfolio(ctx, snap, positions); err != nil {
			slog.Warn("engine: portfolio report failed", "err", err)
		}
	}
	e.saveDaily(ctx, result, snap)
}

// RunOnce executes one scan/enter cycle: fetch opportunities, and for each
// qualifying market without existing exposure, size and place an entry.
// A corrupted ledger halts all new placement — the only error class that
// stops the system.
func (e *Engine) RunOnce(ctx context.Context) (*CycleResult, error) {
	result := &CycleResult{}

	if e.ledger.Corrupted() {
		result.Halted = true
		result.Warnings = append(result.Warnings, "LEDGER CORRUPTED — new order placement halted")
		return result, nil
	}

	opps, err := e.source.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("engine.RunOnce: scan: %w", err)
	}
	result.Scanned = len(opps)

	// Shuffle so entries don't always favor whichever markets the exchange
	// paginates first.
	e.rng.Shuffle(len(opps), func(i, j int) { opps[i], opps[j] = opps[j], opps[i] })

	for _, opp := range opps {
		if ctx.Err() != nil {
			break
		}
		if e.ledger.Corrupted() {
			result.Halted = true
			result.Warnings = append(result.Warnings, "LEDGER CORRUPTED — stopping entries")
			break
		}
		if e.ledger.HasExposure(opp.Ticker) || e.lifecycle.Busy(opp.Ticker) {
			result.SkippedExisting++
			continue
		}

		// Re-read the snapshot per entry: earlier fills this cycle change
		// both cash and the concurrent-position count.
		snap := e.ledger.Snapshot()
		sized := SizePosition(snap, e.ledger.Baseline(), opp, e.cfg.Sizer)
		if !sized.OK() {
			if sized.Reason == RejectCapReached {
				result.SkippedCap++
				break // no further entry can succeed this cycle
			}
			result.SizeRejects++
			slog.Debug("engine: no size", "ticker", opp.Ticker, "reason", string(sized.Reason))
			continue
		}

		order, err := e.enter(ctx, opp, sized.Sizing)
		if err != nil {
			if errors.Is(err, domain.ErrRateGateTimeout) {
				result.Warnings = append(result.Warnings, "rate gate saturated, entry skipped: "+opp.Ticker)
				continue
			}
			if errors.Is(err, domain.ErrLedgerInvariant) {
				result.Halted = true
				result.Warnings = append(result.Warnings, "LEDGER CORRUPTED — stopping entries")
				break
			}
			if ctx.Err() != nil {
				break
			}
			result.OrderFailures++
			continue
		}
		if order.FilledQuantity > 0 {
			result.Entered++
			result.EntryCost += order.FillCost()
		} else {
			result.OrderFailures++
		}
	}

	return result, nil
}

// enter places a single entry order and waits for its terminal state.
func (e *Engine) enter(ctx context.Context, opp domain.Opportunity, sz Sizing) (domain.Order, error) {
	slog.Info("engine: entering",
		"ticker", opp.Ticker, "side", opp.Side,
		"qty", sz.Contracts, "price", sz.LimitPrice,
		"probability", fmt.Sprintf("%.0f%%", opp.Probability*100),
		"liquidity", fmt.Sprintf("$%.0f", float64(opp.Liquidity)/100))

	order, err := e.lifecycle.PlaceAndTrack(ctx, domain.OrderRequest{
		Ticker:   opp.Ticker,
		Side:     opp.Side,
		Action:   domain.ActionBuy,
		Price:    sz.LimitPrice,
		Quantity: sz.Contracts,
		Tag:      "entry",
	}, e.cfg.OrderTimeout)
	if err != nil {
		return order, err
	}

	switch {
	case order.FilledQuantity == order.Quantity:
		slog.Info("engine: entry filled", "ticker", opp.Ticker, "qty", order.FilledQuantity, "avg", order.AvgFillPrice)
	case order.FilledQuantity > 0:
		slog.Info("engine: entry partially filled", "ticker", opp.Ticker, "filled", order.FilledQuantity, "of", order.Quantity)
	default:
		slog.Warn("engine: entry not filled", "ticker", opp.Ticker, "status", order.Status, "reason", order.Reason)
	}
	return order, nil
}

// saveDaily upserts today's activity summary into the journal.
func (e *Engine) saveDaily(ctx context.Context, result *CycleResult, snap domain.PortfolioSnapshot) {
	if e.journal == nil {
		return
	}
	day := time.Now().UTC().Truncate(24 * time.Hour)
	trades, err := e.journal.GetTrades(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		slog.Debug("engine: daily trades query failed", "err", err)
	}
	var pnl, out int64
	for _, t := range trades {
		pnl += t.PnL
		out += t.Quantity
	}
	d := domain.DailySummary{
		Date:          day,
		Entries:       result.Entered,
		Exits:         len(trades),
		ContractsOut:  out,
		RealizedPnL:   pnl,
		OpenPositions: snap.OpenPositions,
		Cash:          snap.Cash,
	}
	if err := e.journal.SaveDaily(ctx, d); err != nil {
		slog.Debug("engine: daily summary save failed", "err", err)
	}
}
