package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// cancelGrace bounds the active-cancel window during shutdown/timeout, so a
// dead exchange cannot stall the process indefinitely.
const cancelGrace = 10 * time.Second

// Lifecycle places and tracks orders until they reach a terminal state:
// submit → poll fills → cancel on timeout → resolve the cancel/fill race →
// reconcile into the ledger exactly once.
//
// Invocations are idempotent per client ID: a second call with the same key
// while the first is outstanding joins the live attempt instead of placing
// a duplicate order.
type Lifecycle struct {
	ex       ports.Exchange
	ledger   *Ledger
	journal  ports.TradeJournal // optional
	notifier ports.Notifier     // optional
	poll     time.Duration
	dryRun   bool

	mu       sync.Mutex
	inflight map[string]*tracker // client ID → live attempt
	byTicker map[string]string   // ticker → client ID with an order in flight
}

type tracker struct {
	done  chan struct{}
	order domain.Order
	err   error
}

// NewLifecycle creates the order lifecycle manager. journal and notifier
// may be nil. When dryRun is set, submit/cancel are short-circuited into
// synthetic instant fills at the requested price.
func NewLifecycle(ex ports.Exchange, ledger *Ledger, journal ports.TradeJournal, notifier ports.Notifier, poll time.Duration, dryRun bool) *Lifecycle {
	if poll <= 0 {
		poll = 2 * time.Second
	}
	return &Lifecycle{
		ex:       ex,
		ledger:   ledger,
		journal:  journal,
		notifier: notifier,
		poll:     poll,
		dryRun:   dryRun,
		inflight: make(map[string]*tracker),
		byTicker: make(map[string]string),
	}
}

// Busy reports whether an order is currently in flight for the market.
func (m *Lifecycle) Busy(ticker string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byTicker[ticker]
	return ok
}

// PlaceAndTrack submits the order and blocks until it reaches a terminal
// state, the timeout forces a cancel, or ctx asks for shutdown (in which
// case the order is actively canceled, never abandoned). A rate-gate
// timeout before submission returns domain.ErrRateGateTimeout and means
// the order was never attempted.
func (m *Lifecycle) PlaceAndTrack(ctx context.Context, req domain.OrderRequest, timeout time.Duration) (domain.Order, error) {
	if req.ClientID == "" {
		req.ClientID = uuid.New().String()
	}

	m.mu.Lock()
	if t, ok := m.inflight[req.ClientID]; ok {
		m.mu.Unlock()
		select {
		case <-t.done:
			return t.order, t.err
		case <-ctx.Done():
			return domain.Order{}, ctx.Err()
		}
	}
	t := &tracker{done: make(chan struct{})}
	m.inflight[req.ClientID] = t
	m.byTicker[req.Ticker] = req.ClientID
	m.mu.Unlock()

	order, err := m.run(ctx, req, timeout)

	t.order, t.err = order, err
	m.mu.Lock()
	delete(m.inflight, req.ClientID)
	if m.byTicker[req.Ticker] == req.ClientID {
		delete(m.byTicker, req.Ticker)
	}
	m.mu.Unlock()
	close(t.done)

	return order, err
}

func (m *Lifecycle) run(ctx context.Context, req domain.OrderRequest, timeout time.Duration) (domain.Order, error) {
	order := domain.Order{
		ClientID:  req.ClientID,
		Ticker:    req.Ticker,
		Side:      req.Side,
		Action:    req.Action,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Status:    domain.OrderSubmitting,
		Tag:       req.Tag,
		CreatedAt: time.Now().UTC(),
	}

	if m.dryRun {
		return m.runDry(ctx, order)
	}

	st, err := m.ex.SubmitOrder(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrRateGateTimeout) || ctx.Err() != nil {
			// Never attempted: the caller retries next cadence.
			return order, err
		}
		order.Reason = err.Error()
		_ = order.Transition(domain.OrderRejected)
		slog.Warn("lifecycle: submit failed", "ticker", req.Ticker, "err", err)
		return order, m.finalize(ctx, &order)
	}

	order.ExchangeID = st.ExchangeID
	terminal, err := m.absorb(&order, st)
	if err != nil {
		return order, err
	}
	if terminal {
		return order, m.finalize(ctx, &order)
	}
	if order.Status == domain.OrderSubmitting {
		_ = order.Transition(domain.OrderPending)
	}

	slog.Info("lifecycle: order placed",
		"ticker", order.Ticker, "side", order.Side, "action", order.Action,
		"qty", order.Quantity, "price", order.Price, "exchange_id", order.ExchangeID)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(m.poll)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return m.cancelAndResolve(ctx, &order, domain.OrderCanceled, "shutdown")
		case <-deadline.C:
			return m.cancelAndResolve(ctx, &order, domain.OrderExpired, "timeout")
		case <-tick.C:
			st, err := m.ex.GetOrder(ctx, order.ExchangeID)
			if err != nil {
				// Transient or gate timeout: skip this tick, unrelated
				// activity keeps its own budget.
				slog.Debug("lifecycle: poll failed", "ticker", order.Ticker, "err", err)
				continue
			}
			terminal, err := m.absorb(&order, st)
			if err != nil {
				return order, err
			}
			if terminal {
				return order, m.finalize(ctx, &order)
			}
		}
	}
}

// runDry short-circuits the exchange: instantaneous full fill at the
// requested price, so the rest of the pipeline is exercised without real
// exchange mutation.
func (m *Lifecycle) runDry(ctx context.Context, order domain.Order) (domain.Order, error) {
	order.ExchangeID = "dry-" + order.ClientID
	_ = order.Transition(domain.OrderPending)
	if err := order.RecordFill(order.Quantity, order.Price); err != nil {
		return order, err
	}
	_ = order.Transition(domain.OrderFilled)
	slog.Info("lifecycle: dry-run fill",
		"ticker", order.Ticker, "action", order.Action,
		"qty", order.FilledQuantity, "price", order.AvgFillPrice)
	return order, m.finalize(ctx, &order)
}

// absorb folds an exchange order state into the tracked order and reports
// whether it became terminal.
func (m *Lifecycle) absorb(order *domain.Order, st domain.OrderState) (bool, error) {
	if err := order.RecordFill(st.FilledQuantity, st.AvgFillPrice); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrLedgerInvariant, err)
	}

	switch {
	case st.Status == domain.OrderFilled || order.FilledQuantity == order.Quantity:
		if err := order.Transition(domain.OrderFilled); err != nil {
			return false, err
		}
		return true, nil
	case st.Status.Terminal():
		if err := order.Transition(st.Status); err != nil {
			return false, err
		}
		return true, nil
	case order.FilledQuantity > 0 && order.Status != domain.OrderPartiallyFilled:
		if order.Status.CanTransition(domain.OrderPartiallyFilled) {
			_ = order.Transition(domain.OrderPartiallyFilled)
		}
	}
	return false, nil
}

// cancelAndResolve actively cancels the resting order and resolves the
// cancel/fill race: the exchange may fill between the cancel request and
// the cancel taking effect, so the fill state is re-queried once before
// deciding the terminal outcome.
func (m *Lifecycle) cancelAndResolve(ctx context.Context, order *domain.Order, fallback domain.OrderStatus, cause string) (domain.Order, error) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelGrace)
	defer cancel()

	if err := m.ex.CancelOrder(cctx, order.ExchangeID); err != nil {
		slog.Warn("lifecycle: cancel failed", "ticker", order.Ticker, "err", err)
	}

	// Only the fill state matters here: the exchange may report CANCELED,
	// but the terminal status is decided by what caused the cancel.
	if st, err := m.ex.GetOrder(cctx, order.ExchangeID); err == nil {
		if ferr := order.RecordFill(st.FilledQuantity, st.AvgFillPrice); ferr != nil {
			return *order, fmt.Errorf("%w: %v", domain.ErrLedgerInvariant, ferr)
		}
		if st.Status == domain.OrderFilled || order.FilledQuantity == order.Quantity {
			// Filled before the cancel landed.
			if order.Status.CanTransition(domain.OrderFilled) {
				_ = order.Transition(domain.OrderFilled)
			}
			return *order, m.finalize(cctx, order)
		}
	} else {
		slog.Warn("lifecycle: post-cancel query failed, using last known fills",
			"ticker", order.Ticker, "err", err)
	}

	order.Reason = cause
	if order.FilledQuantity > 0 {
		// Partially filled, then canceled: terminal as PARTIALLY_FILLED and
		// reconciled for the quantity actually confirmed.
		if order.Status != domain.OrderPartiallyFilled && order.Status.CanTransition(domain.OrderPartiallyFilled) {
			_ = order.Transition(domain.OrderPartiallyFilled)
		}
		order.ClosedAt = time.Now().UTC()
	} else if order.Status.CanTransition(fallback) {
		_ = order.Transition(fallback)
	}

	slog.Info("lifecycle: order canceled",
		"ticker", order.Ticker, "cause", cause,
		"filled", order.FilledQuantity, "of", order.Quantity)
	return *order, m.finalize(cctx, order)
}

// finalize reconciles a terminal order into the ledger — exactly once per
// order, since every run() exit path passes through here a single time —
// then emits it to the journal and the event stream.
func (m *Lifecycle) finalize(ctx context.Context, order *domain.Order) error {
	if order.ClosedAt.IsZero() {
		order.ClosedAt = time.Now().UTC()
	}

	var reconcileErr error
	switch order.Action {
	case domain.ActionBuy:
		if order.FilledQuantity > 0 {
			reconcileErr = m.ledger.ApplyFill(*order)
		}
	case domain.ActionSell:
		pos, hadPos := m.ledger.Position(order.Ticker)
		pnl, err := m.ledger.ApplyClose(*order)
		reconcileErr = err
		if err == nil && order.FilledQuantity > 0 && hadPos {
			trade := domain.Trade{
				Ticker:     order.Ticker,
				Side:       order.Side,
				Quantity:   order.FilledQuantity,
				EntryPrice: pos.AvgEntryPrice,
				ExitPrice:  order.AvgFillPrice,
				PnL:        pnl,
				Reason:     order.Tag,
				ClosedAt:   order.ClosedAt,
			}
			if m.journal != nil {
				if jerr := m.journal.SaveTrade(ctx, trade); jerr != nil {
					slog.Warn("lifecycle: journal trade failed", "ticker", order.Ticker, "err", jerr)
				}
			}
			if m.notifier != nil {
				m.notifier.TradeClosed(ctx, trade)
			}
		}
	}

	if m.journal != nil {
		if err := m.journal.SaveOrder(ctx, *order); err != nil {
			slog.Warn("lifecycle: journal order failed", "ticker", order.Ticker, "err", err)
		}
	}
	if m.notifier != nil {
		m.notifier.OrderTerminal(ctx, *order)
	}

	if reconcileErr != nil {
		slog.Error("lifecycle: ledger reconciliation failed", "ticker", order.Ticker, "err", reconcileErr)
		return reconcileErr
	}
	return nil
}
