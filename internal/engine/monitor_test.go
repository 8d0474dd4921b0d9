package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

func monitorCfg() MonitorConfig {
	return MonitorConfig{
		Cadence:           time.Minute,
		PollTimeout:       time.Second,
		OrderTimeout:      time.Second,
		ProfitTargetPct:   0.10,
		StopLossPct:       0.15,
		StopLossMinVolume: 1_000,
	}
}

func marketAt(ticker string, yesPrice, volume int64) func(string) (domain.Market, error) {
	return func(string) (domain.Market, error) {
		return domain.Market{
			Ticker:   ticker,
			YesPrice: yesPrice,
			NoPrice:  100 - yesPrice,
			Volume:   volume,
		}, nil
	}
}

func openPosition(t *testing.T, l *Ledger, ticker string, qty, entry int64) {
	t.Helper()
	require.NoError(t, l.ApplyFill(buyOrder(ticker, qty, entry)))
}

func TestMonitor_ProfitTarget_ClosesPosition(t *testing.T) {
	ex := &mockExchange{getMarketFn: marketAt("KXUSA-A", 58, 50_000)}
	ledger := NewLedger(100_000)
	openPosition(t, ledger, "KXUSA-A", 100, 50)

	journal := &recordingJournal{}
	lc := NewLifecycle(ex, ledger, journal, nil, 5*time.Millisecond, true)
	m := NewMonitor(ex, ledger, lc, monitorCfg())

	closed := m.Sweep(context.Background())
	assert.Equal(t, 1, closed)

	assert.False(t, ledger.HasExposure("KXUSA-A"))
	require.Len(t, journal.trades, 1)
	assert.Equal(t, ExitProfitTarget, journal.trades[0].Reason)
	assert.Equal(t, int64(800), journal.trades[0].PnL)
}

func TestMonitor_StopLoss_ClosesPosition(t *testing.T) {
	// Entry 50, mark 40 → −20%, beyond the 15% stop, volume above the floor.
	ex := &mockExchange{getMarketFn: marketAt("KXUSA-A", 40, 50_000)}
	ledger := NewLedger(100_000)
	openPosition(t, ledger, "KXUSA-A", 100, 50)

	journal := &recordingJournal{}
	lc := NewLifecycle(ex, ledger, journal, nil, 5*time.Millisecond, true)
	m := NewMonitor(ex, ledger, lc, monitorCfg())

	closed := m.Sweep(context.Background())
	assert.Equal(t, 1, closed)
	require.Len(t, journal.trades, 1)
	assert.Equal(t, ExitStopLoss, journal.trades[0].Reason)
}

func TestMonitor_StopLoss_VolumeGated(t *testing.T) {
	// Same drawdown, but the market is too thin for the stop to be trusted.
	ex := &mockExchange{getMarketFn: marketAt("KXUSA-A", 40, 100)}
	ledger := NewLedger(100_000)
	openPosition(t, ledger, "KXUSA-A", 100, 50)

	lc := NewLifecycle(ex, ledger, nil, nil, 5*time.Millisecond, true)
	m := NewMonitor(ex, ledger, lc, monitorCfg())

	closed := m.Sweep(context.Background())
	assert.Zero(t, closed)
	assert.True(t, ledger.HasExposure("KXUSA-A"), "thin-market drawdown is held, not stopped")
}

func TestMonitor_WithinBand_NoExit(t *testing.T) {
	ex := &mockExchange{getMarketFn: marketAt("KXUSA-A", 52, 50_000)}
	ledger := NewLedger(100_000)
	openPosition(t, ledger, "KXUSA-A", 100, 50)

	lc := NewLifecycle(ex, ledger, nil, nil, 5*time.Millisecond, true)
	m := NewMonitor(ex, ledger, lc, monitorCfg())

	assert.Zero(t, m.Sweep(context.Background()))
	assert.True(t, ledger.HasExposure("KXUSA-A"))
}

func TestMonitor_RateGateTimeout_SkipsPosition(t *testing.T) {
	ex := &mockExchange{
		getMarketFn: func(string) (domain.Market, error) {
			return domain.Market{}, domain.ErrRateGateTimeout
		},
	}
	ledger := NewLedger(100_000)
	openPosition(t, ledger, "KXUSA-A", 100, 50)

	lc := NewLifecycle(ex, ledger, nil, nil, 5*time.Millisecond, true)
	m := NewMonitor(ex, ledger, lc, monitorCfg())

	assert.Zero(t, m.Sweep(context.Background()))
	pos, ok := ledger.Position("KXUSA-A")
	require.True(t, ok)
	assert.Equal(t, domain.PositionOpen, pos.Status, "skipped position stays OPEN for the next sweep")
}

func TestMonitor_Decide_ProfitTargetPrecedence(t *testing.T) {
	cfg := monitorCfg()
	cfg.Precedence = PrecedenceProfitTarget
	m := NewMonitor(&mockExchange{}, NewLedger(0), nil, cfg)

	pos := domain.Position{Ticker: "A", Quantity: 10, AvgEntryPrice: 50}

	assert.Equal(t, ExitProfitTarget, m.decide(pos, 58, 50_000))
	assert.Equal(t, ExitStopLoss, m.decide(pos, 40, 50_000))
	assert.Equal(t, "", m.decide(pos, 40, 100), "volume gate blocks the stop")
	assert.Equal(t, "", m.decide(pos, 52, 50_000))
	assert.Equal(t, "", m.decide(pos, 0, 50_000), "no mark, no decision")
}

func TestMonitor_Decide_StopLossDisabled(t *testing.T) {
	cfg := monitorCfg()
	cfg.StopLossPct = 0
	m := NewMonitor(&mockExchange{}, NewLedger(0), nil, cfg)

	pos := domain.Position{Ticker: "A", Quantity: 10, AvgEntryPrice: 50}
	assert.Equal(t, "", m.decide(pos, 10, 1_000_000), "zero stop-loss means never stop")
	assert.Equal(t, ExitProfitTarget, m.decide(pos, 58, 1_000_000))
}

func TestMonitor_PartialExit_ResidualReevaluated(t *testing.T) {
	// Live path: the exit order times out with 40 of 100 contracts sold.
	ex := &mockExchange{
		getMarketFn: marketAt("KXUSA-A", 58, 50_000),
		getOrderFn: func(id string) (domain.OrderState, error) {
			return domain.OrderState{ExchangeID: id, Status: domain.OrderCanceled, FilledQuantity: 40, AvgFillPrice: 58}, nil
		},
	}
	ledger := NewLedger(100_000)
	openPosition(t, ledger, "KXUSA-A", 100, 50)

	journal := &recordingJournal{}
	lc := NewLifecycle(ex, ledger, journal, nil, time.Hour, false)

	cfg := monitorCfg()
	cfg.OrderTimeout = 20 * time.Millisecond
	m := NewMonitor(ex, ledger, lc, cfg)

	closed := m.Sweep(context.Background())
	assert.Equal(t, 1, closed)

	pos, ok := ledger.Position("KXUSA-A")
	require.True(t, ok, "residual stays on the books")
	assert.Equal(t, int64(60), pos.Quantity)
	assert.Equal(t, domain.PositionOpen, pos.Status, "residual OPEN for the next cadence tick")

	require.Len(t, journal.trades, 1)
	assert.Equal(t, int64(40), journal.trades[0].Quantity)
	assert.Equal(t, int64(320), journal.trades[0].PnL)
}
