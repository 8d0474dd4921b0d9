package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

func newTestJournal(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLiteJournal(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteJournal_SaveOrder_Upsert(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	order := domain.Order{
		ClientID:  "c-1",
		Ticker:    "KXUSA-A",
		Side:      domain.SideYes,
		Action:    domain.ActionBuy,
		Price:     70,
		Quantity:  10,
		Status:    domain.OrderPending,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, j.SaveOrder(ctx, order))

	// El mismo client_id con el fill final reescribe la fila.
	order.Status = domain.OrderFilled
	order.FilledQuantity = 10
	order.AvgFillPrice = 70
	order.ClosedAt = time.Now().UTC()
	require.NoError(t, j.SaveOrder(ctx, order))

	var count int
	require.NoError(t, j.db.QueryRow(`SELECT COUNT(*) FROM orders`).Scan(&count))
	assert.Equal(t, 1, count)

	var status string
	var filled int64
	require.NoError(t, j.db.QueryRow(
		`SELECT status, filled_qty FROM orders WHERE client_id = ?`, "c-1",
	).Scan(&status, &filled))
	assert.Equal(t, "FILLED", status)
	assert.Equal(t, int64(10), filled)
}

func TestSQLiteJournal_Trades_RoundTrip(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, j.SaveTrade(ctx, domain.Trade{
		Ticker:     "KXUSA-A",
		Side:       domain.SideYes,
		Quantity:   10,
		EntryPrice: 70,
		ExitPrice:  78,
		PnL:        80,
		Reason:     "profit_target",
		ClosedAt:   now,
	}))
	require.NoError(t, j.SaveTrade(ctx, domain.Trade{
		Ticker:     "KXUSA-B",
		Side:       domain.SideNo,
		Quantity:   5,
		EntryPrice: 80,
		ExitPrice:  68,
		PnL:        -60,
		Reason:     "stop_loss",
		ClosedAt:   now.Add(-48 * time.Hour), // fuera del rango
	}))

	trades, err := j.GetTrades(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, trades, 1)

	got := trades[0]
	assert.NotZero(t, got.ID)
	assert.Equal(t, "KXUSA-A", got.Ticker)
	assert.Equal(t, domain.SideYes, got.Side)
	assert.Equal(t, int64(80), got.PnL)
	assert.Equal(t, "profit_target", got.Reason)
}

func TestSQLiteJournal_Dailies_Upsert(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	require.NoError(t, j.SaveDaily(ctx, domain.DailySummary{
		Date: day, Entries: 2, RealizedPnL: 100, Cash: 95_000,
	}))
	// Mismo día con cifras actualizadas: una sola fila.
	require.NoError(t, j.SaveDaily(ctx, domain.DailySummary{
		Date: day, Entries: 3, Exits: 1, RealizedPnL: 180, Cash: 95_180,
	}))
	require.NoError(t, j.SaveDaily(ctx, domain.DailySummary{
		Date: day.AddDate(0, 0, -1), Entries: 1, Cash: 94_000,
	}))

	dailies, err := j.GetDailies(ctx)
	require.NoError(t, err)
	require.Len(t, dailies, 2)

	// Más recientes primero.
	assert.Equal(t, day, dailies[0].Date)
	assert.Equal(t, 3, dailies[0].Entries)
	assert.Equal(t, int64(180), dailies[0].RealizedPnL)
}
