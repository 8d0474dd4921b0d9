package kalshi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

func TestMapMarket(t *testing.T) {
	m := mapMarket(marketDTO{
		Ticker:    "KXUSA-A",
		Title:     "Will it happen?",
		Status:    "open",
		YesBid:    78,
		YesAsk:    82,
		NoBid:     18,
		NoAsk:     22,
		LastPrice: 80,
		Volume:    12_345,
		CloseTime: "2026-09-01T18:00:00Z",
	})

	assert.Equal(t, "KXUSA-A", m.Ticker)
	assert.Equal(t, domain.MarketOpen, m.Status)
	assert.Equal(t, int64(80), m.YesPrice, "mid of bid/ask")
	assert.Equal(t, int64(20), m.NoPrice)
	assert.True(t, m.Tradable())
	assert.Equal(t, domain.SideYes, m.HighProbabilitySide())
	assert.False(t, m.CloseTime.IsZero())
}

func TestMapMarket_NoQuotes_FallsBackToLast(t *testing.T) {
	m := mapMarket(marketDTO{Ticker: "X", Status: "open", LastPrice: 65})
	assert.Equal(t, int64(65), m.YesPrice)
	assert.Equal(t, int64(35), m.NoPrice)
}

func TestMapOrderBook_DerivesAsksFromOppositeSide(t *testing.T) {
	// Kalshi publica bids ascendentes por lado.
	book := mapOrderBook("KXUSA-A", orderbookDTO{
		Yes: [][2]int64{{75, 100}, {78, 50}},
		No:  [][2]int64{{18, 200}, {20, 80}},
	})

	// Mejor bid primero.
	assert.Equal(t, int64(78), book.BestBid(domain.SideYes))
	assert.Equal(t, int64(20), book.BestBid(domain.SideNo))

	// Ask YES derivado del mejor bid NO: 100−20 = 80.
	assert.Equal(t, int64(80), book.BestAsk(domain.SideYes))
	// Ask NO derivado del mejor bid YES: 100−78 = 22.
	assert.Equal(t, int64(22), book.BestAsk(domain.SideNo))

	require.Len(t, book.YesAsks, 2)
	assert.Equal(t, domain.PriceLevel{Price: 80, Quantity: 80}, book.YesAsks[0])
	assert.Equal(t, domain.PriceLevel{Price: 82, Quantity: 200}, book.YesAsks[1])
}

func TestMapOrderState(t *testing.T) {
	st := mapOrderState(orderDTO{
		OrderID:        "ord-1",
		Status:         "resting",
		Side:           "yes",
		YesPrice:       70,
		InitialCount:   10,
		RemainingCount: 6,
		FillAvgPrice:   69,
	})

	assert.Equal(t, "ord-1", st.ExchangeID)
	assert.Equal(t, domain.OrderPartiallyFilled, st.Status)
	assert.Equal(t, int64(4), st.FilledQuantity)
	assert.Equal(t, int64(69), st.AvgFillPrice)
}

func TestMapOrderState_RestingUnfilled(t *testing.T) {
	st := mapOrderState(orderDTO{
		OrderID:        "ord-2",
		Status:         "resting",
		InitialCount:   10,
		RemainingCount: 10,
	})
	assert.Equal(t, domain.OrderPending, st.Status)
	assert.Zero(t, st.FilledQuantity)
}

func TestMapOrderState_ExecutedWithoutAvg_UsesLimit(t *testing.T) {
	st := mapOrderState(orderDTO{
		OrderID:   "ord-3",
		Status:    "executed",
		Side:      "no",
		NoPrice:   35,
		FillCount: 10,
	})
	assert.Equal(t, domain.OrderFilled, st.Status)
	assert.Equal(t, int64(35), st.AvgFillPrice, "sin detalle de fills, peor caso = precio límite")
}

func TestMapOrderStatus_Terminal(t *testing.T) {
	cases := map[string]domain.OrderStatus{
		"executed": domain.OrderFilled,
		"canceled": domain.OrderCanceled,
		"expired":  domain.OrderExpired,
		"rejected": domain.OrderRejected,
		"pending":  domain.OrderPending,
	}
	for raw, want := range cases {
		assert.Equal(t, want, mapOrderStatus(orderDTO{Status: raw}), raw)
	}
}
