package kalshi

import (
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// mapMarket convierte un marketDTO a domain.Market. El precio actual de cada
// lado es el punto medio bid/ask cuando existen ambos, o el último precio.
func mapMarket(r marketDTO) domain.Market {
	m := domain.Market{
		Ticker:       r.Ticker,
		Title:        r.Title,
		Status:       domain.MarketStatus(r.Status),
		YesBid:       r.YesBid,
		YesAsk:       r.YesAsk,
		NoBid:        r.NoBid,
		NoAsk:        r.NoAsk,
		Volume:       r.Volume,
		Volume24h:    r.Volume24h,
		OpenInterest: r.OpenInterest,
	}

	m.YesPrice = midOrLast(r.YesBid, r.YesAsk, r.LastPrice)
	m.NoPrice = midOrLast(r.NoBid, r.NoAsk, 100-r.LastPrice)

	if r.CloseTime != "" {
		if t, err := time.Parse(time.RFC3339, r.CloseTime); err == nil {
			m.CloseTime = t.UTC()
		}
	}
	return m
}

func midOrLast(bid, ask, last int64) int64 {
	if bid > 0 && ask > 0 {
		return (bid + ask) / 2
	}
	if last > 0 && last < 100 {
		return last
	}
	return 0
}

// mapOrderBook convierte el orderbookDTO a domain.OrderBook.
//
// Kalshi solo publica bids por lado: un ask YES a precio p es un bid NO a
// 100-p, así que los asks de cada lado se derivan del lado contrario.
// Los bids vienen en orden ascendente; se invierten para dejar el mejor primero.
func mapOrderBook(ticker string, r orderbookDTO) domain.OrderBook {
	yesBids := mapLevels(r.Yes)
	noBids := mapLevels(r.No)

	book := domain.OrderBook{
		Ticker:  ticker,
		YesBids: bestFirst(yesBids),
		NoBids:  bestFirst(noBids),
		YesAsks: complement(noBids),
		NoAsks:  complement(yesBids),
	}
	return book
}

func mapLevels(raw [][2]int64) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(raw))
	for _, lvl := range raw {
		if lvl[0] <= 0 || lvl[1] <= 0 {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: lvl[0], Quantity: lvl[1]})
	}
	return levels
}

// bestFirst ordena bids de mayor a menor precio (mejor bid primero).
func bestFirst(levels []domain.PriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, len(levels))
	for i, lvl := range levels {
		out[len(levels)-1-i] = lvl
	}
	return out
}

// complement convierte bids de un lado en asks del contrario (precio 100-p),
// mejor ask (más barato) primero.
func complement(bids []domain.PriceLevel) []domain.PriceLevel {
	out := make([]domain.PriceLevel, len(bids))
	for i, lvl := range bids {
		out[len(bids)-1-i] = domain.PriceLevel{Price: 100 - lvl.Price, Quantity: lvl.Quantity}
	}
	return out
}

// mapOrderState convierte un orderDTO al estado de orden del dominio.
func mapOrderState(r orderDTO) domain.OrderState {
	st := domain.OrderState{
		ExchangeID:     r.OrderID,
		Status:         mapOrderStatus(r),
		FilledQuantity: filledCount(r),
	}
	if st.FilledQuantity > 0 {
		st.AvgFillPrice = r.FillAvgPrice
		if st.AvgFillPrice == 0 {
			// Sin detalle de fills: el peor caso es el precio límite.
			if r.Side == "yes" {
				st.AvgFillPrice = r.YesPrice
			} else {
				st.AvgFillPrice = r.NoPrice
			}
		}
	}
	return st
}

func filledCount(r orderDTO) int64 {
	if r.FillCount > 0 {
		return r.FillCount
	}
	if r.InitialCount > 0 && r.RemainingCount >= 0 {
		return r.InitialCount - r.RemainingCount
	}
	return 0
}

// mapOrderStatus traduce el estado del API. "resting" con fills parciales se
// reporta como PARTIALLY_FILLED; el resto de estados mapean directo.
func mapOrderStatus(r orderDTO) domain.OrderStatus {
	switch r.Status {
	case "executed":
		return domain.OrderFilled
	case "canceled":
		return domain.OrderCanceled
	case "expired":
		return domain.OrderExpired
	case "rejected":
		return domain.OrderRejected
	case "resting", "pending":
		if filledCount(r) > 0 {
			return domain.OrderPartiallyFilled
		}
		return domain.OrderPending
	}
	return domain.OrderPending
}
