package domain

import "time"

// MarketStatus es el estado de un mercado binario en Kalshi.
type MarketStatus string

const (
	MarketOpen      MarketStatus = "open"
	MarketActive    MarketStatus = "active"
	MarketClosed    MarketStatus = "closed"
	MarketSettled   MarketStatus = "settled"
	MarketFinalized MarketStatus = "finalized"
)

// Side es uno de los dos lados de un mercado binario.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Opposite devuelve el lado contrario.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// Market representa un snapshot de un mercado binario de Kalshi.
// Todos los precios son centavos enteros (1-99).
type Market struct {
	Ticker       string
	Title        string
	Status       MarketStatus
	YesPrice     int64 // último precio YES en centavos
	NoPrice      int64 // último precio NO en centavos
	YesBid       int64
	YesAsk       int64
	NoBid        int64
	NoAsk        int64
	Volume       int64 // contratos negociados en total
	Volume24h    int64
	OpenInterest int64
	CloseTime    time.Time
}

// Tradable devuelve true si el mercado acepta órdenes.
func (m Market) Tradable() bool {
	return m.Status == MarketOpen || m.Status == MarketActive
}

// HasLiquidity devuelve true si existe al menos un bid en alguno de los lados.
func (m Market) HasLiquidity() bool {
	return m.YesBid > 0 || m.NoBid > 0
}

// SidePrice devuelve el precio actual del lado dado, usado como mark
// para valorar posiciones abiertas.
func (m Market) SidePrice(s Side) int64 {
	if s == SideYes {
		return m.YesPrice
	}
	return m.NoPrice
}

// SideAsk devuelve el mejor ask del lado dado (precio de entrada comprando).
func (m Market) SideAsk(s Side) int64 {
	if s == SideYes {
		return m.YesAsk
	}
	return m.NoAsk
}

// SideBid devuelve el mejor bid del lado dado (precio de salida vendiendo).
func (m Market) SideBid(s Side) int64 {
	if s == SideYes {
		return m.YesBid
	}
	return m.NoBid
}

// HighProbabilitySide devuelve el lado con mayor probabilidad implícita,
// o "" si ambos precios son iguales.
func (m Market) HighProbabilitySide() Side {
	switch {
	case m.YesPrice > m.NoPrice:
		return SideYes
	case m.NoPrice > m.YesPrice:
		return SideNo
	}
	return ""
}

// Probability convierte el precio del lado a probabilidad (0-1).
func (m Market) Probability(s Side) float64 {
	return float64(m.SidePrice(s)) / 100
}

// HoursToClose devuelve las horas hasta el cierre del mercado.
// Devuelve 0 si CloseTime no está definido o ya pasó.
func (m Market) HoursToClose() float64 {
	if m.CloseTime.IsZero() {
		return 0
	}
	h := time.Until(m.CloseTime).Hours()
	if h < 0 {
		return 0
	}
	return h
}

// PriceLevel es un nivel de precio del orderbook.
type PriceLevel struct {
	Price    int64 // centavos
	Quantity int64 // contratos
}

// OrderBook es el libro de órdenes de un mercado.
type OrderBook struct {
	Ticker  string
	YesBids []PriceLevel
	YesAsks []PriceLevel
	NoBids  []PriceLevel
	NoAsks  []PriceLevel
}

// BestAsk devuelve el mejor ask del lado dado, o 0 si no hay.
func (b OrderBook) BestAsk(s Side) int64 {
	levels := b.YesAsks
	if s == SideNo {
		levels = b.NoAsks
	}
	if len(levels) == 0 {
		return 0
	}
	return levels[0].Price
}

// BestBid devuelve el mejor bid del lado dado, o 0 si no hay.
func (b OrderBook) BestBid(s Side) int64 {
	levels := b.YesBids
	if s == SideNo {
		levels = b.NoBids
	}
	if len(levels) == 0 {
		return 0
	}
	return levels[0].Price
}

// LiquidityWithin calcula la liquidez total (precio × cantidad, en centavos)
// del lado dado, dentro de depthCents del mejor bid/ask.
func (b OrderBook) LiquidityWithin(s Side, depthCents int64) int64 {
	bids, asks := b.YesBids, b.YesAsks
	if s == SideNo {
		bids, asks = b.NoBids, b.NoAsks
	}

	var total int64
	if len(bids) > 0 {
		best := bids[0].Price
		for _, lvl := range bids {
			if best-lvl.Price <= depthCents {
				total += lvl.Price * lvl.Quantity
			}
		}
	}
	if len(asks) > 0 {
		best := asks[0].Price
		for _, lvl := range asks {
			if lvl.Price-best <= depthCents {
				total += lvl.Price * lvl.Quantity
			}
		}
	}
	return total
}
