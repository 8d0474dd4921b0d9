package kalshi

// types.go — DTOs del API de Kalshi. Solo los campos que el bot usa.

// marketDTO es un mercado tal como lo devuelve GET /markets.
// Los precios vienen en centavos enteros.
type marketDTO struct {
	Ticker       string `json:"ticker"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	YesBid       int64  `json:"yes_bid"`
	YesAsk       int64  `json:"yes_ask"`
	NoBid        int64  `json:"no_bid"`
	NoAsk        int64  `json:"no_ask"`
	LastPrice    int64  `json:"last_price"`
	Volume       int64  `json:"volume"`
	Volume24h    int64  `json:"volume_24h"`
	OpenInterest int64  `json:"open_interest"`
	CloseTime    string `json:"close_time"`
}

type marketsResponse struct {
	Markets []marketDTO `json:"markets"`
	Cursor  string      `json:"cursor"`
}

type marketResponse struct {
	Market marketDTO `json:"market"`
}

// orderbookDTO: cada nivel es un par [precio, contratos]. Kalshi solo expone
// los bids de cada lado; los asks se derivan del lado contrario (ask YES a
// precio p equivale a bid NO a 100-p).
type orderbookDTO struct {
	Yes [][2]int64 `json:"yes"`
	No  [][2]int64 `json:"no"`
}

type orderbookResponse struct {
	Orderbook orderbookDTO `json:"orderbook"`
}

// orderRequestDTO es el body de POST /portfolio/orders.
type orderRequestDTO struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Side          string `json:"side"`
	Action        string `json:"action"`
	Type          string `json:"type"`
	Count         int64  `json:"count"`
	YesPrice      int64  `json:"yes_price,omitempty"`
	NoPrice       int64  `json:"no_price,omitempty"`
}

// orderDTO es una orden tal como la devuelve el API.
type orderDTO struct {
	OrderID        string `json:"order_id"`
	ClientOrderID  string `json:"client_order_id"`
	Ticker         string `json:"ticker"`
	Status         string `json:"status"`
	Side           string `json:"side"`
	Action         string `json:"action"`
	YesPrice       int64  `json:"yes_price"`
	NoPrice        int64  `json:"no_price"`
	InitialCount   int64  `json:"initial_count"`
	RemainingCount int64  `json:"remaining_count"`
	FillCount      int64  `json:"fill_count"`
	FillAvgPrice   int64  `json:"fill_avg_price"`
}

type orderResponse struct {
	Order orderDTO `json:"order"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"` // centavos
}
