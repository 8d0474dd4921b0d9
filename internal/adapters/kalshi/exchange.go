package kalshi

// exchange.go — implementación de ports.Exchange sobre el API de Kalshi.

import (
	"context"
	"fmt"
	"net/url"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

const marketsPageSize = 200

// Exchange implementa ports.Exchange contra el API de trading de Kalshi.
type Exchange struct {
	client *Client
}

// NewExchange crea el adapter sobre el client dado.
func NewExchange(client *Client) *Exchange {
	return &Exchange{client: client}
}

// ListOpenMarkets pagina GET /markets hasta agotar el cursor.
func (e *Exchange) ListOpenMarkets(ctx context.Context) ([]domain.Market, error) {
	var (
		markets []domain.Market
		cursor  string
	)
	for {
		q := url.Values{}
		q.Set("status", "open")
		q.Set("limit", fmt.Sprint(marketsPageSize))
		if cursor != "" {
			q.Set("cursor", cursor)
		}

		var resp marketsResponse
		if err := e.client.get(ctx, "/markets", q, &resp); err != nil {
			return nil, fmt.Errorf("kalshi.ListOpenMarkets: %w", err)
		}
		for _, r := range resp.Markets {
			markets = append(markets, mapMarket(r))
		}
		if resp.Cursor == "" || len(resp.Markets) == 0 {
			return markets, nil
		}
		cursor = resp.Cursor
	}
}

// GetMarket devuelve el snapshot actual de un mercado.
func (e *Exchange) GetMarket(ctx context.Context, ticker string) (domain.Market, error) {
	var resp marketResponse
	if err := e.client.get(ctx, "/markets/"+ticker, nil, &resp); err != nil {
		return domain.Market{}, fmt.Errorf("kalshi.GetMarket %s: %w", ticker, err)
	}
	return mapMarket(resp.Market), nil
}

// GetOrderBook devuelve el libro de órdenes de un mercado.
func (e *Exchange) GetOrderBook(ctx context.Context, ticker string) (domain.OrderBook, error) {
	var resp orderbookResponse
	if err := e.client.get(ctx, "/markets/"+ticker+"/orderbook", nil, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("kalshi.GetOrderBook %s: %w", ticker, err)
	}
	return mapOrderBook(ticker, resp.Orderbook), nil
}

// SubmitOrder coloca una orden límite. El client_order_id hace la colocación
// idempotente del lado del exchange: reenviar el mismo ID no duplica la orden.
func (e *Exchange) SubmitOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderState, error) {
	body := orderRequestDTO{
		Ticker:        req.Ticker,
		ClientOrderID: req.ClientID,
		Side:          string(req.Side),
		Action:        string(req.Action),
		Type:          "limit",
		Count:         req.Quantity,
	}
	if req.Side == domain.SideYes {
		body.YesPrice = req.Price
	} else {
		body.NoPrice = req.Price
	}

	var resp orderResponse
	if err := e.client.post(ctx, "/portfolio/orders", body, &resp); err != nil {
		return domain.OrderState{}, fmt.Errorf("kalshi.SubmitOrder %s: %w", req.Ticker, err)
	}
	return mapOrderState(resp.Order), nil
}

// GetOrder devuelve el estado actual de una orden.
func (e *Exchange) GetOrder(ctx context.Context, exchangeID string) (domain.OrderState, error) {
	var resp orderResponse
	if err := e.client.get(ctx, "/portfolio/orders/"+exchangeID, nil, &resp); err != nil {
		return domain.OrderState{}, fmt.Errorf("kalshi.GetOrder %s: %w", exchangeID, err)
	}
	return mapOrderState(resp.Order), nil
}

// CancelOrder pide la cancelación de una orden. El exchange puede seguir
// llenando entre la request y el cancel efectivo; el caller re-consulta.
func (e *Exchange) CancelOrder(ctx context.Context, exchangeID string) error {
	if err := e.client.del(ctx, "/portfolio/orders/"+exchangeID, nil); err != nil {
		return fmt.Errorf("kalshi.CancelOrder %s: %w", exchangeID, err)
	}
	return nil
}

// GetBalance devuelve el cash disponible en centavos.
func (e *Exchange) GetBalance(ctx context.Context) (int64, error) {
	var resp balanceResponse
	if err := e.client.get(ctx, "/portfolio/balance", nil, &resp); err != nil {
		return 0, fmt.Errorf("kalshi.GetBalance: %w", err)
	}
	return resp.Balance, nil
}
