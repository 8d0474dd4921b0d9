package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// TradeJournal persiste el historial de trading: órdenes terminales,
// round-trips cerrados y resúmenes diarios.
type TradeJournal interface {
	// SaveOrder hace upsert de una orden terminal por client_id.
	SaveOrder(ctx context.Context, order domain.Order) error

	// SaveTrade registra un round-trip cerrado con su P&L realizado.
	SaveTrade(ctx context.Context, trade domain.Trade) error

	// GetTrades devuelve los round-trips cerrados en el rango dado.
	GetTrades(ctx context.Context, from, to time.Time) ([]domain.Trade, error)

	// SaveDaily hace upsert del resumen del día.
	SaveDaily(ctx context.Context, d domain.DailySummary) error

	// GetDailies devuelve todos los resúmenes diarios, más recientes primero.
	GetDailies(ctx context.Context) ([]domain.DailySummary, error)

	Close() error
}
