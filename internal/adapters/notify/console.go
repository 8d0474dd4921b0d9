package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
// Con table=false imprime líneas compactas en vez de tablas.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// OrderTerminal imprime una línea por orden terminal.
func (c *Console) OrderTerminal(_ context.Context, o domain.Order) {
	now := time.Now().Format("15:04:05")
	kind := "ENTRY"
	if o.Action == domain.ActionSell {
		kind = "EXIT "
	}

	switch {
	case o.Status == domain.OrderFilled:
		fmt.Fprintf(c.out, "[%s] %s | %-24s | %s x%d @ %s\n",
			now, kind, o.Ticker, o.Side, o.FilledQuantity, cents(o.AvgFillPrice))
	case o.FilledQuantity > 0:
		fmt.Fprintf(c.out, "[%s] %s | %-24s | %s x%d/%d @ %s (%s)\n",
			now, kind, o.Ticker, o.Side, o.FilledQuantity, o.Quantity,
			cents(o.AvgFillPrice), o.Status)
	default:
		reason := o.Reason
		if reason == "" {
			reason = string(o.Status)
		}
		fmt.Fprintf(c.out, "[%s] %s | %-24s | unfilled: %s\n", now, kind, o.Ticker, reason)
	}
}

// TradeClosed imprime el round-trip cerrado con su P&L.
func (c *Console) TradeClosed(_ context.Context, t domain.Trade) {
	now := time.Now().Format("15:04:05")
	sign := "+"
	if t.PnL < 0 {
		sign = ""
	}
	fmt.Fprintf(c.out, "[%s] CLOSE | %-24s | %s x%d  %s → %s  pnl %s$%.2f (%s)\n",
		now, t.Ticker, t.Side, t.Quantity,
		cents(t.EntryPrice), cents(t.ExitPrice),
		sign, float64(t.PnL)/100, t.Reason)
}

// ReportPortfolio imprime el estado del portfolio. En modo tabla lista cada
// posición abierta; en modo compacto una sola línea de resumen.
func (c *Console) ReportPortfolio(_ context.Context, snap domain.PortfolioSnapshot, positions []domain.Position) error {
	now := time.Now().Format("15:04:05")

	if !c.table || len(positions) == 0 {
		fmt.Fprintf(c.out, "[%s] PORTFOLIO | cash $%.2f | positions %d ($%.2f) | realized $%.2f | total $%.2f\n",
			now, dollars(snap.Cash), snap.OpenPositions, dollars(snap.CostBasis),
			dollars(snap.RealizedPnL), dollars(snap.TotalValue()))
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] PORTFOLIO — cash $%.2f | realized $%.2f | total $%.2f\n",
		now, dollars(snap.Cash), dollars(snap.RealizedPnL), dollars(snap.TotalValue()))

	table := tablewriter.NewWriter(c.out)
	table.Header("Ticker", "Side", "Qty", "Entry", "Cost", "Status", "Age")

	for _, p := range positions {
		table.Append(
			p.Ticker,
			string(p.Side),
			fmt.Sprintf("%d", p.Quantity),
			cents(p.AvgEntryPrice),
			fmt.Sprintf("$%.2f", dollars(p.CostBasis())),
			string(p.Status),
			time.Since(p.EnteredAt).Truncate(time.Minute).String(),
		)
	}
	table.Render()
	fmt.Fprintln(c.out)
	return nil
}

func cents(v int64) string {
	return fmt.Sprintf("%d¢", v)
}

func dollars(v int64) float64 {
	return float64(v) / 100
}
