package storage

// sqlite.go — journal de trading sobre SQLite (pure Go, sin CGo).
//
// Tres tablas:
//   - `orders`: una fila por orden terminal (UPSERT por client_id). Las
//     órdenes re-consultadas tras un cancel se reescriben con el fill final.
//   - `trades`: una fila por round-trip cerrado, append-only.
//   - `dailies`: resumen por día (UPSERT por fecha).
//
// Todos los importes en centavos enteros, igual que el dominio.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    client_id    TEXT PRIMARY KEY,
    exchange_id  TEXT,
    ticker       TEXT    NOT NULL,
    side         TEXT    NOT NULL,
    action       TEXT    NOT NULL,
    price        INTEGER NOT NULL,
    quantity     INTEGER NOT NULL,
    status       TEXT    NOT NULL,
    filled_qty   INTEGER NOT NULL DEFAULT 0,
    avg_price    INTEGER NOT NULL DEFAULT 0,
    tag          TEXT,
    reason       TEXT,
    created_at   DATETIME NOT NULL,
    closed_at    DATETIME
);

CREATE TABLE IF NOT EXISTS trades (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    ticker      TEXT    NOT NULL,
    side        TEXT    NOT NULL,
    quantity    INTEGER NOT NULL,
    entry_price INTEGER NOT NULL,
    exit_price  INTEGER NOT NULL,
    pnl         INTEGER NOT NULL,
    reason      TEXT,
    closed_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS dailies (
    date           TEXT PRIMARY KEY,
    entries        INTEGER NOT NULL DEFAULT 0,
    exits          INTEGER NOT NULL DEFAULT 0,
    contracts_in   INTEGER NOT NULL DEFAULT 0,
    contracts_out  INTEGER NOT NULL DEFAULT 0,
    realized_pnl   INTEGER NOT NULL DEFAULT 0,
    open_positions INTEGER NOT NULL DEFAULT 0,
    cash           INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_orders_ticker ON orders(ticker);
CREATE INDEX IF NOT EXISTS idx_trades_closed ON trades(closed_at DESC);
`

const dateLayout = "2006-01-02"

// SQLiteJournal implementa ports.TradeJournal usando SQLite.
type SQLiteJournal struct {
	db *sql.DB
}

// NewSQLiteJournal abre (o crea) la base de datos en la ruta dada y aplica
// el schema. Usar ":memory:" en tests.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteJournal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteJournal: apply schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

// SaveOrder hace upsert de una orden terminal por client_id.
func (s *SQLiteJournal) SaveOrder(ctx context.Context, o domain.Order) error {
	var closedAt *time.Time
	if !o.ClosedAt.IsZero() {
		t := o.ClosedAt.UTC()
		closedAt = &t
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO orders
			(client_id, exchange_id, ticker, side, action, price, quantity,
			 status, filled_qty, avg_price, tag, reason, created_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(client_id) DO UPDATE SET
			exchange_id = excluded.exchange_id,
			status      = excluded.status,
			filled_qty  = excluded.filled_qty,
			avg_price   = excluded.avg_price,
			reason      = excluded.reason,
			closed_at   = excluded.closed_at
	`,
		o.ClientID, o.ExchangeID, o.Ticker, string(o.Side), string(o.Action),
		o.Price, o.Quantity, string(o.Status), o.FilledQuantity, o.AvgFillPrice,
		o.Tag, o.Reason, o.CreatedAt.UTC(), closedAt,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveOrder %s: %w", o.ClientID, err)
	}
	return nil
}

// SaveTrade registra un round-trip cerrado. Append-only.
func (s *SQLiteJournal) SaveTrade(ctx context.Context, t domain.Trade) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (ticker, side, quantity, entry_price, exit_price, pnl, reason, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.Ticker, string(t.Side), t.Quantity, t.EntryPrice, t.ExitPrice,
		t.PnL, t.Reason, t.ClosedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveTrade %s: %w", t.Ticker, err)
	}
	return nil
}

// GetTrades devuelve los round-trips cerrados en [from, to), más recientes primero.
func (s *SQLiteJournal) GetTrades(ctx context.Context, from, to time.Time) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ticker, side, quantity, entry_price, exit_price, pnl, reason, closed_at
		FROM trades
		WHERE closed_at >= ? AND closed_at < ?
		ORDER BY closed_at DESC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.GetTrades: query: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			t    domain.Trade
			side string
		)
		if err := rows.Scan(&t.ID, &t.Ticker, &side, &t.Quantity,
			&t.EntryPrice, &t.ExitPrice, &t.PnL, &t.Reason, &t.ClosedAt); err != nil {
			return nil, fmt.Errorf("storage.GetTrades: scan row: %w", err)
		}
		t.Side = domain.Side(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SaveDaily hace upsert del resumen del día (clave = fecha YYYY-MM-DD).
func (s *SQLiteJournal) SaveDaily(ctx context.Context, d domain.DailySummary) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dailies
			(date, entries, exits, contracts_in, contracts_out, realized_pnl, open_positions, cash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			entries        = excluded.entries,
			exits          = excluded.exits,
			contracts_in   = excluded.contracts_in,
			contracts_out  = excluded.contracts_out,
			realized_pnl   = excluded.realized_pnl,
			open_positions = excluded.open_positions,
			cash           = excluded.cash
	`,
		d.Date.UTC().Format(dateLayout), d.Entries, d.Exits,
		d.ContractsIn, d.ContractsOut, d.RealizedPnL, d.OpenPositions, d.Cash,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveDaily %s: %w", d.Date.Format(dateLayout), err)
	}
	return nil
}

// GetDailies devuelve todos los resúmenes diarios, más recientes primero.
func (s *SQLiteJournal) GetDailies(ctx context.Context) ([]domain.DailySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, entries, exits, contracts_in, contracts_out, realized_pnl, open_positions, cash
		FROM dailies
		ORDER BY date DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("storage.GetDailies: query: %w", err)
	}
	defer rows.Close()

	var dailies []domain.DailySummary
	for rows.Next() {
		var (
			d    domain.DailySummary
			date string
		)
		if err := rows.Scan(&date, &d.Entries, &d.Exits, &d.ContractsIn,
			&d.ContractsOut, &d.RealizedPnL, &d.OpenPositions, &d.Cash); err != nil {
			return nil, fmt.Errorf("storage.GetDailies: scan row: %w", err)
		}
		d.Date, _ = time.Parse(dateLayout, date)
		dailies = append(dailies, d)
	}
	return dailies, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteJournal) Close() error {
	return s.db.Close()
}
