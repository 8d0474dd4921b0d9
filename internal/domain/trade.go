package domain

import "time"

// Trade es un round-trip cerrado: entrada y salida reconciliadas con P&L
// realizado. Se persiste en el journal al cerrar (parcialmente) una posición.
type Trade struct {
	ID         int64
	Ticker     string
	Side       Side
	Quantity   int64
	EntryPrice int64 // centavos, promedio
	ExitPrice  int64 // centavos, promedio
	PnL        int64 // centavos
	Reason     string // "profit_target" | "stop_loss" | "manual"
	ClosedAt   time.Time
}

// DailySummary es el resumen diario de actividad para el journal.
type DailySummary struct {
	Date          time.Time
	Entries       int
	Exits         int
	ContractsIn   int64
	ContractsOut  int64
	RealizedPnL   int64 // centavos
	OpenPositions int
	Cash          int64 // centavos, al cierre del día
}
