package domain

import "time"

// Opportunity es un mercado que pasó todos los filtros del scanner y es
// candidato a entrada. Snapshot inmutable: se consume una vez por decisión
// de sizing y nunca se muta.
type Opportunity struct {
	Ticker      string
	Title       string
	Side        Side    // lado recomendado (mayor probabilidad)
	EntryPrice  int64   // mejor ask del lado recomendado, centavos
	Probability float64 // probabilidad implícita del lado recomendado (0-1)
	Liquidity   int64   // liquidez del orderbook en centavos
	Volume      int64   // contratos negociados
	TimeToClose time.Duration
	ScannedAt   time.Time
}

// ProfitPerContract devuelve la ganancia por contrato si el mercado
// liquida a favor (settlement a 100¢).
func (o Opportunity) ProfitPerContract() int64 {
	return 100 - o.EntryPrice
}
