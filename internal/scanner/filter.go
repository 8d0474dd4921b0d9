package scanner

import (
	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// FilterConfig contiene los criterios rápidos de pre-filtrado que se aplican
// antes de pedir orderbooks (cada orderbook cuesta una request).
type FilterConfig struct {
	// MinVolume descarta mercados con menos contratos negociados en total.
	MinVolume int64
	// MinVolume24h descarta mercados sin actividad reciente.
	MinVolume24h int64
	// MinProbability descarta mercados donde el lado favorito implica menos probabilidad.
	MinProbability float64
	// MaxProbability descarta mercados ya casi resueltos (precio pegado a 99c).
	MaxProbability float64
	// MaxHoursToClose descarta mercados que cierran demasiado lejos.
	MaxHoursToClose float64
	// MinHoursToClose descarta mercados a punto de cerrar.
	MinHoursToClose float64
}

// DefaultFilterConfig devuelve un filtrado conservador: favoritos claros con
// actividad reciente y resolución cercana.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		MinVolume:       10_000,
		MinVolume24h:    500,
		MinProbability:  0.70,
		MaxProbability:  0.95,
		MaxHoursToClose: 72,
		MinHoursToClose: 1,
	}
}

// Filter aplica los criterios de pre-filtrado sobre mercados.
type Filter struct {
	cfg FilterConfig
}

// NewFilter crea un Filter con la configuración dada.
func NewFilter(cfg FilterConfig) *Filter {
	return &Filter{cfg: cfg}
}

// passes devuelve true si el mercado supera todos los criterios rápidos.
func (f *Filter) passes(m domain.Market) bool {
	if !m.Tradable() || !m.HasLiquidity() {
		return false
	}
	if m.Volume < f.cfg.MinVolume {
		return false
	}
	if f.cfg.MinVolume24h > 0 && m.Volume24h < f.cfg.MinVolume24h {
		return false
	}

	side := m.HighProbabilitySide()
	if side == "" {
		// Precios empatados: no hay favorito.
		return false
	}
	prob := m.Probability(side)
	if prob < f.cfg.MinProbability || prob > f.cfg.MaxProbability {
		return false
	}

	hours := m.HoursToClose()
	if hours <= 0 {
		return false
	}
	if f.cfg.MaxHoursToClose > 0 && hours > f.cfg.MaxHoursToClose {
		return false
	}
	if f.cfg.MinHoursToClose > 0 && hours < f.cfg.MinHoursToClose {
		return false
	}
	return true
}
