package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/kalshibot/internal/domain"
	"github.com/alejandrodnm/kalshibot/internal/ports"
)

// Config contiene la configuración del scanner.
type Config struct {
	Filter FilterConfig
	// MinLiquidityCents exige al menos esta liquidez (en cents) en el book
	// dentro de la banda de profundidad.
	MinLiquidityCents int64
	// DepthCents define la banda alrededor del mejor precio donde se mide liquidez.
	DepthCents int64
	// MaxResults limita las oportunidades devueltas por ciclo (0 = sin límite).
	MaxResults int
}

// Scanner busca mercados de alta probabilidad con liquidez suficiente.
// Implementa ports.OpportunitySource.
type Scanner struct {
	ex     ports.Exchange
	filter *Filter
	cfg    Config
}

// New crea un Scanner sobre el exchange dado.
func New(ex ports.Exchange, cfg Config) *Scanner {
	if cfg.DepthCents <= 0 {
		cfg.DepthCents = 5
	}
	return &Scanner{
		ex:     ex,
		filter: NewFilter(cfg.Filter),
		cfg:    cfg,
	}
}

// Scan hace fetch → pre-filter → book check → rank y devuelve oportunidades.
// El pre-filtrado va primero porque cada orderbook es una request: solo se
// piden books de mercados que ya pasaron los criterios baratos.
func (s *Scanner) Scan(ctx context.Context) ([]domain.Opportunity, error) {
	start := time.Now()

	markets, err := s.ex.ListOpenMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanner.Scan: list markets: %w", err)
	}

	candidates := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if s.filter.passes(m) {
			candidates = append(candidates, m)
		}
	}

	opps := make([]domain.Opportunity, 0, len(candidates))
	for _, m := range candidates {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		opp, ok, err := s.inspect(ctx, m)
		if err != nil {
			if errors.Is(err, domain.ErrRateGateTimeout) {
				// Presupuesto de requests agotado: devolver lo que hay.
				slog.Debug("scanner: rate gate saturado, ciclo recortado",
					"inspected", len(opps), "pending", len(candidates))
				break
			}
			slog.Warn("scanner: book fetch failed", "ticker", m.Ticker, "err", err)
			continue
		}
		if ok {
			opps = append(opps, opp)
		}
	}

	ranked := rankByProbability(opps)
	if s.cfg.MaxResults > 0 && len(ranked) > s.cfg.MaxResults {
		ranked = ranked[:s.cfg.MaxResults]
	}

	slog.Info("scanner: cycle complete",
		"markets", len(markets),
		"candidates", len(candidates),
		"opportunities", len(ranked),
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return ranked, nil
}

// inspect valida la liquidez real del book y construye la oportunidad.
func (s *Scanner) inspect(ctx context.Context, m domain.Market) (domain.Opportunity, bool, error) {
	book, err := s.ex.GetOrderBook(ctx, m.Ticker)
	if err != nil {
		return domain.Opportunity{}, false, err
	}

	side := m.HighProbabilitySide()
	liquidity := book.LiquidityWithin(side, s.cfg.DepthCents)
	if liquidity < s.cfg.MinLiquidityCents {
		return domain.Opportunity{}, false, nil
	}

	entry := book.BestAsk(side)
	if entry <= 0 {
		entry = m.SideAsk(side)
	}
	if entry <= 0 {
		return domain.Opportunity{}, false, nil
	}

	return domain.Opportunity{
		Ticker:      m.Ticker,
		Title:       m.Title,
		Side:        side,
		EntryPrice:  entry,
		Probability: m.Probability(side),
		Liquidity:   liquidity,
		Volume:      m.Volume,
		TimeToClose: time.Duration(m.HoursToClose() * float64(time.Hour)),
		ScannedAt:   time.Now().UTC(),
	}, true, nil
}

// rankByProbability ordena por probabilidad descendente; a igual probabilidad
// gana el mercado con más liquidez.
func rankByProbability(opps []domain.Opportunity) []domain.Opportunity {
	sort.Slice(opps, func(i, j int) bool {
		if opps[i].Probability != opps[j].Probability {
			return opps[i].Probability > opps[j].Probability
		}
		return opps[i].Liquidity > opps[j].Liquidity
	})
	return opps
}
