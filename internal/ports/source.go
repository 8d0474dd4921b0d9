package ports

import (
	"context"

	"github.com/alejandrodnm/kalshibot/internal/domain"
)

// OpportunitySource produce los mercados que califican para entrada.
// Cada Scan es una pasada completa y reiniciable; el orden solo refleja
// "lo más recientemente observado".
type OpportunitySource interface {
	Scan(ctx context.Context) ([]domain.Opportunity, error)
}
