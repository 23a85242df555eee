// Package pricing estimates unit prices for extracted line items.
package pricing

import (
	"math"
	"math/rand/v2"
	"sync"

	"go.uber.org/zap"

	"github.com/yahiadevs-max/Optimisation-CDC-par-IA/internal/project"
)

const (
	minBasePrice   = 50
	basePriceRange = 1000
	// volume discount never drops a price below this share of the base
	minMultiplier = 0.1
)

// Predictor assigns a simulated market price to every line item.
type Predictor struct {
	mu     sync.Mutex
	rng    *rand.Rand
	logger *zap.Logger
}

// New returns a predictor seeded from seed. A zero seed picks a random one.
func New(seed uint64, logger *zap.Logger) *Predictor {
	if seed == 0 {
		seed = rand.Uint64()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Predictor{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		logger: logger,
	}
}

// Predict returns priced copies of items, keeping ids and order.
func (p *Predictor) Predict(items []project.LineItem) []project.LineItem {
	priced := project.CloneItems(items)
	if priced == nil {
		return []project.LineItem{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range priced {
		quantity, err := priced[i].Quantity.Normalize()
		if err != nil {
			p.logger.Debug("quantity not numeric, pricing as single unit",
				zap.String("item_id", priced[i].ID),
				zap.String("quantity", priced[i].Quantity.String()),
				zap.Error(err),
			)
			quantity = math.NaN()
		}

		base := p.rng.Float64()*basePriceRange + minBasePrice
		unit := round2(base * multiplier(quantity))
		total := 0.0
		if quantity > 0 {
			total = round2(unit * quantity)
		}

		priced[i].UnitPrice = &unit
		priced[i].TotalPrice = &total
	}

	p.logger.Info("line items priced", zap.Int("count", len(priced)))
	return priced
}

// multiplier is the volume discount applied to the base price.
func multiplier(quantity float64) float64 {
	if math.IsNaN(quantity) || quantity <= 0 {
		quantity = 1
	}
	m := 1 - math.Log(quantity)/10
	if m < minMultiplier || math.IsNaN(m) {
		return minMultiplier
	}
	return m
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
