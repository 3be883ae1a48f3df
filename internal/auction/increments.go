package auction

import (
	"github.com/jensholdgaard/player-auction/internal/config"
	"github.com/jensholdgaard/player-auction/internal/model"
)

// incrementTable is the monotonic, discrete bid step policy: a pure
// function of the current bid magnitude. The exact thresholds are a
// business tunable from configuration, not a structural invariant.
type incrementTable struct {
	steps []config.BidStep
	final model.Money
}

func newIncrementTable(steps []config.BidStep, final int64) incrementTable {
	return incrementTable{steps: steps, final: model.Money(final)}
}

// next returns the increment applied on top of the given bid.
func (t incrementTable) next(bid model.Money) model.Money {
	for _, s := range t.steps {
		if bid < model.Money(s.Below) {
			return model.Money(s.Increment)
		}
	}
	return t.final
}
