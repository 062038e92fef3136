// Package tips segments users by income and debt presence and serves
// educational tips without repeating one until the corpus is exhausted.
package tips

import (
	"math/rand"
	"slices"

	"github.com/shopspring/decimal"

	"plata/internal/core"
)

// Level buckets total monthly income into the five segmentation tiers the
// tip corpus is tagged with.
type Level string

const (
	Nivel1 Level = "Nivel 1"
	Nivel2 Level = "Nivel 2"
	Nivel3 Level = "Nivel 3"
	Nivel4 Level = "Nivel 4"
	Nivel5 Level = "Nivel 5"

	// AllLevels is the wildcard tag a tip may carry instead of a tier.
	AllLevels = "Todos"
)

// Condition captures whether the user currently has any registered debt.
type Condition string

const (
	WithDebt    Condition = "Con deudas"
	WithoutDebt Condition = "Sin deudas"
)

// LevelForIncome maps total monthly income to a tier. Thresholds are
// inclusive at the lower bound, exclusive at the upper.
func LevelForIncome(totalIncome decimal.Decimal) Level {
	switch {
	case totalIncome.LessThan(decimal.NewFromInt(9000)):
		return Nivel1
	case totalIncome.LessThan(decimal.NewFromInt(30000)):
		return Nivel2
	case totalIncome.LessThan(decimal.NewFromInt(80000)):
		return Nivel3
	case totalIncome.LessThan(decimal.NewFromInt(150000)):
		return Nivel4
	default:
		return Nivel5
	}
}

// ConditionForDebts returns the debt-presence tag.
func ConditionForDebts(hasAnyDebt bool) Condition {
	if hasAnyDebt {
		return WithDebt
	}
	return WithoutDebt
}

// Selector picks tips uniformly at random among eligible candidates. The
// random source is injectable so tests can be deterministic.
type Selector struct {
	rng *rand.Rand
}

// NewSelector builds a selector around the given source; nil falls back
// to the shared global source.
func NewSelector(rng *rand.Rand) *Selector {
	return &Selector{rng: rng}
}

func (s *Selector) intn(n int) int {
	if s != nil && s.rng != nil {
		return s.rng.Intn(n)
	}
	return rand.Intn(n)
}

// Eligible filters the corpus down to tips matching the level (or the
// wildcard) and the condition, excluding already-shown ids.
func Eligible(corpus []core.Tip, level Level, condition Condition, excludedIDs []string) []core.Tip {
	var out []core.Tip
	for _, tip := range corpus {
		if !slices.Contains(tip.IncomeLevels, string(level)) && !slices.Contains(tip.IncomeLevels, AllLevels) {
			continue
		}
		if !slices.Contains(tip.Conditions, string(condition)) {
			continue
		}
		if slices.Contains(excludedIDs, tip.ID) {
			continue
		}
		out = append(out, tip)
	}
	return out
}

// PickNext returns a uniformly random eligible tip, or nil when none
// remains. When the exclusion list is what exhausted the candidates, it
// retries once with the list reset; resetExclusions reports that the
// caller should persist an empty shown-ids list before appending the
// returned tip's id.
func (s *Selector) PickNext(corpus []core.Tip, level Level, condition Condition, excludedIDs []string) (tip *core.Tip, resetExclusions bool) {
	candidates := Eligible(corpus, level, condition, excludedIDs)
	if len(candidates) == 0 && len(excludedIDs) > 0 {
		candidates = Eligible(corpus, level, condition, nil)
		resetExclusions = true
	}
	if len(candidates) == 0 {
		return nil, false
	}
	chosen := candidates[s.intn(len(candidates))]
	return &chosen, resetExclusions
}
