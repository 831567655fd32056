package planner

import "math/rand/v2"

// Rand is the randomness the planner draws from.
type Rand interface {
	IntN(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// globalRand uses the goroutine-safe top-level math/rand/v2 functions.
type globalRand struct{}

func (globalRand) IntN(n int) int                     { return rand.IntN(n) }
func (globalRand) Float64() float64                   { return rand.Float64() }
func (globalRand) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// DefaultRand is safe for concurrent use.
var DefaultRand Rand = globalRand{}

// poolTier names which candidates a draw is made from.
type poolTier int

const (
	// tierEmpty: no candidates at all.
	tierEmpty poolTier = iota
	// tierFresh: at least one candidate is unused; draw among unused only.
	tierFresh
	// tierRepeat: every candidate is used; draw among all of them.
	tierRepeat
)

type weightedDish struct {
	dish   string
	weight float64
}

// candidatePool applies the fallback table. Weights are always the rank
// weights of the full list (n - i), also after filtering.
func candidatePool(candidates []string, used DishSet) ([]weightedDish, poolTier) {
	n := len(candidates)
	if n == 0 {
		return nil, tierEmpty
	}

	fresh := make([]weightedDish, 0, n)
	for i, dish := range candidates {
		if !used.has(dish) {
			fresh = append(fresh, weightedDish{dish: dish, weight: float64(n - i)})
		}
	}
	if len(fresh) > 0 {
		return fresh, tierFresh
	}

	all := make([]weightedDish, n)
	for i, dish := range candidates {
		all[i] = weightedDish{dish: dish, weight: float64(n - i)}
	}
	return all, tierRepeat
}

// Select picks one dish from candidates. Dishes in used are only repeated when
// every candidate has been used already. The second result is false when
// candidates is empty.
func Select(rng Rand, candidates []string, used DishSet, policy SelectionPolicy) (string, bool) {
	pool, tier := candidatePool(candidates, used)
	if tier == tierEmpty {
		return "", false
	}
	if rng == nil {
		rng = DefaultRand
	}

	if policy == PolicyUniform {
		return pool[rng.IntN(len(pool))].dish, true
	}
	return drawWeighted(rng, pool), true
}

func drawWeighted(rng Rand, pool []weightedDish) string {
	var total float64
	for _, c := range pool {
		total += c.weight
	}
	if total <= 0 {
		return pool[0].dish
	}

	r := rng.Float64() * total
	for _, c := range pool {
		r -= c.weight
		if r <= 0 {
			return c.dish
		}
	}
	return pool[len(pool)-1].dish
}
