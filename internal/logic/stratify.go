package logic

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// FoldUnit is the smallest group of samples that must share a fold. Both
// teams of a match form one unit so a match is never split between the
// training and held-out side.
type FoldUnit struct {
	Key    string
	Wins   int
	Losses int
}

// stratum orders units loss-only, mixed, win-only.
func (u FoldUnit) stratum() int {
	switch {
	case u.Wins == 0:
		return 0
	case u.Losses == 0:
		return 2
	default:
		return 1
	}
}

// StratifiedFolds assigns every unit a fold in [0, k). Units are sorted by
// key, shuffled within their stratum with a PCG source seeded from seed, and
// dealt round robin, so each fold's win and loss counts stay within one unit
// of an even share. The result is indexed like units.
func StratifiedFolds(units []FoldUnit, k int, seed uint64) ([]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("stratified folds: k must be at least 2, got %d", k)
	}

	order := make([]int, len(units))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		ua, ub := units[order[a]], units[order[b]]
		if sa, sb := ua.stratum(), ub.stratum(); sa != sb {
			return sa < sb
		}
		return ua.Key < ub.Key
	})

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for start := 0; start < len(order); {
		end := start
		s := units[order[start]].stratum()
		for end < len(order) && units[order[end]].stratum() == s {
			end++
		}
		block := order[start:end]
		rng.Shuffle(len(block), func(i, j int) { block[i], block[j] = block[j], block[i] })
		start = end
	}

	assign := make([]int, len(units))
	for pos, idx := range order {
		assign[idx] = pos % k
	}
	return assign, nil
}
