package vm

import (
	"sort"

	"github.com/dolthub/swiss"
	"golang.org/x/exp/slices"

	"github.com/splanck/viper-sub008/internal/il"
)

// switchBackend names the concrete lookup strategy a switchCache picked
// (spec §4.7 "Switch caching").
type switchBackend uint8

const (
	backendDense switchBackend = iota
	backendHashed
	backendSorted
	backendLinear
)

// switchCache is the memoized dispatch structure for one switch.i32
// instruction, built on its first execution and reused thereafter. -1
// denotes "no matching case; use the default edge."
type switchCache struct {
	backend switchBackend

	// backendDense: dense[v-min] is the case index, sized max-min+1.
	min   int32
	dense []int32

	// backendHashed: value -> case index.
	hashed *swiss.Map[int32, int32]

	// backendSorted / backendLinear: parallel sorted-by-value arrays,
	// binary-searched or scanned respectively.
	values  []int32
	indices []int32
}

// buildSwitchCache inspects in's case values once and selects a backend
// per spec §4.7's thresholds: a dense jump table when the value range is
// small and densely packed, a hash map when there are many sparse cases,
// and a sorted binary search otherwise. Duplicate case values keep only
// the first occurrence, per spec ("Duplicate case values in IL are
// ignored (first wins)").
func buildSwitchCache(in *il.Instruction, mode SwitchMode) *switchCache {
	type cv struct {
		val int32
		idx int32
	}
	seen := make(map[int32]bool, len(in.Cases))
	var entries []cv
	for i, c := range in.Cases {
		if seen[c.Value] {
			continue
		}
		seen[c.Value] = true
		entries = append(entries, cv{val: c.Value, idx: int32(i)})
	}
	slices.SortFunc(entries, func(a, b cv) int { return int(a.val) - int(b.val) })

	values := make([]int32, len(entries))
	indices := make([]int32, len(entries))
	for i, e := range entries {
		values[i] = e.val
		indices[i] = e.idx
	}

	backend := chooseBackend(mode, values)
	sc := &switchCache{backend: backend, values: values, indices: indices}

	switch backend {
	case backendDense:
		if len(values) == 0 {
			sc.min = 0
			sc.dense = nil
			return sc
		}
		sc.min = values[0]
		span := values[len(values)-1] - values[0] + 1
		sc.dense = make([]int32, span)
		for i := range sc.dense {
			sc.dense[i] = -1
		}
		for _, e := range entries {
			sc.dense[e.val-sc.min] = e.idx
		}
	case backendHashed:
		sc.hashed = swiss.NewMap[int32, int32](uint32(len(entries)))
		for _, e := range entries {
			sc.hashed.Put(e.val, e.idx)
		}
	}
	return sc
}

func chooseBackend(mode SwitchMode, values []int32) switchBackend {
	switch mode {
	case SwitchDense:
		return backendDense
	case SwitchSorted:
		return backendSorted
	case SwitchHashed:
		return backendHashed
	case SwitchLinear:
		return backendLinear
	}

	count := len(values)
	if count == 0 {
		return backendSorted
	}
	valRange := int64(values[count-1]) - int64(values[0]) + 1
	density := float64(count) / float64(valRange)

	if valRange <= 4096 && density >= 0.60 {
		return backendDense
	}
	if count >= 64 && density < 0.15 {
		return backendHashed
	}
	return backendSorted
}

// lookup returns the matching case index, or -1 for "use the default
// edge."
func (sc *switchCache) lookup(v int32) int32 {
	switch sc.backend {
	case backendDense:
		off := int64(v) - int64(sc.min)
		if off < 0 || off >= int64(len(sc.dense)) {
			return -1
		}
		return sc.dense[off]
	case backendHashed:
		idx, ok := sc.hashed.Get(v)
		if !ok {
			return -1
		}
		return idx
	case backendSorted:
		i := sort.Search(len(sc.values), func(i int) bool { return sc.values[i] >= v })
		if i < len(sc.values) && sc.values[i] == v {
			return sc.indices[i]
		}
		return -1
	default: // backendLinear
		for i, val := range sc.values {
			if val == v {
				return sc.indices[i]
			}
		}
		return -1
	}
}
