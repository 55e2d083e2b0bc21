// internal/sampling/stratified.go

// Package sampling draws reproducible, category-proportional subsets of questions.
package sampling

import (
	"math/rand"
	"sort"
)

// Stratified returns n items drawn so that each category keeps roughly its share
// of the population. Every category contributes at least one item. The result is
// shuffled; the same rng state always yields the same sample.
func Stratified[T any](items []T, n int, category func(T) string, rng *rand.Rand) []T {
	if len(items) == 0 || n <= 0 {
		return []T{}
	}
	if n >= len(items) {
		out := make([]T, len(items))
		copy(out, items)
		return out
	}

	byCategory := map[string][]int{}
	for i, item := range items {
		cat := category(item)
		if cat == "" {
			cat = "unknown"
		}
		byCategory[cat] = append(byCategory[cat], i)
	}
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	sort.Strings(names)

	total := len(items)
	var picked []int
	for _, name := range names {
		idx := byCategory[name]
		quota := n * len(idx) / total
		if quota < 1 {
			quota = 1
		}
		picked = append(picked, sampleIndices(rng, idx, quota)...)
	}

	if len(picked) > n {
		picked = sampleIndices(rng, picked, n)
	} else if len(picked) < n {
		chosen := make(map[int]struct{}, len(picked))
		for _, i := range picked {
			chosen[i] = struct{}{}
		}
		var remaining []int
		for i := range items {
			if _, ok := chosen[i]; !ok {
				remaining = append(remaining, i)
			}
		}
		picked = append(picked, sampleIndices(rng, remaining, n-len(picked))...)
	}

	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })

	out := make([]T, 0, len(picked))
	for _, i := range picked {
		out = append(out, items[i])
	}
	return out
}

// StratifiedSeed is Stratified with a fresh source seeded by seed.
func StratifiedSeed[T any](items []T, n int, category func(T) string, seed int64) []T {
	return Stratified(items, n, category, rand.New(rand.NewSource(seed)))
}

// sampleIndices draws k distinct entries of pool uniformly without replacement.
// pool is not modified.
func sampleIndices(rng *rand.Rand, pool []int, k int) []int {
	if k > len(pool) {
		k = len(pool)
	}
	if k <= 0 {
		return nil
	}
	work := make([]int, len(pool))
	copy(work, pool)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(work)-i)
		work[i], work[j] = work[j], work[i]
	}
	return work[:k]
}
