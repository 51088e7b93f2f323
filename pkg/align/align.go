// Package align maps one series of positions onto another while keeping
// their order. It is used to carry modification sites from one set of
// candidate positions to another.
package align

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Absent is the target of a source position that could not be matched.
const Absent = math.MinInt

// Mapping maps source positions to target positions or Absent.
type Mapping map[int]int

// Matched returns the number of sources with a target.
func (m Mapping) Matched() int {
	n := 0
	for _, t := range m {
		if t != Absent {
			n++
		}
	}
	return n
}

// Targets returns the matched targets, ascending.
func (m Mapping) Targets() []int {
	targets := make([]int, 0, len(m))
	for _, t := range m {
		if t != Absent {
			targets = append(targets, t)
		}
	}
	sort.Ints(targets)
	return targets
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sortedUnique(s []int) []int {
	r := make([]int, len(s))
	copy(r, s)
	sort.Ints(r)
	j := 0
	for i, v := range r {
		if i == 0 || v != r[j-1] {
			r[j] = v
			j++
		}
	}
	return r[:j]
}

// Align greedily maps a onto b in a single ascending pass. Each target is
// used at most once and the mapping never crosses: if x < y are both
// matched then m[x] < m[y].
//
// Leading sources that lie further from b's first element than their
// successor are left Absent. A target that is at least as close to the
// next source as to the current one is never taken by the current source.
// Except for the last source, a target at or below the source is preferred
// (the closest one), and a target above is only taken when nothing at or
// below qualifies. The last source takes its nearest remaining target.
// Among equidistant targets the first one encountered wins.
func Align(a, b []int) Mapping {
	sa := sortedUnique(a)
	sb := sortedUnique(b)

	m := make(Mapping, len(sa))
	if len(sa) == 0 {
		return m
	}
	if len(sb) == 0 {
		for _, x := range sa {
			m[x] = Absent
		}
		return m
	}

	i := 0
	for ; i < len(sa)-1 && abs(sa[i+1]-sb[0]) < abs(sa[i]-sb[0]); i++ {
		m[sa[i]] = Absent
	}

	cursor := 0
	for ; i < len(sa); i++ {
		x := sa[i]
		last := i == len(sa)-1
		best := -1
		for k := cursor; k < len(sb); k++ {
			y := sb[k]
			d := abs(y - x)
			if !last && abs(y-sa[i+1]) <= d {
				break
			}
			if best >= 0 && d >= abs(sb[best]-x) {
				break
			}
			if !last && best >= 0 && y > x {
				break
			}
			best = k
		}
		if best < 0 {
			m[x] = Absent
			continue
		}
		m[x] = sb[best]
		cursor = best + 1
	}

	return m
}

// AlignAll repeats Align on the sources left unmatched against the targets
// still unused, until every source is matched or the targets run out. The
// number of Absent sources is max(0, |a|-|b|) for distinct inputs.
func AlignAll(a, b []int) Mapping {
	sa := sortedUnique(a)
	free := sortedUnique(b)

	m := make(Mapping, len(sa))
	pending := sa
	for len(pending) > 0 && len(free) > 0 {
		round := Align(pending, free)

		used := make(map[int]bool, len(round))
		var next []int
		for _, x := range pending {
			t := round[x]
			if t == Absent {
				next = append(next, x)
				continue
			}
			m[x] = t
			used[t] = true
		}
		if len(used) == 0 {
			break
		}

		remaining := free[:0:0]
		for _, y := range free {
			if !used[y] {
				remaining = append(remaining, y)
			}
		}
		free = remaining
		pending = next
	}

	for _, x := range pending {
		m[x] = Absent
	}
	return m
}

// AlignAllSets maps every key onto one of its own candidates, never using a
// candidate twice. Keys with the fewest remaining candidates are resolved
// first; keys of that size sharing the same candidate set are resolved
// together with AlignAll. Chosen candidates are withdrawn from the other
// keys and keys left without candidates are Absent.
func AlignAllSets(candidates map[int][]int) Mapping {
	remaining := make(map[int][]int, len(candidates))
	for k, c := range candidates {
		remaining[k] = sortedUnique(c)
	}

	m := make(Mapping, len(candidates))
	for len(remaining) > 0 {
		minSize := -1
		for k, c := range remaining {
			if len(c) == 0 {
				m[k] = Absent
				delete(remaining, k)
				continue
			}
			if minSize < 0 || len(c) < minSize {
				minSize = len(c)
			}
		}
		if minSize < 0 {
			break
		}

		groups := make(map[string][]int)
		var groupOrder []string
		for _, k := range sortedKeys(remaining) {
			c := remaining[k]
			if len(c) != minSize {
				continue
			}
			sig := signature(c)
			if _, ok := groups[sig]; !ok {
				groupOrder = append(groupOrder, sig)
			}
			groups[sig] = append(groups[sig], k)
		}

		used := make(map[int]bool)
		for _, sig := range groupOrder {
			keys := groups[sig]
			shared := remaining[keys[0]]
			avail := make([]int, 0, len(shared))
			for _, y := range shared {
				if !used[y] {
					avail = append(avail, y)
				}
			}
			for k, t := range AlignAll(keys, avail) {
				m[k] = t
				if t != Absent {
					used[t] = true
				}
				delete(remaining, k)
			}
		}

		for k, c := range remaining {
			kept := c[:0:0]
			for _, y := range c {
				if !used[y] {
					kept = append(kept, y)
				}
			}
			remaining[k] = kept
		}
	}

	return m
}

func sortedKeys(m map[int][]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func signature(s []int) string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
