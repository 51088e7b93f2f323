// Package assign chooses modification sites on a peptide. Given, per
// modification mass, the eligible sites with their scores and the number of
// occurrences of that mass, it selects mutually exclusive sites maximizing
// the total score.
package assign

import (
	"sort"

	"github.com/willf/bitset"
)

// Problem is the site choice for one modification mass.
type Problem struct {
	Mass        float64
	Occurrences int
	Scores      map[int]float64 // eligible site -> score
}

// Solution holds the chosen sites per mass, ascending.
type Solution struct {
	Sites map[float64][]int
	Total float64
}

// Pairs returns the number of (mass, site) pairs in the solution.
func (s Solution) Pairs() int {
	n := 0
	for _, sites := range s.Sites {
		n += len(sites)
	}
	return n
}

// Required returns the number of occurrences over all problems.
func Required(problems []Problem) int {
	n := 0
	for _, p := range problems {
		n += p.Occurrences
	}
	return n
}

// epsilon absorbs rounding when comparing score totals
const epsilon = 1e-9

// cost orders partial assignments by score first, then by where the sites
// fall. The site component is a weighted site sum, lighter masses weighing
// more, so that among equal scores the lowest sites go to the lightest masses.
type cost struct {
	score float64 // negated score
	sites int
}

func (c cost) add(o cost) cost {
	return cost{score: c.score + o.score, sites: c.sites + o.sites}
}

func (c cost) neg() cost {
	return cost{score: -c.score, sites: -c.sites}
}

func (c cost) less(o cost) bool {
	if d := c.score - o.score; d < -epsilon || d > epsilon {
		return d < 0
	}
	return c.sites < o.sites
}

type edge struct {
	to, rev  int
	capacity int
	cost     cost
	score    float64
	forward  bool
}

// network is a flow network source -> mass -> site -> sink. A mass node has
// the occurrence count as capacity, a site node capacity one.
type network struct {
	edges [][]edge
}

func (n *network) addEdge(from, to, capacity int, c cost, score float64) {
	n.edges[from] = append(n.edges[from], edge{to: to, rev: len(n.edges[to]), capacity: capacity, cost: c, score: score, forward: true})
	n.edges[to] = append(n.edges[to], edge{to: from, rev: len(n.edges[from]) - 1, cost: c.neg()})
}

// shortestPath finds the cheapest augmenting path with Bellman-Ford, as the
// residual network carries negative costs. It returns, per node, the edge it
// was reached through.
func (n *network) shortestPath(source, sink int) ([]int, []int, bool) {
	size := len(n.edges)
	dist := make([]cost, size)
	prevNode := make([]int, size)
	prevEdge := make([]int, size)
	reached := bitset.New(uint(size))
	queued := bitset.New(uint(size))

	reached.Set(uint(source))
	queued.Set(uint(source))
	queue := []int{source}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		queued.Clear(uint(u))

		for i, e := range n.edges[u] {
			if e.capacity == 0 {
				continue
			}
			d := dist[u].add(e.cost)
			if reached.Test(uint(e.to)) && !d.less(dist[e.to]) {
				continue
			}
			dist[e.to] = d
			reached.Set(uint(e.to))
			prevNode[e.to] = u
			prevEdge[e.to] = i
			if !queued.Test(uint(e.to)) {
				queued.Set(uint(e.to))
				queue = append(queue, e.to)
			}
		}
	}
	return prevNode, prevEdge, reached.Test(uint(sink))
}

func (n *network) augment(source, sink int, prevNode, prevEdge []int) {
	for v := sink; v != source; v = prevNode[v] {
		e := &n.edges[prevNode[v]][prevEdge[v]]
		e.capacity--
		n.edges[v][e.rev].capacity++
	}
}

// Solve returns an optimal exclusive assignment. It places as many
// occurrences as possible and, among those assignments, maximizes the total
// score. Among equal totals the lowest sites go to the lightest masses. When
// the occurrences cannot all be placed, Pairs() falls short of Required().
func Solve(problems []Problem) Solution {
	sorted := make([]Problem, len(problems))
	copy(sorted, problems)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Mass < sorted[j].Mass
	})

	var sites []int
	siteNode := make(map[int]int)
	for _, p := range sorted {
		for site := range p.Scores {
			if _, ok := siteNode[site]; !ok && site >= 0 {
				siteNode[site] = 0
				sites = append(sites, site)
			}
		}
	}
	sort.Ints(sites)

	const source, sink = 0, 1
	massBase := 2
	siteBase := massBase + len(sorted)
	for k, site := range sites {
		siteNode[site] = siteBase + k
	}

	net := &network{edges: make([][]edge, siteBase+len(sites))}
	for i, p := range sorted {
		if p.Occurrences <= 0 {
			continue
		}
		net.addEdge(source, massBase+i, p.Occurrences, cost{}, 0)

		eligible := make([]int, 0, len(p.Scores))
		for site := range p.Scores {
			if site >= 0 {
				eligible = append(eligible, site)
			}
		}
		sort.Ints(eligible)
		weight := len(sorted) - i
		for _, site := range eligible {
			score := p.Scores[site]
			net.addEdge(massBase+i, siteNode[site], 1, cost{score: -score, sites: weight * site}, score)
		}
	}
	for k := range sites {
		net.addEdge(siteBase+k, sink, 1, cost{}, 0)
	}

	for {
		prevNode, prevEdge, ok := net.shortestPath(source, sink)
		if !ok {
			break
		}
		net.augment(source, sink, prevNode, prevEdge)
	}

	solution := Solution{Sites: make(map[float64][]int, len(sorted))}
	for i, p := range sorted {
		var chosen []int
		for _, e := range net.edges[massBase+i] {
			if e.forward && e.capacity == 0 && e.to >= siteBase {
				chosen = append(chosen, sites[e.to-siteBase])
				solution.Total += e.score
			}
		}
		sort.Ints(chosen)
		solution.Sites[p.Mass] = chosen
	}
	return solution
}
