package cluster

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/teemow/inboxtriage/internal/features"
	"github.com/teemow/inboxtriage/internal/similarity"
)

// DefaultMaxIterations bounds the refinement loop.
const DefaultMaxIterations = 50

// ErrInvalidK is returned when k is not positive.
var ErrInvalidK = errors.New("cluster count must be positive")

// seedMix decorrelates the two PCG state words derived from one seed.
const seedMix = 0x9e3779b97f4a7c15

// Distances is a symmetric distance matrix. *mat.SymDense satisfies it.
type Distances interface {
	SymmetricDim() int
	At(i, j int) float64
}

// Options configures a clustering run.
type Options struct {
	// K is the maximum number of groups.
	K int
	// MaxIterations bounds refinement passes (default DefaultMaxIterations).
	MaxIterations int
	// Seed drives medoid seeding. Equal seeds give equal partitions.
	Seed uint64
	// MinClusterSize folds smaller groups into their nearest surviving
	// neighbour. Values <= 1 disable folding.
	MinClusterSize int
}

// Group is one cluster of the partition.
type Group struct {
	// Members are indices into the input, ascending.
	Members []int
	// Medoid is the member with the lowest total distance to the others.
	Medoid int
	// Cost is the summed distance of members to the medoid.
	Cost float64
}

// Partition is the result of a clustering run.
type Partition struct {
	// Groups are non-empty, disjoint and cover every input index. They are
	// ordered by their first member.
	Groups     []Group
	Iterations int
	// Converged is false when the iteration bound was hit first.
	Converged bool
	Cost      float64
}

// Assignments returns, for each of the n inputs, the index of its group.
func (p Partition) Assignments(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	for g, group := range p.Groups {
		for _, m := range group.Members {
			out[m] = g
		}
	}
	return out
}

// Vectors clusters feature vectors using the distance engine.
func Vectors(vs []features.FeatureVector, engine *similarity.Engine, opts Options) (Partition, error) {
	if len(vs) == 0 {
		return Cluster(nil, opts)
	}
	return Cluster(engine.Matrix(vs), opts)
}

// Cluster partitions the points described by d. A nil d or an empty matrix
// yields an empty, converged partition.
func Cluster(d Distances, opts Options) (Partition, error) {
	if opts.K < 1 {
		return Partition{}, fmt.Errorf("%w: got %d", ErrInvalidK, opts.K)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}

	n := 0
	if d != nil {
		n = d.SymmetricDim()
	}
	if n == 0 {
		return Partition{Converged: true}, nil
	}
	if n <= opts.K {
		return singletons(n), nil
	}

	s := &search{d: d, n: n, k: opts.K}
	s.seed(opts.Seed)
	p := s.run(opts.MaxIterations)
	if opts.MinClusterSize > 1 {
		p = s.fold(p, opts.MinClusterSize)
	}
	return p, nil
}

func singletons(n int) Partition {
	p := Partition{Groups: make([]Group, n), Converged: true}
	for i := 0; i < n; i++ {
		p.Groups[i] = Group{Members: []int{i}, Medoid: i}
	}
	return p
}

type search struct {
	d       Distances
	n, k    int
	medoids []int
	assign  []int
}

// seed picks the most central point, then k-1 more by D² sampling.
func (s *search) seed(seed uint64) {
	rng := rand.New(rand.NewPCG(seed, seed^seedMix))

	first, bestSum := 0, math.Inf(1)
	for i := 0; i < s.n; i++ {
		sum := 0.0
		for j := 0; j < s.n; j++ {
			sum += s.d.At(i, j)
		}
		if sum < bestSum {
			first, bestSum = i, sum
		}
	}

	chosen := make([]bool, s.n)
	s.medoids = append(make([]int, 0, s.k), first)
	chosen[first] = true

	weights := make([]float64, s.n)
	for len(s.medoids) < s.k {
		total := 0.0
		for i := 0; i < s.n; i++ {
			weights[i] = 0
			if chosen[i] {
				continue
			}
			nearest := math.Inf(1)
			for _, m := range s.medoids {
				nearest = math.Min(nearest, s.d.At(i, m))
			}
			weights[i] = nearest * nearest
			total += weights[i]
		}

		next := -1
		if total > 0 {
			target := rng.Float64() * total
			cum := 0.0
			for i := 0; i < s.n; i++ {
				if weights[i] == 0 {
					continue
				}
				cum += weights[i]
				next = i
				if cum >= target {
					break
				}
			}
		} else {
			// Every remaining point duplicates a medoid.
			for i := 0; i < s.n; i++ {
				if !chosen[i] {
					next = i
					break
				}
			}
		}
		s.medoids = append(s.medoids, next)
		chosen[next] = true
	}

	s.assign = make([]int, s.n)
	for i := range s.assign {
		s.assign[i] = -1
	}
}

type snapshot struct {
	assign []int
	cost   float64
}

func (s *search) run(maxIterations int) Partition {
	best := snapshot{cost: math.Inf(1)}
	converged := false
	iterations := 0

	for iterations < maxIterations {
		iterations++

		cost := s.assignPoints()
		if cost < best.cost {
			best = snapshot{assign: append([]int(nil), s.assign...), cost: cost}
		}

		if !s.updateMedoids() {
			converged = true
			break
		}
	}

	p := s.partition(best.assign)
	p.Iterations = iterations
	p.Converged = converged
	return p
}

// assignPoints moves every point to its nearest medoid and returns the total
// cost. Ties keep the previous group, else go to the lowest group index.
func (s *search) assignPoints() float64 {
	total := 0.0
	for i := 0; i < s.n; i++ {
		prev := s.assign[i]
		bestGroup, bestDist := -1, math.Inf(1)
		for g, m := range s.medoids {
			dist := s.d.At(i, m)
			if dist < bestDist {
				bestGroup, bestDist = g, dist
			}
		}
		if prev >= 0 && s.d.At(i, s.medoids[prev]) == bestDist {
			bestGroup = prev
		}
		s.assign[i] = bestGroup
		total += bestDist
	}
	return total
}

// updateMedoids moves each medoid to its cheapest member and reports whether
// any medoid changed. Groups left empty keep their medoid.
func (s *search) updateMedoids() bool {
	members := s.members(s.assign)
	changed := false
	for g, ms := range members {
		if len(ms) == 0 {
			continue
		}
		if m := s.cheapest(ms, s.medoids[g]); m != s.medoids[g] {
			s.medoids[g] = m
			changed = true
		}
	}
	return changed
}

// cheapest returns the member of ms with the lowest summed distance to the
// others. current wins ties when it is a member; otherwise the lowest index
// does.
func (s *search) cheapest(ms []int, current int) int {
	best, bestCost := -1, math.Inf(1)
	for _, c := range ms {
		if c == current {
			best, bestCost = c, s.groupCost(ms, c)
			break
		}
	}
	for _, c := range ms {
		if cost := s.groupCost(ms, c); cost < bestCost {
			best, bestCost = c, cost
		}
	}
	return best
}

func (s *search) groupCost(ms []int, medoid int) float64 {
	cost := 0.0
	for _, j := range ms {
		cost += s.d.At(medoid, j)
	}
	return cost
}

func (s *search) members(assign []int) [][]int {
	out := make([][]int, s.k)
	for i, g := range assign {
		out[g] = append(out[g], i)
	}
	return out
}

// partition turns an assignment into non-empty groups ordered by first
// member, recomputing each medoid from its members.
func (s *search) partition(assign []int) Partition {
	var p Partition
	seen := make(map[int]int, s.k)
	for i, g := range assign {
		idx, ok := seen[g]
		if !ok {
			idx = len(p.Groups)
			seen[g] = idx
			p.Groups = append(p.Groups, Group{Medoid: s.medoids[g]})
		}
		p.Groups[idx].Members = append(p.Groups[idx].Members, i)
	}
	for i := range p.Groups {
		g := &p.Groups[i]
		g.Medoid = s.cheapest(g.Members, g.Medoid)
		g.Cost = s.groupCost(g.Members, g.Medoid)
		p.Cost += g.Cost
	}
	return p
}

// fold reassigns members of groups smaller than minSize to the nearest
// medoid of a group that meets the size. Nothing changes when no group is
// large enough.
func (s *search) fold(p Partition, minSize int) Partition {
	var keep []int
	for g, group := range p.Groups {
		if len(group.Members) >= minSize {
			keep = append(keep, g)
		}
	}
	if len(keep) == 0 || len(keep) == len(p.Groups) {
		return p
	}

	assign := p.Assignments(s.n)
	medoids := make([]int, len(p.Groups))
	for g, group := range p.Groups {
		medoids[g] = group.Medoid
	}
	for _, group := range p.Groups {
		if len(group.Members) >= minSize {
			continue
		}
		for _, i := range group.Members {
			target, bestDist := keep[0], math.Inf(1)
			for _, kg := range keep {
				if dist := s.d.At(i, medoids[kg]); dist < bestDist {
					target, bestDist = kg, dist
				}
			}
			assign[i] = target
		}
	}

	s.k = len(p.Groups)
	s.medoids = medoids
	folded := s.partition(assign)
	folded.Iterations = p.Iterations
	folded.Converged = p.Converged
	return folded
}
