package sampling

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/mmscene/internal/logging"
	"github.com/banshee-data/mmscene/internal/pointcloud"
)

// RandomSampler draws candidate centres biased towards rare labels.
//
// With c_l the number of candidates whose label is l, label l is drawn with
// weight sqrt(mean(c)/c_l), normalised to sum to one. A candidate is then
// picked uniformly among those with the drawn label.
//
// A RandomSampler is immutable after construction.
type RandomSampler struct {
	cands   []Candidate
	labels  []int
	counts  []int
	weights []float64
	cum     []float64 // running sum of weights; the last entry is exactly 1
	byLabel [][]int
}

// NewRandomSampler builds the label table over cands. It keeps a reference to
// cands, which must not be modified afterwards.
func NewRandomSampler(cands []Candidate) (*RandomSampler, error) {
	if len(cands) == 0 {
		return nil, pointcloud.ConfigErrorf("candidates", "no candidate centres to sample from")
	}

	byLabel := make(map[int][]int)
	for i, c := range cands {
		byLabel[c.Label] = append(byLabel[c.Label], i)
	}
	s := &RandomSampler{cands: cands}
	for l := range byLabel {
		s.labels = append(s.labels, l)
	}
	sort.Ints(s.labels)

	counts := make([]float64, len(s.labels))
	for k, l := range s.labels {
		s.counts = append(s.counts, len(byLabel[l]))
		s.byLabel = append(s.byLabel, byLabel[l])
		counts[k] = float64(len(byLabel[l]))
	}

	mean := stat.Mean(counts, nil)
	s.weights = make([]float64, len(counts))
	for k, c := range counts {
		s.weights[k] = math.Sqrt(mean / c)
	}
	floats.Scale(1/floats.Sum(s.weights), s.weights)
	s.cum = floats.CumSum(make([]float64, len(s.weights)), s.weights)
	s.cum[len(s.cum)-1] = 1

	for k, l := range s.labels {
		logging.Diagf("label %d: %d candidates, weight %.4f", l, s.counts[k], s.weights[k])
	}
	return s, nil
}

// Labels returns the distinct candidate labels in ascending order.
func (s *RandomSampler) Labels() []int {
	return append([]int(nil), s.labels...)
}

// Counts returns the candidate count per label.
func (s *RandomSampler) Counts() map[int]int {
	out := make(map[int]int, len(s.labels))
	for k, l := range s.labels {
		out[l] = s.counts[k]
	}
	return out
}

// Weights returns the draw probability per label.
func (s *RandomSampler) Weights() map[int]float64 {
	out := make(map[int]float64, len(s.labels))
	for k, l := range s.labels {
		out[l] = s.weights[k]
	}
	return out
}

// Candidates returns the number of candidates in the table.
func (s *RandomSampler) Candidates() int {
	return len(s.cands)
}

// Sample draws one candidate using rng for both the label and the candidate
// choice. rng must not be shared between concurrent callers.
func (s *RandomSampler) Sample(rng *rand.Rand) (Candidate, error) {
	if rng == nil {
		return Candidate{}, fmt.Errorf("sample: nil random generator")
	}
	u := rng.Float64()
	k := sort.Search(len(s.cum), func(i int) bool { return u < s.cum[i] })
	pool := s.byLabel[k]
	if len(pool) == 0 {
		return Candidate{}, pointcloud.ConfigErrorf("candidates", "label %d drawn with no candidate centres", s.labels[k])
	}
	return s.cands[pool[rng.IntN(len(pool))]], nil
}
