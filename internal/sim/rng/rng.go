package rng

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Source yields uniform values in [0,1).
type Source interface {
	Float64() float64
}

type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11
	return float64(u) / (1 << 53)
}

func Default() Source { return cryptoSource{} }

type seeded struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeeded returns a reproducible source.
func NewSeeded(seed uint64) Source {
	return &seeded{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Sequence replays fixed values in order and then repeats the last one.
type Sequence struct {
	mu   sync.Mutex
	vals []float64
	i    int
}

func NewSequence(vals ...float64) *Sequence {
	return &Sequence{vals: vals}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[s.i]
	if s.i < len(s.vals)-1 {
		s.i++
	}
	return v
}

// Bernoulli reports a hit with probability p. p<=0 never hits, p>=1 always
// hits.
func Bernoulli(p float64, src Source) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	if src == nil {
		src = Default()
	}
	return src.Float64() < p
}

// PickWeighted returns an index drawn proportionally to weights, or -1 if
// every weight is non-positive.
func PickWeighted(weights []float64, src Source) int {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	if src == nil {
		src = Default()
	}
	roll := src.Float64() * total
	last := -1
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if roll < w {
			return i
		}
		roll -= w
	}
	return last
}

// SampleDistinct draws up to n distinct indexes without replacement,
// weighted by weights.
func SampleDistinct(weights []float64, n int, src Source) []int {
	w := append([]float64(nil), weights...)
	out := make([]int, 0, n)
	for len(out) < n {
		i := PickWeighted(w, src)
		if i < 0 {
			break
		}
		out = append(out, i)
		w[i] = 0
	}
	return out
}
