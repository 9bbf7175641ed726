// Package random provides the uniform random primitives every generator draws from.
//
// All draws go through a Source so callers can plug in a deterministic
// generator. A *math/rand/v2.Rand satisfies Source directly.
package random

import (
	"math"
	"math/rand/v2"
	"time"
)

// Source produces uniformly distributed floats in [0, 1).
type Source interface {
	Float64() float64
}

// Rand wraps a Source with the helpers used by the generators.
// It is not safe for concurrent use unless the Source is.
type Rand struct {
	src Source
}

// New wraps src. A nil src falls back to a clock-seeded generator.
func New(src Source) *Rand {
	if src == nil {
		return NewTime()
	}
	return &Rand{src: src}
}

// NewSeeded returns a deterministic Rand for the given seed.
func NewSeeded(seed uint64) *Rand {
	return &Rand{src: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewTime returns a Rand seeded from the wall clock.
func NewTime() *Rand {
	return NewSeeded(uint64(time.Now().UnixNano()))
}

// Float returns a float in [0, 1).
func (r *Rand) Float() float64 {
	f := r.src.Float64()
	if f < 0 || f >= 1 || math.IsNaN(f) {
		// Misbehaving sources are folded back into range.
		f = math.Abs(math.Mod(f, 1))
		if math.IsNaN(f) {
			f = 0
		}
	}
	return f
}

// Number returns a float uniformly drawn from [min, max].
func (r *Rand) Number(min, max float64) float64 {
	if max < min {
		min, max = max, min
	}
	if min == max {
		return min
	}
	v := min + r.Float()*(max-min)
	if v > max {
		v = max
	}
	return v
}

// Int returns an integer uniformly drawn from [min, max]. Bounds are swapped
// when min > max.
func (r *Rand) Int(min, max int) int {
	if max < min {
		min, max = max, min
	}
	span := uint64(max - min)
	if span == math.MaxUint64 {
		return min + int(r.Float()*float64(span))
	}
	return min + int(math.Floor(r.Float()*float64(span+1)))
}

// Int64 is Int over int64 bounds.
func (r *Rand) Int64(min, max int64) int64 {
	if max < min {
		min, max = max, min
	}
	span := float64(max) - float64(min) + 1
	v := min + int64(math.Floor(r.Float()*span))
	if v > max {
		v = max
	}
	return v
}

// Bool returns true or false with equal probability.
func (r *Rand) Bool() bool {
	return r.Float() < 0.5
}

// Chance reports true with probability p.
func (r *Rand) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	if p >= 1 {
		return true
	}
	return r.Float() < p
}

// Date returns a time uniformly drawn from [from, to] at second precision.
func (r *Rand) Date(from, to time.Time) time.Time {
	if to.Before(from) {
		from, to = to, from
	}
	secs := r.Int64(from.Unix(), to.Unix())
	return time.Unix(secs, 0).UTC()
}

// Read fills p with random bytes so a Rand can stand in for an entropy
// reader. It never fails.
func (r *Rand) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.Int(0, 255))
	}
	return len(p), nil
}

// Pick returns a uniformly chosen element of items. It returns the zero value
// for an empty slice.
func Pick[T any](r *Rand, items []T) T {
	var zero T
	if len(items) == 0 {
		return zero
	}
	return items[r.Int(0, len(items)-1)]
}

// Shuffle returns a shuffled copy of items.
func Shuffle[T any](r *Rand, items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Int(0, i)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
