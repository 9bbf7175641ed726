package schemagen

import (
	"math"
	"strconv"
	"strings"
)

// defaultNumericSpan bounds numbers whose schema leaves a side open.
const defaultNumericSpan = 1e8

// maxGridIndex is the largest multipleOf index drawn exactly. Beyond it
// float64 cannot tell neighboring indexes apart.
const maxGridIndex = 1 << 53

// number draws an integer or number inside the schema's bounds. An
// unsatisfiable range yields NaN.
func (w *walker) number(node Schema, path []string, integer bool) (any, error) {
	lo, hasLo := node.num("minimum")
	hi, hasHi := node.num("maximum")
	var exLo, exHi bool

	switch v := node["exclusiveMinimum"].(type) {
	case bool:
		exLo = v && hasLo
	default:
		if f, ok := toFloat(v); ok && (!hasLo || f >= lo) {
			lo, hasLo, exLo = f, true, true
		}
	}
	switch v := node["exclusiveMaximum"].(type) {
	case bool:
		exHi = v && hasHi
	default:
		if f, ok := toFloat(v); ok && (!hasHi || f <= hi) {
			hi, hasHi, exHi = f, true, true
		}
	}

	switch {
	case !hasLo && !hasHi:
		lo, hi = -defaultNumericSpan, defaultNumericSpan
	case !hasLo:
		lo = hi - defaultNumericSpan
	case !hasHi:
		hi = lo + defaultNumericSpan
	}

	step, hasStep := node.num("multipleOf")
	if hasStep && (step <= 0 || math.IsNaN(step) || math.IsInf(step, 0)) {
		return nil, malformed("multipleOf must be a positive number, got %v", node["multipleOf"])
	}
	if integer {
		switch {
		case !hasStep:
			step, hasStep = 1, true
		case !isIntegral(step):
			step = integralStep(step)
		}
	}

	if !hasStep {
		if exLo {
			lo = math.Nextafter(lo, math.Inf(1))
		}
		if exHi {
			hi = math.Nextafter(hi, math.Inf(-1))
		}
		if lo > hi {
			return w.unsatisfiable(path, lo, hi), nil
		}
		return w.rnd.Number(lo, hi), nil
	}

	first := snap(lo/step, math.Ceil)
	last := snap(hi/step, math.Floor)
	if exLo && nearlyEqual(first*step, lo) {
		first++
	}
	if exHi && nearlyEqual(last*step, hi) {
		last--
	}
	if first > last {
		return w.unsatisfiable(path, lo, hi), nil
	}
	var v float64
	if math.Abs(first) > maxGridIndex || math.Abs(last) > maxGridIndex {
		glo, ghi := lo, hi
		if exLo {
			glo = math.Nextafter(lo, math.Inf(1))
		}
		if exHi {
			ghi = math.Nextafter(hi, math.Inf(-1))
		}
		v = w.nearGrid(glo, ghi, step, first, last)
	} else {
		k := w.rnd.Int64(int64(first), int64(last))
		v = roundTo(float64(k)*step, decimals(step))
	}
	if integer && math.Abs(v) < 1<<63 {
		return int64(math.Round(v)), nil
	}
	return v, nil
}

// nearGrid draws from [lo, hi] and snaps to the closest index in
// [first, last]. Used when the grid is too fine to index with int64.
func (w *walker) nearGrid(lo, hi, step, first, last float64) float64 {
	k := math.Round(w.rnd.Number(lo, hi) / step)
	k = math.Min(math.Max(k, first), last)
	v := k * step
	if d := decimals(step); d <= 15 && math.Abs(v)*math.Pow(10, float64(d)) < maxGridIndex {
		v = roundTo(v, d)
	}
	return math.Min(math.Max(v, lo), hi)
}

func (w *walker) unsatisfiable(path []string, lo, hi float64) float64 {
	w.logger.Warnf("numeric bounds [%v, %v] at %s admit no value", lo, hi, FormatPath(path))
	return math.NaN()
}

// snap rounds q with fn, treating values within float noise of an integer
// as that integer.
func snap(q float64, fn func(float64) float64) float64 {
	if r := math.Round(q); math.Abs(q-r) < 1e-9 {
		return r
	}
	return fn(q)
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

// decimals counts the fractional digits of step as written.
func decimals(step float64) int {
	s := strconv.FormatFloat(step, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func roundTo(v float64, digits int) float64 {
	if digits <= 0 {
		return math.Round(v)
	}
	p := math.Pow(10, float64(digits))
	return math.Round(v*p) / p
}

// integralStep is the smallest integer multiple of a fractional step.
func integralStep(step float64) float64 {
	d := decimals(step)
	scale := int64(math.Pow(10, float64(d)))
	n := int64(math.Round(step * float64(scale)))
	return float64(n / gcd(n, scale))
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
