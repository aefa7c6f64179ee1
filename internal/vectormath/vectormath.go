// Package vectormath scores embedding vectors against each other. All metrics
// are mapped onto [0,1] where 1 means identical, so callers can mix metrics
// with a single threshold scale.
package vectormath

import "math"

// Metric names accepted by Similarity.
const (
	MetricCosine    = "cosine"
	MetricDot       = "dot"
	MetricEuclidean = "euclidean"
	MetricManhattan = "manhattan"
)

// ValidMetric reports whether name is a supported similarity metric.
func ValidMetric(name string) bool {
	switch name {
	case MetricCosine, MetricDot, MetricEuclidean, MetricManhattan:
		return true
	}
	return false
}

// Similarity scores a against b under the named metric. Mismatched lengths,
// empty vectors, and unknown metrics score 0 rather than erroring: a vector
// that cannot be compared is simply not similar.
func Similarity(a, b []float32, metric string) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	switch metric {
	case MetricCosine, "":
		return cosine(a, b)
	case MetricDot:
		return dot(a, b)
	case MetricEuclidean:
		return euclidean(a, b)
	case MetricManhattan:
		return manhattan(a, b)
	}
	return 0
}

// cosine maps the cosine of the angle onto [0,1]. Opposed vectors clamp to 0
// instead of going negative; a zero-norm vector has no direction and scores 0.
func cosine(a, b []float32) float64 {
	var dp, na, nb float64
	for i := range a {
		dp += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	cos := dp / (math.Sqrt(na) * math.Sqrt(nb))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}

// dot squashes the unbounded dot product through d/(1+|d|), a monotone map
// onto (-1,1), then shifts it into (0,1).
func dot(a, b []float32) float64 {
	var dp float64
	for i := range a {
		dp += float64(a[i]) * float64(b[i])
	}
	return (1 + dp/(1+math.Abs(dp))) / 2
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return 1 / (1 + math.Sqrt(sum))
}

func manhattan(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(float64(a[i]) - float64(b[i]))
	}
	return 1 / (1 + sum)
}

// Normalize scales v to unit length in place and returns it. Zero vectors are
// returned unchanged.
func Normalize(v []float32) []float32 {
	var n float64
	for _, x := range v {
		n += float64(x) * float64(x)
	}
	if n == 0 {
		return v
	}
	inv := 1 / math.Sqrt(n)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
