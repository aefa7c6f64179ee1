package embeddings

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"sync/atomic"
)

var errMockFailure = errors.New("mock embedder: induced failure")

// Mock is a deterministic bag-of-words embedder for tests and offline use.
// Each token is hashed into a dimension bucket and counted, then the vector
// is normalized, so texts sharing tokens score high under cosine similarity
// and the same text always embeds identically.
type Mock struct {
	dims  int
	calls atomic.Int64
	fail  atomic.Bool
}

// NewMock returns a mock embedder producing vectors of the given
// dimensionality.
func NewMock(dims int) *Mock {
	if dims <= 0 {
		dims = 384
	}
	return &Mock{dims: dims}
}

func (m *Mock) Name() string    { return "mock" }
func (m *Mock) Dimensions() int { return m.dims }

// Calls reports how many times Embed has been invoked.
func (m *Mock) Calls() int64 { return m.calls.Load() }

// SetFail makes subsequent Embed calls return an error, for exercising
// degraded paths.
func (m *Mock) SetFail(fail bool) { m.fail.Store(fail) }

func (m *Mock) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.fail.Load() {
		return nil, errMockFailure
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(inputs))
	for i, text := range inputs {
		out[i] = m.embedOne(text)
	}
	return out, nil
}

func (m *Mock) embedOne(text string) []float32 {
	v := make([]float32, m.dims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,;:!?\"'()[]")
		if tok == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(tok))
		v[h.Sum32()%uint32(m.dims)]++
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		inv := 1 / math.Sqrt(norm)
		for i := range v {
			v[i] = float32(float64(v[i]) * inv)
		}
	}
	return v
}
