package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddRemove(t *testing.T) {
	ix := New()
	ix.Add("RISK_MANAGEMENT", "a")
	ix.Add("RISK_MANAGEMENT", "b")
	ix.Add("LEGAL_FRAMEWORKS", "c")

	assert.ElementsMatch(t, []string{"a", "b"}, ix.IDs("RISK_MANAGEMENT"))
	assert.True(t, ix.Has("RISK_MANAGEMENT", "a"))
	assert.Equal(t, 2, ix.Count("RISK_MANAGEMENT"))
	assert.ElementsMatch(t, []string{"RISK_MANAGEMENT", "LEGAL_FRAMEWORKS"}, ix.Keys())

	ix.Remove("RISK_MANAGEMENT", "a")
	assert.False(t, ix.Has("RISK_MANAGEMENT", "a"))
	assert.Equal(t, []string{"b"}, ix.IDs("RISK_MANAGEMENT"))
}

func TestEmptyKeyDropped(t *testing.T) {
	ix := New()
	ix.Add("tag", "a")
	ix.Remove("tag", "a")
	assert.Empty(t, ix.Keys())
	assert.Nil(t, ix.IDs("tag"))
}

func TestRemoveMissingIsNoop(t *testing.T) {
	ix := New()
	ix.Remove("nope", "a")
	assert.Empty(t, ix.Keys())
}

func TestAddIdempotent(t *testing.T) {
	ix := New()
	ix.Add("k", "a")
	ix.Add("k", "a")
	assert.Equal(t, 1, ix.Count("k"))
}

func TestSetInsertRemove(t *testing.T) {
	s := NewSet()
	s.Insert("e1", "AUDIT_INTELLIGENCE", "FACT", []string{"q3", "sox"})

	assert.True(t, s.Domain.Has("AUDIT_INTELLIGENCE", "e1"))
	assert.True(t, s.Type.Has("FACT", "e1"))
	assert.True(t, s.Tag.Has("q3", "e1"))
	assert.True(t, s.Tag.Has("sox", "e1"))

	s.Remove("e1", "AUDIT_INTELLIGENCE", "FACT", []string{"q3", "sox"})
	assert.Empty(t, s.Domain.Keys())
	assert.Empty(t, s.Type.Keys())
	assert.Empty(t, s.Tag.Keys())
}

func TestConcurrentAccess(t *testing.T) {
	ix := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := fmt.Sprintf("id-%d-%d", i, j)
				ix.Add("shared", id)
				ix.IDs("shared")
				ix.Remove("shared", id)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, ix.Count("shared"))
}
