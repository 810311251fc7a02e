package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedGenerator_Sequence(t *testing.T) {
	gen := NewFixedGenerator("rec")

	assert.Equal(t, "rec-0001", gen.Generate())
	assert.Equal(t, "rec-0002", gen.Generate())

	gen.Reset()
	assert.Equal(t, "rec-0001", gen.Generate())
}

func TestFixedGenerator_EmptyPrefixDefault(t *testing.T) {
	gen := NewFixedGenerator("")
	assert.Equal(t, "test-recording-0001", gen.Generate())
}

func TestFixedGenerator_ThreadSafe(t *testing.T) {
	gen := NewFixedGenerator("x")

	var wg sync.WaitGroup
	seen := sync.Map{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, dup := seen.LoadOrStore(gen.Generate(), true)
				assert.False(t, dup)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "x-1001", gen.Generate())
}
