package sidecar

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleEmpty(t *testing.T) {
	h := NewHandle()

	pid, ok := h.Get()
	assert.False(t, ok)
	assert.Zero(t, pid)
}

func TestHandleSetGet(t *testing.T) {
	h := NewHandle()
	h.Set(4242)

	pid, ok := h.Get()
	assert.True(t, ok)
	assert.Equal(t, 4242, pid)
}

func TestHandleConcurrentAccess(t *testing.T) {
	h := NewHandle()
	h.Set(1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Get()
			}
		}()
	}
	wg.Wait()

	pid, ok := h.Get()
	assert.True(t, ok)
	assert.Equal(t, 1, pid)
}
