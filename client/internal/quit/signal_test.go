package quit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignal_SetIsTerminal(t *testing.T) {
	s := NewSignal()
	assert.False(t, s.IsSet())

	s.Set()
	s.Set()
	assert.True(t, s.IsSet())

	select {
	case <-s.Done():
	default:
		t.Fatal("done channel should be closed after Set")
	}
}

func TestSignal_ConcurrentSet(t *testing.T) {
	s := NewSignal()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set()
		}()
	}
	wg.Wait()

	assert.True(t, s.IsSet())
}

func TestSignal_WaitCompletes(t *testing.T) {
	s := NewSignal()

	start := time.Now()
	cancelled := s.Wait(30*time.Millisecond, 5*time.Millisecond)

	assert.False(t, cancelled)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSignal_WaitInterrupted(t *testing.T) {
	s := NewSignal()

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.Set()
	}()

	start := time.Now()
	cancelled := s.Wait(10*time.Second, 10*time.Millisecond)

	assert.True(t, cancelled)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSignal_WaitAlreadySet(t *testing.T) {
	s := NewSignal()
	s.Set()

	assert.True(t, s.Wait(time.Hour, time.Second))
}

func TestSignal_WaitZeroGranularity(t *testing.T) {
	s := NewSignal()

	assert.False(t, s.Wait(5*time.Millisecond, 0))
}
