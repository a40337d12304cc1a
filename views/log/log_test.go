package log

import (
	"strings"
	"sync"
	"testing"
)

func TestBufferConcurrentWrites(t *testing.T) {
	var b Buffer
	logger := NewLogger(&b)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info("message", "n", i)
		}(i)
	}
	wg.Wait()

	if n := strings.Count(b.String(), "message"); n != 8 {
		t.Errorf("expected 8 log lines, got %d", n)
	}
}

func TestBufferBounded(t *testing.T) {
	var b Buffer
	line := strings.Repeat("x", 99) + "\n"
	for i := 0; i < 2000; i++ {
		b.Write([]byte(line))
	}
	if n := len(b.String()); n > maxBuffer {
		t.Errorf("buffer grew to %d bytes", n)
	}
	if !strings.HasSuffix(b.String(), line) {
		t.Error("latest line dropped")
	}

	b.Reset()
	if b.String() != "" {
		t.Error("Reset left content behind")
	}
}
