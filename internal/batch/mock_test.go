package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/shotspectre/internal/screenshot"
)

// mockAnalyzer implements Analyzer for testing.
type mockAnalyzer struct {
	mu       sync.Mutex
	calls    []string
	outcomes map[string]screenshot.Outcome
	delays   map[string]time.Duration
	panics   map[string]bool
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32

	// onCall runs at the start of every call.
	onCall func(name string)
}

func newMockAnalyzer() *mockAnalyzer {
	return &mockAnalyzer{
		outcomes: make(map[string]screenshot.Outcome),
		delays:   make(map[string]time.Duration),
		panics:   make(map[string]bool),
	}
}

func (m *mockAnalyzer) Analyze(ctx context.Context, img screenshot.ImageFile) screenshot.Outcome {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, img.Name)
	out, ok := m.outcomes[img.Name]
	delay, hasDelay := m.delays[img.Name]
	panics := m.panics[img.Name]
	onCall := m.onCall
	m.mu.Unlock()

	if onCall != nil {
		onCall(img.Name)
	}
	if !hasDelay {
		delay = m.delay
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return screenshot.Failuref(screenshot.FailureCanceled, "interrupted: %v", ctx.Err())
		}
	}
	if panics {
		panic("decoder exploded")
	}
	if ok {
		return out
	}
	return screenshot.Success(screenshot.Findings{Technologies: []string{img.Name}}, nil, screenshot.Usage{TotalTokens: 10})
}

func (m *mockAnalyzer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func images(names ...string) []screenshot.ImageFile {
	out := make([]screenshot.ImageFile, 0, len(names))
	for _, n := range names {
		out = append(out, screenshot.ImageFile{Path: "/shots/" + n, Name: n})
	}
	return out
}
