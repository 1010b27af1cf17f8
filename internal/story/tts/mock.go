package tts

import (
	"context"
	"sync"
	"time"
)

// MockEngine pretends to speak. It records every text it was given and
// holds each Speak call for Delay, which makes it useful in tests and on
// machines without audio.
type MockEngine struct {
	Delay time.Duration

	mu      sync.Mutex
	spoken  []string
	playing bool
	paused  bool
	stop    chan struct{}
}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

func (m *MockEngine) Name() string { return EngineTypeMock.String() }

func (m *MockEngine) Speak(ctx context.Context, text string) error {
	m.mu.Lock()
	m.spoken = append(m.spoken, text)
	m.playing = true
	m.paused = false
	stop := make(chan struct{})
	m.stop = stop
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.playing = false
		m.paused = false
		m.mu.Unlock()
	}()

	timer := time.NewTimer(m.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Spoken returns the texts passed to Speak so far.
func (m *MockEngine) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}

func (m *MockEngine) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
	m.playing = false
	m.paused = false
	return nil
}

func (m *MockEngine) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playing {
		m.paused = true
	}
	return nil
}

func (m *MockEngine) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = false
	return nil
}

func (m *MockEngine) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing && !m.paused
}

func (m *MockEngine) Voices(context.Context) ([]string, error) {
	return []string{"mock-voice"}, nil
}
