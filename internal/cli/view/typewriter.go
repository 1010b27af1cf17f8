package view

import (
	"io"
	"sync"

	"storyloom/internal/reveal"
)

// Typewriter writes newly revealed units to w as they arrive. It is meant
// for output that is not a terminal. A new session starts on a fresh line.
type Typewriter struct {
	mu      sync.Mutex
	w       io.Writer
	session uint64
	written int
	ended   bool
	err     error
}

func NewTypewriter(w io.Writer) *Typewriter {
	return &Typewriter{w: w}
}

// Handle is a reveal frame handler.
func (t *Typewriter) Handle(f reveal.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}

	if f.Session != t.session {
		if t.written > 0 && !t.ended {
			t.write("\n")
		}
		t.session = f.Session
		t.written = 0
		t.ended = false
	}

	for ; t.written < f.Cursor && t.written < f.Units.Len(); t.written++ {
		t.write(f.Units[t.written])
	}
	if f.Done() && f.State == reveal.Idle && t.written > 0 && !t.ended {
		t.write("\n")
		t.ended = true
	}
}

func (t *Typewriter) write(s string) {
	if t.err != nil {
		return
	}
	_, t.err = io.WriteString(t.w, s)
}

// Err returns the first write error.
func (t *Typewriter) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}
