// Package view shows a story in the terminal while it is being revealed.
package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"storyloom/internal/domain/story"
	"storyloom/internal/reveal"
)

// FrameMsg carries a reveal frame into the program.
type FrameMsg struct {
	Frame reveal.Frame
}

// StoryMsg announces the story that is about to be revealed.
type StoryMsg struct {
	Story *story.Item
}

// SpeechDoneMsg reports that reading aloud has finished.
type SpeechDoneMsg struct {
	Err error
}

// ErrMsg ends the view with an error.
type ErrMsg struct {
	Err error
}

// Speech is the part of a tts engine the view controls.
type Speech interface {
	Pause() error
	Resume() error
	Stop() error
}

type state int

const (
	stateLoading state = iota
	stateRevealing
	stateDone
	stateFailed
)

// Option configures a Model.
type Option func(*Model)

// WithSpeech lets the p and s keys control speech.
func WithSpeech(s Speech) Option {
	return func(m *Model) { m.speech = s }
}

// WithWidth sets the wrap width until the terminal reports its size.
func WithWidth(width int) Option {
	return func(m *Model) { m.width = width }
}

// WithStyles replaces DefaultStyles.
func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// WithQuitOnDone exits the program once every unit is shown.
func WithQuitOnDone() Option {
	return func(m *Model) { m.quitOnDone = true }
}

// WithRevealing skips the loading state, for text that is already known.
func WithRevealing() Option {
	return func(m *Model) { m.state = stateRevealing }
}

// Model is the bubbletea model for one story.
type Model struct {
	spinner    spinner.Model
	styles     Styles
	state      state
	story      *story.Item
	frame      reveal.Frame
	speech     Speech
	paused     bool
	speaking   bool
	width      int
	quitOnDone bool
	quitting   bool
	speechErr  error
	err        error
}

func NewModel(opts ...Option) Model {
	m := Model{
		styles: DefaultStyles(),
		state:  stateLoading,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(m.styles.Spinner))
	m.speaking = m.speech != nil
	return m
}

func (m Model) Init() tea.Cmd {
	if m.state == stateLoading {
		return m.spinner.Tick
	}
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if m.state != stateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StoryMsg:
		m.story = msg.Story
		if m.state == stateLoading {
			m.state = stateRevealing
		}
		return m, nil

	case FrameMsg:
		if m.state == stateFailed {
			return m, nil
		}
		m.frame = msg.Frame
		m.state = stateRevealing
		if m.frame.Done() && m.frame.State == reveal.Idle {
			m.state = stateDone
			if m.quitOnDone {
				m.quitting = true
				return m, tea.Quit
			}
		}
		return m, nil

	case SpeechDoneMsg:
		m.speaking = false
		m.paused = false
		m.speechErr = msg.Err
		return m, nil

	case ErrMsg:
		m.state = stateFailed
		m.err = msg.Err
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.speech != nil {
			_ = m.speech.Stop()
		}
		m.quitting = true
		return m, tea.Quit
	case "p":
		if m.speech == nil || !m.speaking {
			return m, nil
		}
		if m.paused {
			if err := m.speech.Resume(); err == nil {
				m.paused = false
			}
		} else if err := m.speech.Pause(); err == nil {
			m.paused = true
		}
	case "s":
		if m.speech != nil && m.speaking {
			_ = m.speech.Stop()
			m.speaking = false
			m.paused = false
		}
	}
	return m, nil
}

func (m Model) View() string {
	switch m.state {
	case stateFailed:
		return m.styles.Error.Render(fmt.Sprintf("Error: %v", m.err)) + "\n"
	case stateLoading:
		return m.spinner.View() + " Generating...\n"
	}

	var sb strings.Builder
	if m.story != nil && m.story.Title != "" && !strings.HasPrefix(m.frame.Units.Join(), "#") {
		sb.WriteString(m.styles.Title.Render(m.story.Title))
		sb.WriteString("\n")
	}
	sb.WriteString(Text(m.frame, m.width, m.styles))
	sb.WriteString("\n")
	if !m.quitting {
		sb.WriteString(m.styles.Status.Render(m.status()))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) status() string {
	var parts []string
	if m.state == stateDone {
		parts = append(parts, "The end.")
	} else {
		parts = append(parts, fmt.Sprintf("%d/%d", m.frame.Cursor, m.frame.Units.Len()))
	}
	if m.speech != nil && m.speaking {
		if m.paused {
			parts = append(parts, "p resume")
		} else {
			parts = append(parts, "p pause")
		}
		parts = append(parts, "s stop reading")
	}
	if m.speechErr != nil {
		parts = append(parts, fmt.Sprintf("speech failed: %v", m.speechErr))
	}
	parts = append(parts, "q quit")
	return strings.Join(parts, " • ")
}

// Err returns the error that ended the view, if any.
func (m Model) Err() error {
	return m.err
}
