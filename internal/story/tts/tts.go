// Package tts reads stories aloud.
package tts

import (
	"context"
	"errors"
)

var (
	// ErrPauseUnsupported is returned by engines that cannot suspend speech.
	ErrPauseUnsupported = errors.New("pause is not supported by this engine")
	// ErrNotAvailable is returned when an engine is missing on this machine.
	ErrNotAvailable = errors.New("tts engine not available")
)

type Config struct {
	Type      string
	Voice     string
	Speed     float64
	Volume    float64
	CachePath string
	URL       string
}

// Engine speaks text. Speak blocks until the text was read, Stop was called
// or ctx is done.
type Engine interface {
	Name() string
	Speak(ctx context.Context, text string) error
	Stop() error
	Pause() error
	Resume() error
	IsPlaying() bool
	Voices(ctx context.Context) ([]string, error)
}

// VoiceInfo provides detailed information about available voices
type VoiceInfo struct {
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
	Gender       string `json:"gender"`
	Natural      bool   `json:"natural"`
}

// DetailedVoices is implemented by engines that know more than voice names.
type DetailedVoices interface {
	VoiceInfo(ctx context.Context) ([]VoiceInfo, error)
}
