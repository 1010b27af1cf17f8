package nest

import (
	"context"
	"errors"
	"fmt"

	"storyloom/internal/cli/scheme/colours"
	"storyloom/internal/story/tts"
)

// ErrNoSpeechCache is returned when the engine keeps no audio on disk.
var ErrNoSpeechCache = errors.New("speech engine has no cache")

type speechCache interface {
	CacheStats() (tts.CacheStats, error)
	ClearCache() error
}

// ListVoices prints the voices of the configured engine.
func (s *StoryLoom) ListVoices(ctx context.Context) error {
	engine, err := s.Engine(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(s.out)
	colours.Title.Fprintf(s.out, "🎤 Voices for %s\n", engine.Name())
	fmt.Fprintln(s.out)

	if detailed, ok := engine.(tts.DetailedVoices); ok {
		infos, err := detailed.VoiceInfo(ctx)
		if err != nil {
			return err
		}
		for _, v := range infos {
			fmt.Fprintf(s.out, "  • %s", v.Name)
			colours.Info.Fprintf(s.out, " (%s, %s)", v.LanguageCode, v.Gender)
			fmt.Fprintln(s.out)
		}
		colours.Success.Fprintf(s.out, "✨ %d voices\n", len(infos))
		return nil
	}

	voices, err := engine.Voices(ctx)
	if err != nil {
		return err
	}
	for _, v := range voices {
		fmt.Fprintf(s.out, "  • %s\n", v)
	}
	colours.Success.Fprintf(s.out, "✨ %d voices\n", len(voices))
	return nil
}

// ListEngines prints the engines usable on this machine.
func (s *StoryLoom) ListEngines() {
	colours.Info.Fprintln(s.out, "🔊 Speech engines:")
	for _, e := range tts.AvailableEngines() {
		if e.String() == s.cfg.TTS.Type {
			colours.Success.Fprintf(s.out, "  * %s\n", e)
			continue
		}
		colours.Muted.Fprintf(s.out, "    %s\n", e)
	}
}

// ShowCacheStatus displays information about the speech cache.
func (s *StoryLoom) ShowCacheStatus(ctx context.Context) error {
	cache, err := s.speechCache(ctx)
	if err != nil {
		return err
	}

	colours.Title.Fprintln(s.out, "📊 Speech Cache Status")
	stats, err := cache.CacheStats()
	if err != nil {
		return fmt.Errorf("failed to get cache info: %w", err)
	}
	colours.Info.Fprintf(s.out, "📁 Location: %s\n", stats.Directory)
	if stats.Files == 0 {
		colours.Warning.Fprintln(s.out, "❌ Cache is empty")
		return nil
	}
	colours.Success.Fprintf(s.out, "✅ %d cached clips\n", stats.Files)
	colours.Info.Fprintf(s.out, "📏 Size: %d bytes\n", stats.Bytes)
	return nil
}

// ClearSpeechCache removes cached audio.
func (s *StoryLoom) ClearSpeechCache(ctx context.Context) error {
	cache, err := s.speechCache(ctx)
	if err != nil {
		return err
	}
	if err := cache.ClearCache(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	colours.Success.Fprintln(s.out, "✅ Speech cache cleared")
	return nil
}

func (s *StoryLoom) speechCache(ctx context.Context) (speechCache, error) {
	engine, err := s.Engine(ctx)
	if err != nil {
		return nil, err
	}
	cache, ok := engine.(speechCache)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSpeechCache, engine.Name())
	}
	return cache, nil
}
