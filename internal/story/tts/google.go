package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/sirupsen/logrus"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

const (
	defaultGoogleVoice = "en-GB-Chirp3-HD-Umbriel"
	// a request may carry at most 5000 bytes of input
	googleChunkLimit = 4800
)

// GoogleEngine synthesises speech with Cloud Text-to-Speech. Audio is cached
// on disk per text and voice so replaying a story costs nothing.
type GoogleEngine struct {
	client   *texttospeech.Client
	player   audioPlayer
	cacheDir string
	voice    string
	speed    float64
	volume   float64

	mu       sync.Mutex
	speaking bool
	stopped  bool
}

// CacheStats summarises the audio cache.
type CacheStats struct {
	Directory string
	Files     int64
	Bytes     int64
}

func newGoogleEngine(ctx context.Context, config Config, player audioPlayer) (*GoogleEngine, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	cacheDir := config.CachePath
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "storyloom", "speech")
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}

	voice := config.Voice
	if voice == "" || voice == "default" {
		voice = defaultGoogleVoice
	}

	return &GoogleEngine{
		client:   client,
		player:   player,
		cacheDir: cacheDir,
		voice:    voice,
		speed:    config.Speed,
		volume:   config.Volume,
	}, nil
}

func (g *GoogleEngine) Name() string { return EngineTypeGoogle.String() }

func (g *GoogleEngine) Speak(ctx context.Context, text string) error {
	g.mu.Lock()
	g.speaking = true
	g.stopped = false
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.speaking = false
		g.mu.Unlock()
	}()

	paths, err := g.cachedChunks(ctx, text)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if g.isStopped() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open cached MP3 %s: %w", path, err)
		}
		if err := g.player.Play(ctx, f); err != nil {
			return err
		}
	}
	return nil
}

// cachedChunks makes sure every chunk of text has an mp3 on disk and
// returns their paths in reading order.
func (g *GoogleEngine) cachedChunks(ctx context.Context, text string) ([]string, error) {
	contentHash := md5Sum(text + g.voice)[:8]
	chunks := splitIntoChunks(text, googleChunkLimit)
	paths := make([]string, len(chunks))

	log := logrus.WithFields(logrus.Fields{"voice": g.voice, "chunks": len(chunks), "hash": contentHash})
	for i, chunk := range chunks {
		paths[i] = filepath.Join(g.cacheDir, fmt.Sprintf("story_%s_%d.mp3", contentHash, i))
		if _, err := os.Stat(paths[i]); err == nil {
			continue
		}

		resp, err := g.client.SynthesizeSpeech(ctx, g.request(chunk))
		if err != nil {
			return nil, fmt.Errorf("failed to synthesize chunk %d: %w", i, err)
		}
		if err := os.WriteFile(paths[i], resp.AudioContent, 0644); err != nil {
			return nil, fmt.Errorf("failed to write MP3 chunk %d to %s: %w", i, paths[i], err)
		}
		log.WithField("chunk", i).Debug("cached speech chunk")
	}
	return paths, nil
}

func (g *GoogleEngine) request(chunk string) *texttospeechpb.SynthesizeSpeechRequest {
	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices reject speaking rate and gain
	if !strings.Contains(strings.ToLower(g.voice), "chirp") {
		if g.speed > 0 {
			audioCfg.SpeakingRate = g.speed
		}
		if g.volume > 0 {
			audioCfg.VolumeGainDb = 20 * math.Log10(g.volume)
		}
	}

	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageOf(g.voice),
			Name:         g.voice,
		},
		AudioConfig: audioCfg,
	}
}

func (g *GoogleEngine) isStopped() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

func (g *GoogleEngine) Stop() error {
	g.mu.Lock()
	g.stopped = true
	g.mu.Unlock()
	g.player.Stop()
	return nil
}

func (g *GoogleEngine) Pause() error {
	g.player.Pause()
	return nil
}

func (g *GoogleEngine) Resume() error {
	g.player.Resume()
	return nil
}

func (g *GoogleEngine) IsPlaying() bool {
	g.mu.Lock()
	speaking := g.speaking
	g.mu.Unlock()
	return speaking && g.player.Playing()
}

func (g *GoogleEngine) Voices(ctx context.Context) ([]string, error) {
	infos, err := g.VoiceInfo(ctx)
	if err != nil {
		return nil, err
	}
	voices := make([]string, 0, len(infos))
	for _, v := range infos {
		voices = append(voices, v.Name)
	}
	return voices, nil
}

func (g *GoogleEngine) VoiceInfo(ctx context.Context) ([]VoiceInfo, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list voices: %w", err)
	}
	infos := make([]VoiceInfo, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		lang := ""
		if len(v.LanguageCodes) > 0 {
			lang = v.LanguageCodes[0]
		}
		infos = append(infos, VoiceInfo{
			Name:         v.Name,
			LanguageCode: lang,
			Gender:       strings.ToLower(v.SsmlGender.String()),
			Natural:      v.NaturalSampleRateHertz > 0,
		})
	}
	return infos, nil
}

// CacheStats walks the audio cache.
func (g *GoogleEngine) CacheStats() (CacheStats, error) {
	stats := CacheStats{Directory: g.cacheDir}
	err := filepath.Walk(g.cacheDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".mp3") {
			stats.Files++
			stats.Bytes += info.Size()
		}
		return nil
	})
	return stats, err
}

// ClearCache removes all cached audio.
func (g *GoogleEngine) ClearCache() error {
	return os.RemoveAll(g.cacheDir)
}

// languageOf derives "en-GB" from a voice name like "en-GB-Chirp3-HD-Umbriel".
func languageOf(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

func md5Sum(s string) string {
	h := md5.New()
	_, _ = io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// splitIntoChunks cuts text into pieces of at most limit bytes, preferring
// to break after whitespace and never inside a UTF-8 sequence.
func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	for len(text) > limit {
		cut := strings.LastIndexAny(text[:limit], " \n\t")
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
		} else {
			cut++
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
