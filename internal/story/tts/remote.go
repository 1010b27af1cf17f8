package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const speechPath = "/tts"

// RemoteEngine asks a speech backend for audio and plays it locally.
type RemoteEngine struct {
	client *resty.Client
	player audioPlayer
}

func newRemoteEngine(config Config, player audioPlayer) *RemoteEngine {
	client := resty.New().
		SetBaseURL(strings.TrimRight(config.URL, "/")).
		SetTimeout(2*time.Minute).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(200 * time.Millisecond)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || (r != nil && r.StatusCode() >= 500)
	})

	return &RemoteEngine{client: client, player: player}
}

func (e *RemoteEngine) Name() string { return EngineTypeRemote.String() }

// Synthesize fetches the encoded audio for text.
func (e *RemoteEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"text": text}).
		Post(speechPath)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to speech: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("speech backend returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("speech backend returned no audio")
	}

	logrus.WithFields(logrus.Fields{
		"bytes":        len(resp.Body()),
		"content_type": resp.Header().Get("Content-Type"),
	}).Debug("speech audio received")
	return resp.Body(), nil
}

func (e *RemoteEngine) Speak(ctx context.Context, text string) error {
	audio, err := e.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	return e.player.Play(ctx, io.NopCloser(bytes.NewReader(audio)))
}

func (e *RemoteEngine) Stop() error {
	e.player.Stop()
	return nil
}

func (e *RemoteEngine) Pause() error {
	e.player.Pause()
	return nil
}

func (e *RemoteEngine) Resume() error {
	e.player.Resume()
	return nil
}

func (e *RemoteEngine) IsPlaying() bool {
	return e.player.Playing()
}

func (e *RemoteEngine) Voices(context.Context) ([]string, error) {
	return []string{"default"}, nil
}
