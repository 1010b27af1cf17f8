package tts

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// audioPlayer plays one encoded clip at a time.
type audioPlayer interface {
	Play(ctx context.Context, clip io.ReadCloser) error
	Pause()
	Resume()
	Stop()
	Playing() bool
}

// speakerPlayer decodes mp3 clips and plays them on the default output
// device. The speaker is initialised once with the first clip's sample rate;
// later clips are resampled to it.
type speakerPlayer struct {
	initOnce sync.Once
	initErr  error
	rate     beep.SampleRate

	mu   sync.Mutex
	ctrl *beep.Ctrl
	stop chan struct{}
}

func newSpeakerPlayer() *speakerPlayer {
	return &speakerPlayer{}
}

func (p *speakerPlayer) Play(ctx context.Context, clip io.ReadCloser) error {
	streamer, format, err := mp3.Decode(clip)
	if err != nil {
		clip.Close()
		return fmt.Errorf("failed to decode mp3: %w", err)
	}
	defer streamer.Close()

	p.initOnce.Do(func() {
		p.rate = format.SampleRate
		p.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if p.initErr != nil {
		return fmt.Errorf("failed to init speaker: %w", p.initErr)
	}

	var source beep.Streamer = streamer
	if format.SampleRate != p.rate {
		source = beep.Resample(4, format.SampleRate, p.rate, streamer)
	}

	done := make(chan struct{})
	stop := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: source}

	p.mu.Lock()
	p.ctrl = ctrl
	p.stop = stop
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.ctrl = nil
		p.stop = nil
		p.mu.Unlock()
	}()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-stop:
		speaker.Clear()
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

func (p *speakerPlayer) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
}

func (p *speakerPlayer) Pause()  { p.setPaused(true) }
func (p *speakerPlayer) Resume() { p.setPaused(false) }

func (p *speakerPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
}

func (p *speakerPlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return false
	}
	speaker.Lock()
	defer speaker.Unlock()
	return !p.ctrl.Paused
}
