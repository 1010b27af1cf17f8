package nest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"storyloom/internal/cli/scheme/colours"
	"storyloom/internal/cli/view"
	"storyloom/internal/config"
	"storyloom/internal/domain/story"
	"storyloom/internal/domain/story/generator"
	"storyloom/internal/reveal"
	"storyloom/internal/reveal/markdown"
	"storyloom/internal/story/tts"
)

// StoryLoom main application structure
type StoryLoom struct {
	cfg       *config.Config
	generator generator.StoryGenerator
	segmenter reveal.Segmenter
	clock     clock.Clock

	in  io.Reader
	out io.Writer
	tty bool

	mu        sync.Mutex
	engine    tts.Engine
	newEngine func(ctx context.Context) (tts.Engine, error)

	ctx    context.Context
	Cancel context.CancelFunc
}

// Option configures a StoryLoom.
type Option func(*StoryLoom)

// WithGenerator replaces the configured story generator.
func WithGenerator(g generator.StoryGenerator) Option {
	return func(s *StoryLoom) { s.generator = g }
}

// WithEngine replaces the configured speech engine.
func WithEngine(e tts.Engine) Option {
	return func(s *StoryLoom) {
		s.newEngine = func(context.Context) (tts.Engine, error) { return e, nil }
	}
}

// WithIO sets where prompts are read from and stories are written to.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *StoryLoom) {
		s.in = in
		s.out = out
		s.tty = isTerminal(out)
	}
}

// WithClock sets the clock that paces reveals.
func WithClock(c clock.Clock) Option {
	return func(s *StoryLoom) { s.clock = c }
}

func NewStoryLoom(cfg *config.Config, opts ...Option) (*StoryLoom, error) {
	segmenter, err := reveal.NewSegmenter(reveal.Grain(cfg.Reveal.Grain))
	if err != nil {
		return nil, err
	}

	gen, err := generator.New(generator.Config{
		Type:    cfg.Generator.Type,
		URL:     cfg.Generator.URL,
		Timeout: cfg.Generator.Timeout,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &StoryLoom{
		cfg:       cfg,
		generator: gen,
		segmenter: segmenter,
		clock:     clock.New(),
		in:        os.Stdin,
		out:       os.Stdout,
		tty:       isTerminal(os.Stdout),
		ctx:       ctx,
		Cancel:    cancel,
	}
	s.newEngine = func(ctx context.Context) (tts.Engine, error) {
		return tts.NewEngine(ctx, s.ttsConfig())
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *StoryLoom) ttsConfig() tts.Config {
	return tts.Config{
		Type:      s.cfg.TTS.Type,
		Voice:     s.cfg.TTS.Voice,
		Speed:     s.cfg.TTS.Speed,
		Volume:    s.cfg.TTS.Volume,
		CachePath: s.cfg.TTS.CachePath,
		URL:       s.cfg.TTS.URL,
	}
}

// Context is cancelled by Stop.
func (s *StoryLoom) Context() context.Context {
	return s.ctx
}

// Stop cancels running work and silences speech.
func (s *StoryLoom) Stop() {
	s.Cancel()
	s.mu.Lock()
	engine := s.engine
	s.mu.Unlock()
	if engine != nil {
		_ = engine.Stop()
	}
}

// Engine returns the speech engine, creating it on first use.
func (s *StoryLoom) Engine(ctx context.Context) (tts.Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.engine != nil {
		return s.engine, nil
	}
	engine, err := s.newEngine(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create tts engine: %w", err)
	}
	s.engine = engine
	return engine, nil
}

func (s *StoryLoom) ShowWelcome() {
	fmt.Fprintln(s.out)
	colours.Title.Fprintln(s.out, "🌟 Welcome to StoryLoom! 🌟")
	fmt.Fprintln(s.out)
	colours.Info.Fprintln(s.out, "📚 Available commands:")
	fmt.Fprintln(s.out, "  • storyloom tell [idea]   - Write a story and read it aloud")
	fmt.Fprintln(s.out, "  • storyloom reveal [text] - Reveal text as it would be told")
	fmt.Fprintln(s.out, "  • storyloom render [text] - Print one HTML frame")
	fmt.Fprintln(s.out, "  • storyloom voices        - List voices of the speech engine")
	fmt.Fprintln(s.out, "  • storyloom cache         - Inspect the speech cache")
	fmt.Fprintln(s.out)
	colours.Prompt.Fprintln(s.out, "✨ Ready for a magical story adventure? ✨")
}

// ReadIdea joins args into a story idea, asking for one when args are empty.
func (s *StoryLoom) ReadIdea(args []string) (story.Prompt, error) {
	idea := strings.Join(args, " ")
	if strings.TrimSpace(idea) == "" {
		colours.Prompt.Fprint(s.out, "🌟 What should the story be about? ")
		line, err := bufio.NewReader(s.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return story.Prompt{}, fmt.Errorf("failed to read story idea: %w", err)
		}
		idea = line
	}
	return story.Prompt{Text: idea}.Validate()
}

// Tell generates a story for prompt, reads it aloud and reveals it.
func (s *StoryLoom) Tell(ctx context.Context, prompt story.Prompt, plain bool) error {
	prompt, err := prompt.Validate()
	if err != nil {
		return err
	}
	engine := s.speechEngine(ctx)

	if plain || !s.tty {
		colours.Info.Fprintln(s.out, "✍️  Generating...")
		item, err := s.generator.Generate(ctx, prompt)
		if err != nil {
			return fmt.Errorf("failed to generate story: %w", err)
		}
		return s.revealPlain(ctx, item, engine)
	}

	return s.runView(ctx, engine, nil, func(ctx context.Context) (*story.Item, error) {
		return s.generator.Generate(ctx, prompt)
	})
}

// Reveal shows text without generating or reading it aloud.
func (s *StoryLoom) Reveal(ctx context.Context, text string, plain bool) error {
	item := &story.Item{Content: text}
	if plain || !s.tty {
		return s.revealPlain(ctx, item, nil)
	}
	return s.runView(ctx, nil, []view.Option{view.WithRevealing(), view.WithQuitOnDone()},
		func(context.Context) (*story.Item, error) { return item, nil })
}

// Render writes the HTML of one frame of text at cursor.
func (s *StoryLoom) Render(w io.Writer, text string, cursor int, strategy markdown.Strategy, className string) error {
	presenter, err := markdown.NewPresenter(strategy, markdown.WithClassName(className))
	if err != nil {
		return err
	}
	units := s.segmenter.Segment(text)
	if cursor < 0 || cursor > units.Len() {
		cursor = units.Len()
	}
	logrus.WithFields(logrus.Fields{
		"strategy": strategy,
		"cursor":   cursor,
		"units":    units.Len(),
	}).Debug("rendering frame")
	return presenter.Render(w, units, cursor)
}

func (s *StoryLoom) newRevealer(onFrame func(reveal.Frame)) *reveal.Revealer {
	return reveal.New(
		reveal.WithClock(s.clock),
		reveal.WithInterval(s.cfg.Reveal.Interval),
		reveal.WithSegmenter(s.segmenter),
		reveal.WithFrameHandler(onFrame),
		reveal.WithLogger(logrus.WithField("component", "reveal")),
	)
}

// speechEngine returns the engine, or nil when the story has to be told
// without a voice.
func (s *StoryLoom) speechEngine(ctx context.Context) tts.Engine {
	engine, err := s.Engine(ctx)
	if err != nil {
		logrus.WithError(err).Warn("reading without voice")
		colours.Warning.Fprintf(s.out, "🔇 Reading without voice: %v\n", err)
		return nil
	}
	return engine
}

func (s *StoryLoom) speak(ctx context.Context, engine tts.Engine, content string) <-chan error {
	done := make(chan error, 1)
	if engine == nil {
		done <- nil
		return done
	}
	go func() {
		done <- engine.Speak(ctx, markdown.PlainText([]byte(content)))
	}()
	return done
}

func (s *StoryLoom) revealPlain(ctx context.Context, item *story.Item, engine tts.Engine) error {
	if item.Title != "" && !strings.HasPrefix(item.Content, "#") {
		colours.Title.Fprintf(s.out, "📖 %s\n\n", item.Title)
	}
	if item.Author != "" {
		colours.Author.Fprintf(s.out, "✍️  by %s\n\n", item.Author)
	}

	typewriter := view.NewTypewriter(s.out)
	r := s.newRevealer(typewriter.Handle)
	defer r.Stop()

	spoken := s.speak(ctx, engine, item.Content)
	r.SetText(item.Content)
	if err := r.Wait(ctx); err != nil {
		if engine != nil {
			_ = engine.Stop()
		}
		return err
	}
	if err := typewriter.Err(); err != nil {
		return fmt.Errorf("failed to write story: %w", err)
	}

	if err := <-spoken; err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		colours.Error.Fprintf(s.out, "❌ TTS Error: %v\n", err)
		return nil
	}
	if engine != nil {
		colours.Success.Fprintln(s.out, "✅ Story finished! 🌟")
	}
	return nil
}

// runView drives the terminal view. load produces the story once the
// program is running so the spinner shows while it is written.
func (s *StoryLoom) runView(ctx context.Context, engine tts.Engine, opts []view.Option, load func(context.Context) (*story.Item, error)) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts = append(opts, view.WithWidth(s.cfg.Reveal.Width))
	if engine != nil {
		opts = append(opts, view.WithSpeech(engine))
	}
	program := tea.NewProgram(view.NewModel(opts...), tea.WithContext(ctx), tea.WithInput(s.in), tea.WithOutput(s.out))

	r := s.newRevealer(func(f reveal.Frame) {
		program.Send(view.FrameMsg{Frame: f})
	})
	defer r.Stop()

	loaded := make(chan struct{})
	go func() {
		defer close(loaded)
		item, err := load(ctx)
		if err != nil {
			program.Send(view.ErrMsg{Err: fmt.Errorf("failed to generate story: %w", err)})
			return
		}
		// the program is gone, nothing may start after the revealer stops
		if ctx.Err() != nil {
			return
		}
		program.Send(view.StoryMsg{Story: item})
		if engine != nil {
			go func() {
				program.Send(view.SpeechDoneMsg{Err: <-s.speak(ctx, engine, item.Content)})
			}()
		}
		r.SetText(item.Content)
	}()

	final, err := program.Run()
	cancel()
	<-loaded
	if engine != nil {
		_ = engine.Stop()
	}
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("story view failed: %w", err)
	}
	if m, ok := final.(view.Model); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
