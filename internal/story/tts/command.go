package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// commandSpec describes an external synthesizer program.
type commandSpec struct {
	engine     EngineType
	candidates []string
	args       func(cfg Config, text string) []string
	env        func(text string) []string
	voices     func(ctx context.Context, path string) ([]string, error)
}

var espeakSpec = commandSpec{
	engine:     EngineTypeESpeak,
	candidates: []string{"espeak-ng", "espeak"},
	args: func(cfg Config, text string) []string {
		var args []string
		if cfg.Voice != "" && cfg.Voice != "default" {
			args = append(args, "-v", cfg.Voice)
		}
		// words per minute, 175 is the espeak default
		args = append(args, "-s", strconv.Itoa(int(175*orOne(cfg.Speed))))
		// amplitude 0-200, 100 is the espeak default
		args = append(args, "-a", strconv.Itoa(int(100*orOne(cfg.Volume))))
		return append(args, "--", text)
	},
	voices: func(ctx context.Context, path string) ([]string, error) {
		out, err := exec.CommandContext(ctx, path, "--voices").Output()
		if err != nil {
			return nil, err
		}
		return parseESpeakVoices(string(out)), nil
	},
}

var saySpec = commandSpec{
	engine:     EngineTypeSay,
	candidates: []string{"say"},
	args: func(cfg Config, text string) []string {
		var args []string
		if cfg.Voice != "" && cfg.Voice != "default" {
			args = append(args, "-v", cfg.Voice)
		}
		args = append(args, "-r", strconv.Itoa(int(175*orOne(cfg.Speed))))
		return append(args, "--", text)
	},
	voices: func(ctx context.Context, path string) ([]string, error) {
		out, err := exec.CommandContext(ctx, path, "-v", "?").Output()
		if err != nil {
			return nil, err
		}
		return parseSayVoices(string(out)), nil
	},
}

// sapiSpec drives System.Speech through PowerShell. The text travels in an
// environment variable so it is never parsed as script.
var sapiSpec = commandSpec{
	engine:     EngineTypeSAPI,
	candidates: []string{"powershell", "pwsh"},
	args: func(cfg Config, _ string) []string {
		// SAPI rate is -10..10, volume 0..100
		rate := int(orOne(cfg.Speed)*10) - 10
		volume := int(orOne(cfg.Volume) * 100)
		script := fmt.Sprintf("Add-Type -AssemblyName System.Speech; "+
			"$synth = New-Object System.Speech.Synthesis.SpeechSynthesizer; "+
			"$synth.Rate = %d; $synth.Volume = %d; ", clampInt(rate, -10, 10), clampInt(volume, 0, 100))
		if cfg.Voice != "" && cfg.Voice != "default" {
			script += fmt.Sprintf("$synth.SelectVoice('%s'); ", strings.ReplaceAll(cfg.Voice, "'", "''"))
		}
		script += "$synth.Speak($env:STORYLOOM_TEXT)"
		return []string{"-NoProfile", "-NonInteractive", "-Command", script}
	},
	env: func(text string) []string {
		return []string{"STORYLOOM_TEXT=" + text}
	},
	voices: func(ctx context.Context, path string) ([]string, error) {
		out, err := exec.CommandContext(ctx, path, "-NoProfile", "-NonInteractive", "-Command",
			"Add-Type -AssemblyName System.Speech; "+
				"(New-Object System.Speech.Synthesis.SpeechSynthesizer).GetInstalledVoices() | "+
				"ForEach-Object { $_.VoiceInfo.Name }").Output()
		if err != nil {
			return nil, err
		}
		return nonEmptyLines(string(out)), nil
	},
}

// CommandEngine speaks by running an external synthesizer process.
type CommandEngine struct {
	spec   commandSpec
	path   string
	config Config

	mu      sync.Mutex
	cmd     *exec.Cmd
	paused  bool
	stopped bool
}

func newCommandEngine(spec commandSpec, config Config) (*CommandEngine, error) {
	path, err := findExecutable(spec.candidates)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.engine, err)
	}
	return &CommandEngine{spec: spec, path: path, config: config}, nil
}

func findExecutable(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s found in PATH", ErrNotAvailable, strings.Join(candidates, ", "))
}

func (e *CommandEngine) Name() string { return e.spec.engine.String() }

func (e *CommandEngine) Speak(ctx context.Context, text string) error {
	e.mu.Lock()
	if e.cmd != nil {
		e.mu.Unlock()
		return fmt.Errorf("already playing")
	}
	cmd := exec.CommandContext(ctx, e.path, e.spec.args(e.config, text)...)
	if e.spec.env != nil {
		cmd.Env = append(os.Environ(), e.spec.env(text)...)
	}
	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("failed to start %s: %w", e.spec.engine, err)
	}
	e.cmd = cmd
	e.paused = false
	e.stopped = false
	e.mu.Unlock()

	logrus.WithFields(logrus.Fields{"engine": e.spec.engine, "chars": len(text)}).Debug("speaking")
	err := cmd.Wait()

	e.mu.Lock()
	stopped := e.stopped
	e.cmd = nil
	e.paused = false
	e.mu.Unlock()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var exitErr *exec.ExitError
	if stopped && errors.As(err, &exitErr) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", e.spec.engine, err)
	}
	return nil
}

func (e *CommandEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || e.cmd.Process == nil {
		return nil
	}
	e.stopped = true
	if e.paused {
		// a stopped process must be woken up to die on some platforms
		_ = resumeProcess(e.cmd.Process)
	}
	return e.cmd.Process.Kill()
}

func (e *CommandEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || e.paused {
		return nil
	}
	if err := pauseProcess(e.cmd.Process); err != nil {
		return err
	}
	e.paused = true
	return nil
}

func (e *CommandEngine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || !e.paused {
		return nil
	}
	if err := resumeProcess(e.cmd.Process); err != nil {
		return err
	}
	e.paused = false
	return nil
}

func (e *CommandEngine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cmd != nil && !e.paused
}

func (e *CommandEngine) Voices(ctx context.Context) ([]string, error) {
	return e.spec.voices(ctx, e.path)
}

// parseESpeakVoices reads the table printed by "espeak --voices":
// Pty Language Age/Gender VoiceName File Other Languages
func parseESpeakVoices(output string) []string {
	voices := make([]string, 0)
	for i, line := range strings.Split(output, "\n") {
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			voices = append(voices, fields[3])
		}
	}
	return voices
}

var sayVoiceLine = regexp.MustCompile(`^(.+?)\s+[a-z]{2,3}[_-][A-Za-z0-9]+\s+#`)

// parseSayVoices reads "say -v ?" lines such as
// "Bad News            en_US    # The light you see ..."
func parseSayVoices(output string) []string {
	voices := make([]string, 0)
	for _, line := range strings.Split(output, "\n") {
		if m := sayVoiceLine.FindStringSubmatch(line); m != nil {
			voices = append(voices, strings.TrimSpace(m[1]))
		}
	}
	return voices
}

func nonEmptyLines(output string) []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func orOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
