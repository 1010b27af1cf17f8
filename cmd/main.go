package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"storyloom/internal/cli/scheme/colours"
	"storyloom/internal/config"
	"storyloom/internal/reveal/markdown"
	"storyloom/internal/story/nest"
)

func main() {
	v := config.New()
	var app *nest.StoryLoom

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		if app != nil {
			app.Stop()
		}
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Sweet dreams! 🌙"))
		os.Exit(0)
	}()

	rootCmd := &cobra.Command{
		Use:   "storyloom",
		Short: "🧶 Stories written, read aloud and revealed word by word",
		Long: `
┌─────────────────────────────────────┐
│  🧶 Welcome to StoryLoom! 📖        │
│  Stories that appear as they're told │
└─────────────────────────────────────┘

StoryLoom writes a story from your idea, reads it aloud and reveals the
text one unit at a time while it is told. 🌙
		`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			level, _ := logrus.ParseLevel(cfg.Log.Level)
			logrus.SetLevel(level)
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				colours.SetEnabled(false)
			}

			app, err = nest.NewStoryLoom(cfg)
			return err
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("grain", "", "Reveal unit: char, grapheme, word or word-loose")
	flags.Duration("interval", 0, "Delay between two revealed units")
	flags.String("engine", "", "Speech engine: auto, mock, espeak, say, sapi, google or remote")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.Bool("no-color", false, "Disable coloured output")
	bindFlag(v, "reveal.grain", flags.Lookup("grain"))
	bindFlag(v, "reveal.interval", flags.Lookup("interval"))
	bindFlag(v, "tts.type", flags.Lookup("engine"))
	bindFlag(v, "log.level", flags.Lookup("log-level"))

	// Tell command
	tellCmd := &cobra.Command{
		Use:   "tell [idea...]",
		Short: "📖 Write a story and read it aloud",
		Long:  "Generate a story from an idea, then read it aloud while the text is revealed",
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := app.ReadIdea(args)
			if err != nil {
				return err
			}
			plain, _ := cmd.Flags().GetBool("plain")
			return app.Tell(app.Context(), prompt, plain)
		},
	}
	tellCmd.Flags().Bool("plain", false, "Write plain text instead of the terminal view")

	// Reveal command
	revealCmd := &cobra.Command{
		Use:   "reveal [text...]",
		Short: "✨ Reveal text one unit at a time",
		Long:  "Reveal text from the arguments, a file or stdin at the configured pace",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			plain, _ := cmd.Flags().GetBool("plain")
			return app.Reveal(app.Context(), text, plain)
		},
	}
	revealCmd.Flags().StringP("file", "f", "", "Read the text from a file")
	revealCmd.Flags().Bool("plain", false, "Write plain text instead of the terminal view")

	// Render command
	renderCmd := &cobra.Command{
		Use:   "render [text...]",
		Short: "🖼️ Print one HTML frame of a reveal",
		Long:  "Render the markdown text as HTML with the first --cursor units revealed",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}
			cursor, _ := cmd.Flags().GetInt("cursor")
			class, _ := cmd.Flags().GetString("class")
			strategy := markdown.Strategy(v.GetString("reveal.strategy"))
			return app.Render(cmd.OutOrStdout(), text, cursor, strategy, class)
		},
	}
	renderCmd.Flags().StringP("file", "f", "", "Read the text from a file")
	renderCmd.Flags().Int("cursor", -1, "Number of revealed units, all when negative")
	renderCmd.Flags().String("strategy", "", "Presenter strategy: flags or substring")
	renderCmd.Flags().String("class", "", "Class name of the container element")
	bindFlag(v, "reveal.strategy", renderCmd.Flags().Lookup("strategy"))

	// Voices command
	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🎤 List voices of the speech engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if engines, _ := cmd.Flags().GetBool("engines"); engines {
				app.ListEngines()
				return nil
			}
			return app.ListVoices(app.Context())
		},
	}
	voicesCmd.Flags().Bool("engines", false, "List speech engines instead of voices")

	// Cache commands
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "📊 Manage the speech cache",
		Long:  "Inspect or clear audio cached by the google speech engine",
	}
	cacheCmd.AddCommand(
		&cobra.Command{
			Use:   "status",
			Short: "📊 Show cache status",
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.ShowCacheStatus(app.Context())
			},
		},
		&cobra.Command{
			Use:   "clear",
			Short: "🧹 Remove cached audio",
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.ClearSpeechCache(app.Context())
			},
		},
	)

	rootCmd.AddCommand(tellCmd, revealCmd, renderCmd, voicesCmd, cacheCmd)

	if err := rootCmd.Execute(); err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}

func bindFlag(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		logrus.WithError(err).WithField("key", key).Fatal("failed to bind flag")
	}
}

// readText takes the text from --file, the arguments or stdin, in that order.
func readText(cmd *cobra.Command, args []string) (string, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	if len(data) == 0 {
		return "", errors.New("no text given: pass it as arguments, --file or stdin")
	}
	return string(data), nil
}
