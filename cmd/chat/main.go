package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"buiq-backend/internal/config"
	"buiq-backend/internal/conversation"
	"buiq-backend/internal/logger"
	"buiq-backend/internal/services"
	"buiq-backend/internal/tui"
)

const chatLongDesc string = `Chat with Gemini from the terminal.

Reads the same environment as the server (GEMINI_API_KEY, GEMINI_MODEL,
CHAT_RENDER_MODE, ...), optionally from a .env file. The conversation
lives in memory and ends when the program exits.

Examples:
  buiq-chat
  buiq-chat --markdown
  buiq-chat --env-file ./chat.env --log-file /tmp/buiq.log --debug`

const chatShortDesc string = "Terminal chat client"

type chatCommander struct {
	envFile  string
	logFile  string
	markdown bool
	debug    bool
}

func newChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:          "buiq-chat",
		Short:        chatShortDesc,
		Long:         chatLongDesc,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.envFile, "env-file", "", "Path to a .env file (defaults to ./.env when present)")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Write logs to this file (logs are discarded when empty)")
	cmd.Flags().BoolVar(&cmder.markdown, "markdown", false, "Render replies as markdown instead of cleaned plain text")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if c.markdown {
		cfg.RenderMode = config.RenderMarkdown
	}

	log := zap.NewNop()
	if c.logFile != "" {
		log, err = logger.NewFileLogger(c.logFile, c.debug || cfg.Debug)
		if err != nil {
			return err
		}
	}
	defer log.Sync()

	answers, closeAnswers, err := services.NewAnswerService(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("could not create Gemini client: %w", err)
	}
	defer closeAnswers()

	generator := services.NewGenerator(
		uuid.New(),
		conversation.NewStore(),
		answers,
		services.ReplyProcessorFromConfig(cfg),
		nil,
		nil,
		log,
	)

	log.Info("terminal chat started",
		zap.String("transport", cfg.GeminiTransport),
		zap.String("model", cfg.GeminiModel),
		zap.String("render_mode", cfg.RenderMode),
	)

	p := tea.NewProgram(tui.New(generator, cfg.IsMarkdown()), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

// loadConfig turns the missing-variable panic of the config loader into an error.
func (c *chatCommander) loadConfig() (cfg *config.Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid configuration: %v", r)
		}
	}()

	if c.envFile != "" {
		return config.LoadFile(c.envFile)
	}
	return config.Load(), nil
}

func main() {
	if err := newChatCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
