package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ragbench/ragbench/internal/config"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and configuration information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd.OutOrStdout())
		},
	}
}

func runVersion(w io.Writer) error {
	fmt.Fprintf(w, "ragbench %s\n", AppVersion)
	fmt.Fprintf(w, "Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", GitCommit)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Backend: %s\n", cfg.Backend)
	fmt.Fprintf(w, "  Embed model: %s\n", cfg.EmbedModel)
	fmt.Fprintf(w, "  Data dir: %s\n", cfg.DataDir)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Providers:")
	fmt.Fprintf(w, "  OpenAI: %s\n", keyStatus(cfg.OpenAIAPIKey))
	fmt.Fprintf(w, "  Anthropic: %s\n", keyStatus(cfg.AnthropicAPIKey))
	fmt.Fprintf(w, "  Gemini: %s\n", keyStatus(cfg.GeminiAPIKey))
	if cfg.OllamaHost != "" {
		fmt.Fprintf(w, "  Ollama: %s\n", cfg.OllamaHost)
	} else {
		fmt.Fprintln(w, "  Ollama: not configured")
	}

	return nil
}

// keyStatus reports whether an API key is set without printing more
// than its edges.
func keyStatus(key string) string {
	if key == "" {
		return "not configured"
	}
	if len(key) < 8 {
		return "configured"
	}
	return fmt.Sprintf("%s...%s (configured)", key[:4], key[len(key)-4:])
}
