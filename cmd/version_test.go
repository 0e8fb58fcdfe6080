package cmd

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

// resetConfigEnv points HOME at an empty temp directory and clears the
// environment variables config.Load binds, so the command sees pure
// defaults.
func resetConfigEnv(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
		"RAGBENCH_POSTGRES_URL", "DATABASE_URL",
		"RAGBENCH_HOST", "RAGBENCH_PORT", "RAGBENCH_BACKEND",
		"RAGBENCH_DATA_DIR", "RAGBENCH_EMBED_MODEL", "RAGBENCH_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestVersionCommand(t *testing.T) {
	resetConfigEnv(t)

	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	for _, want := range []string{
		"ragbench " + AppVersion,
		"Build Time:",
		"Git Commit:",
		"Backend: chromem",
		"Embed model: hash-dense",
		"OpenAI: not configured",
		"Ollama: http://localhost:11434",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVersionCommandMasksKeys(t *testing.T) {
	resetConfigEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-0123456789abcdef")

	out, err := runCommand(t, "version")
	if err != nil {
		t.Fatalf("Execute() failed: %v", err)
	}

	if !strings.Contains(out, "OpenAI: sk-0...cdef (configured)") {
		t.Errorf("output missing masked OpenAI key:\n%s", out)
	}
	if strings.Contains(out, "sk-0123456789abcdef") {
		t.Error("output leaks the full API key")
	}
}

func TestKeyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "empty", key: "", want: "not configured"},
		{name: "short key hides edges", key: "abc", want: "configured"},
		{name: "long key shows edges", key: "sk-0123456789abcdef", want: "sk-0...cdef (configured)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := keyStatus(tt.key); got != tt.want {
				t.Errorf("keyStatus(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}
