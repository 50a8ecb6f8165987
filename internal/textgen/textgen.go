// Package textgen produces task descriptions and progress summaries with a
// hosted language model.
package textgen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mtlprog/tasktrack/internal/domain"
)

// Provider names a supported model backend.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// HistoryLimit is how many recent entries feed a progress summary.
const HistoryLimit = 10

const maxTokens = 512

const descriptionPrompt = `You are an AI assistant helping to create detailed task descriptions.

Based on the task name provided, write a single paragraph that elaborates on what the task likely entails. Be descriptive and clear.

Task Name: %s
Task Description: `

const progressPrompt = `You are an AI assistant helping to generate progress notes for tasks.

Based on the task history provided, create a concise, one-sentence summary of the task's progress.

Task Name: %s
Task History: %s
Progress Note: `

// Generator is the text-generation boundary.
type Generator interface {
	GenerateDescription(ctx context.Context, taskName string) (string, error)
	GenerateProgressSummary(ctx context.Context, taskName, recentHistory string) (string, error)
}

// completer sends one user prompt and returns the model's text.
type completer interface {
	complete(ctx context.Context, prompt string) (string, error)
}

// Service implements Generator on top of a model backend.
type Service struct {
	backend  completer
	provider Provider
}

var _ Generator = (*Service)(nil)

// Config selects and authenticates a backend.
type Config struct {
	Provider Provider
	Model    string
	APIKey   string
}

// New creates a Service for the configured provider.
func New(cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("textgen: api key for %s is required", cfg.Provider)
	}

	switch cfg.Provider {
	case ProviderAnthropic, "":
		return &Service{backend: newAnthropic(cfg.APIKey, cfg.Model), provider: ProviderAnthropic}, nil
	case ProviderOpenAI:
		return &Service{backend: newOpenAI(cfg.APIKey, cfg.Model), provider: ProviderOpenAI}, nil
	default:
		return nil, fmt.Errorf("textgen: unknown provider %q", cfg.Provider)
	}
}

// Provider returns the backend in use.
func (s *Service) Provider() Provider {
	return s.provider
}

// GenerateDescription writes a one-paragraph description for a task name.
func (s *Service) GenerateDescription(ctx context.Context, taskName string) (string, error) {
	if strings.TrimSpace(taskName) == "" {
		return "", fmt.Errorf("%w: task name is required", domain.ErrValidation)
	}
	return s.generate(ctx, fmt.Sprintf(descriptionPrompt, taskName))
}

// GenerateProgressSummary writes a one-sentence progress note from recent history.
func (s *Service) GenerateProgressSummary(ctx context.Context, taskName, recentHistory string) (string, error) {
	if strings.TrimSpace(taskName) == "" {
		return "", fmt.Errorf("%w: task name is required", domain.ErrValidation)
	}
	return s.generate(ctx, fmt.Sprintf(progressPrompt, taskName, recentHistory))
}

func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	text, err := s.backend.complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", domain.ErrGeneration, s.provider, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s returned no text", domain.ErrGeneration, s.provider)
	}
	return text, nil
}

// HistoryText renders history entries, newest first, one line each. Only the
// first HistoryLimit entries are used.
func HistoryText(entries []*domain.HistoryEntry) string {
	if len(entries) > HistoryLimit {
		entries = entries[:HistoryLimit]
	}

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s %s: %s", e.ChangedAt.UTC().Format(time.RFC3339), e.Actor, e.ChangeDescription)
		if e.ChangeDetail != "" {
			fmt.Fprintf(&b, " (%s)", strings.ReplaceAll(e.ChangeDetail, "\n", "; "))
		}
	}
	return b.String()
}
