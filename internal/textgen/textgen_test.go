package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/tasktrack/internal/domain"
)

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeCompleter) complete(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

func newFake(reply string, err error) (*Service, *fakeCompleter) {
	fake := &fakeCompleter{reply: reply, err: err}
	return &Service{backend: fake, provider: ProviderAnthropic}, fake
}

func TestGenerateDescription(t *testing.T) {
	svc, fake := newFake("  Plan and ship the second release.\n", nil)

	text, err := svc.GenerateDescription(context.Background(), "Ship v2")
	require.NoError(t, err)
	assert.Equal(t, "Plan and ship the second release.", text)
	assert.Contains(t, fake.prompt, "Task Name: Ship v2")
	assert.True(t, strings.HasSuffix(fake.prompt, "Task Description: "))
}

func TestGenerateProgressSummary(t *testing.T) {
	svc, fake := newFake("Staging is green.", nil)

	text, err := svc.GenerateProgressSummary(context.Background(), "Ship v2", "line one\nline two")
	require.NoError(t, err)
	assert.Equal(t, "Staging is green.", text)
	assert.Contains(t, fake.prompt, "Task History: line one\nline two")
}

func TestGenerate_Failures(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		err   error
	}{
		{"backend error", "", errors.New("rate limited")},
		{"empty reply", "   ", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newFake(tc.reply, tc.err)
			_, err := svc.GenerateDescription(context.Background(), "Ship v2")
			assert.ErrorIs(t, err, domain.ErrGeneration)
		})
	}
}

func TestGenerate_RequiresTaskName(t *testing.T) {
	svc, fake := newFake("unused", nil)

	_, err := svc.GenerateDescription(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.GenerateProgressSummary(context.Background(), "", "history")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, fake.prompt)
}

func TestNew(t *testing.T) {
	_, err := New(Config{Provider: ProviderAnthropic})
	assert.Error(t, err)

	_, err = New(Config{Provider: "mistral", APIKey: "k"})
	assert.Error(t, err)

	svc, err := New(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, svc.Provider())

	svc, err = New(Config{Provider: ProviderOpenAI, APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, svc.Provider())
}

func TestHistoryText(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	var entries []*domain.HistoryEntry
	for i := 0; i < HistoryLimit+3; i++ {
		entries = append(entries, &domain.HistoryEntry{
			ChangedAt:         at,
			Actor:             "Alice",
			ChangeDescription: fmt.Sprintf("change %d", i),
		})
	}
	entries[0].ChangeDetail = "a\nb"

	text := HistoryText(entries)
	lines := strings.Split(text, "\n")
	require.Len(t, lines, HistoryLimit)
	assert.Equal(t, "2026-05-01T09:00:00Z Alice: change 0 (a; b)", lines[0])
	assert.Equal(t, "2026-05-01T09:00:00Z Alice: change 9", lines[HistoryLimit-1])

	assert.Empty(t, HistoryText(nil))
}
