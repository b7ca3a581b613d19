package dialogue

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"genesis/internal/history"
	"genesis/internal/intent"
)

func newTestEngine(t *testing.T, out Output, hist *history.Logger) (*Engine, *Manager) {
	t.Helper()
	m, _ := newTestManager(t, &fakeReasoner{answer: "gateway answer"}, false)
	e := NewEngine(m, intent.NewRuleResolver(), out, hist, zaptest.NewLogger(t))
	m.BindEngine(e)
	return e, m
}

func TestProcessUserSpeech(t *testing.T) {
	ctx := context.Background()

	t.Run("time query speaks with neutral motion", func(t *testing.T) {
		out := &fakeOutput{}
		e, m := newTestEngine(t, out, nil)
		m.now = func() time.Time { return time.Date(2026, 8, 29, 15, 45, 0, 0, time.UTC) }

		reply := e.ProcessUserSpeech(ctx, "what time is it")
		assert.Equal(t, "The time is 3:45 PM.", reply)
		assert.Equal(t, []string{"The time is 3:45 PM."}, out.allSpoken())
		assert.Equal(t, []string{MotionNeutral}, out.allPostures())
	})

	t.Run("persona change gets acknowledgment motion", func(t *testing.T) {
		out := &fakeOutput{}
		e, _ := newTestEngine(t, out, nil)

		reply := e.ProcessUserSpeech(ctx, "switch your personality to pirate")
		assert.Equal(t, "Okay, I've switched to my Pirate personality.", reply)
		assert.Equal(t, []string{MotionAck}, out.allPostures())
	})

	t.Run("general query gets thinking motion", func(t *testing.T) {
		out := &fakeOutput{}
		e, _ := newTestEngine(t, out, nil)

		reply := e.ProcessUserSpeech(ctx, "why is the sky blue?")
		assert.Equal(t, "gateway answer", reply)
		assert.Equal(t, []string{MotionThink}, out.allPostures())
	})

	t.Run("positive command upgrades motion to joy", func(t *testing.T) {
		out := &fakeOutput{}
		e, _ := newTestEngine(t, out, nil)

		e.ProcessUserSpeech(ctx, "awesome, please switch your personality to pirate")
		assert.Equal(t, []string{MotionJoy}, out.allPostures())
	})

	t.Run("output failure surfaces a generic apology", func(t *testing.T) {
		out := &fakeOutput{sayErr: errors.New("tts offline")}
		e, _ := newTestEngine(t, out, nil)

		reply := e.ProcessUserSpeech(ctx, "why is the sky blue?")
		assert.Equal(t, "Sorry, I encountered an issue: output failed", reply)
	})

	t.Run("slow speech is a long turn, not a failure", func(t *testing.T) {
		out := &fakeOutput{sayDelay: 150 * time.Millisecond}
		e, _ := newTestEngine(t, out, nil)

		reply := e.ProcessUserSpeech(ctx, "why is the sky blue?")
		assert.Equal(t, "gateway answer", reply)
		assert.Equal(t, []string{"gateway answer"}, out.allSpoken())
	})
}

func TestTurnLogging(t *testing.T) {
	ctx := context.Background()

	t.Run("successful turn is logged", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "interactions.log")
		hist := history.New(path, zaptest.NewLogger(t))

		out := &fakeOutput{}
		e, m := newTestEngine(t, out, hist)
		m.now = func() time.Time { return time.Date(2026, 8, 29, 15, 45, 0, 0, time.UTC) }

		e.ProcessUserSpeech(ctx, "what time is it")

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "| User: what time is it")
		assert.Contains(t, string(raw), "| GENESIS: The time is 3:45 PM.")
	})

	t.Run("slow speech is still logged", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "interactions.log")
		hist := history.New(path, zaptest.NewLogger(t))

		out := &fakeOutput{sayDelay: 150 * time.Millisecond}
		e, _ := newTestEngine(t, out, hist)

		reply := e.ProcessUserSpeech(ctx, "why is the sky blue?")
		require.Equal(t, "gateway answer", reply)

		raw, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(raw), "| User: why is the sky blue?")
		assert.Contains(t, string(raw), "| GENESIS: gateway answer")
	})

	t.Run("failed output is not logged", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "interactions.log")
		hist := history.New(path, zaptest.NewLogger(t))

		out := &fakeOutput{sayErr: errors.New("tts offline")}
		e, _ := newTestEngine(t, out, hist)

		e.ProcessUserSpeech(ctx, "what time is it")
		_, err := os.ReadFile(path)
		assert.True(t, os.IsNotExist(err))
	})
}
