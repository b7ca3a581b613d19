// Package dialogue orchestrates conversation turns: intent dispatch,
// persona/tone state, plugin routing, and the hand-off to the external
// reasoning gateway. The Manager owns conversation state; the Engine
// (see engine.go) owns output planning and execution.
package dialogue

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"genesis/internal/gateway"
	"genesis/internal/intent"
	"genesis/internal/persona"
	"genesis/internal/plugin"
	"genesis/internal/robot"
	"genesis/internal/tasks"
)

// FallbackReply is spoken when no handler, plugin, or gateway answer is
// available for a turn.
const FallbackReply = "I'm not sure how to respond to that."

// conversationState pairs the active persona with the active tone. The
// whole pair swaps atomically so a concurrent turn never reads a persona
// name alongside the previous tone.
type conversationState struct {
	persona persona.Persona
	tone    string
}

type handlerFunc func(ctx context.Context, res intent.Result) (string, error)

// Reasoner is the slice of the external reasoning gateway the dialogue
// layer consumes. *gateway.Gateway satisfies it.
type Reasoner interface {
	Respond(ctx context.Context, systemInstruction, userQuery string) string
	Stylize(ctx context.Context, systemPrompt, baseReply, userQuery string) string
}

// Manager holds conversation state and resolves one turn's reply.
// Turns are independent; concurrent calls are safe.
type Manager struct {
	resolver  intent.Resolver
	personas  *persona.Registry
	plugins   *plugin.Registry
	gw        Reasoner
	reminders *tasks.ReminderService

	styling  bool
	state    atomic.Pointer[conversationState]
	handlers map[string]handlerFunc
	engine   *Engine

	now func() time.Time
	log *zap.Logger
}

// ManagerDeps collects the collaborators a Manager needs.
type ManagerDeps struct {
	Resolver  intent.Resolver
	Personas  *persona.Registry
	Plugins   *plugin.Registry
	Gateway   Reasoner
	Reminders *tasks.ReminderService
	Styling   bool
	Logger    *zap.Logger
}

// NewManager builds the orchestrator. The engine reference is bound
// afterwards with BindEngine; until then HandleSensorEvent drops events.
func NewManager(deps ManagerDeps, defaultPersona string) *Manager {
	m := &Manager{
		resolver:  deps.Resolver,
		personas:  deps.Personas,
		plugins:   deps.Plugins,
		gw:        deps.Gateway,
		reminders: deps.Reminders,
		styling:   deps.Styling,
		now:       time.Now,
		log:       deps.Logger.Named("dialogue"),
	}
	m.handlers = map[string]handlerFunc{
		intent.TellTime:          m.handleTellTime,
		intent.TellDate:          m.handleTellDate,
		intent.ChangePersonality: m.handleChangePersona,
		intent.ChangeTone:        m.handleChangeTone,
		intent.SetReminder:       m.handleSetReminder,
	}

	p, ok := m.personas.Get(defaultPersona)
	if !ok {
		m.log.Warn("default persona not found, falling back",
			zap.String("persona", defaultPersona))
		if p, ok = m.personas.First(); !ok {
			p = persona.Default()
		}
	}
	m.state.Store(&conversationState{persona: p, tone: p.Tone})
	return m
}

// BindEngine completes the two-phase construction.
func (m *Manager) BindEngine(e *Engine) { m.engine = e }

// CurrentPersona returns the active persona name and tone.
func (m *Manager) CurrentPersona() (string, string) {
	s := m.state.Load()
	return s.persona.Name, s.tone
}

// HandleSensorEvent is the poller-facing intake. Only word-recognized
// events start turns; each turn runs detached so the poller and the
// event callback are never stalled by dialogue work. Errors stay inside
// the turn.
func (m *Manager) HandleSensorEvent(ev robot.SensorEvent) {
	if ev.Name != robot.EventWordRecognized {
		return
	}
	text, ok := robot.UtteranceText(ev.Value)
	if !ok || strings.TrimSpace(text) == "" {
		return
	}
	if m.engine == nil {
		m.log.Warn("utterance dropped, engine not bound", zap.String("text", text))
		return
	}

	m.log.Info("utterance recognized", zap.String("text", text))
	go m.engine.ProcessUserSpeech(context.Background(), text)
}

// ProcessTurn resolves text and returns the styled reply. It is also the
// entry point for internally generated text such as plugin sub-dialogues.
func (m *Manager) ProcessTurn(ctx context.Context, text string) string {
	res := m.resolver.Resolve(text)
	reply, styled := m.dispatch(ctx, res, text)
	if styled {
		return reply
	}
	return m.stylize(ctx, reply, text)
}

// dispatch picks the reply source: internal handler, plugin, gateway,
// or the no-handler notice. The bool reports whether the reply is
// already persona-styled.
func (m *Manager) dispatch(ctx context.Context, res intent.Result, text string) (string, bool) {
	if handler, ok := m.handlers[res.Intent]; ok {
		return m.runHandler(ctx, res, handler), false
	}

	if p := m.plugins.Resolve(res.Intent); p != nil {
		reply, err := p.Execute(ctx, res, text)
		if err != nil {
			m.log.Error("plugin failed",
				zap.String("plugin", p.Name()), zap.String("intent", res.Intent), zap.Error(err))
			return intentApology(res.Intent), false
		}
		if reply != "" {
			return reply, false
		}
	}

	if res.Intent == intent.GeneralQuery || res.Intent == intent.Unknown {
		return m.askGateway(ctx, text), true
	}
	return fmt.Sprintf("I understood that as a %s request, but I don't have a handler for it.",
		strings.ReplaceAll(res.Intent, "_", " ")), false
}

// runHandler invokes an internal handler with full error isolation. A
// panic or error becomes an apology naming the intent, never an escape.
func (m *Manager) runHandler(ctx context.Context, res intent.Result, handler handlerFunc) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("handler panicked",
				zap.String("intent", res.Intent), zap.Any("panic", r))
			reply = intentApology(res.Intent)
		}
	}()

	reply, err := handler(ctx, res)
	if err != nil {
		m.log.Error("handler failed", zap.String("intent", res.Intent), zap.Error(err))
		return intentApology(res.Intent)
	}
	return reply
}

// askGateway sends the raw query to the external reasoning backend under
// the active persona. Sentinels degrade to the fixed fallback so a soft
// gateway failure is never spoken.
func (m *Manager) askGateway(ctx context.Context, text string) string {
	answer := m.gw.Respond(ctx, m.styleInstruction(), text)
	if gateway.IsSentinel(answer) {
		m.log.Warn("gateway unavailable for query", zap.String("reply", answer))
		return FallbackReply
	}
	return answer
}

// stylize post-processes a base reply through the gateway when styling
// is enabled. Failure keeps the base reply.
func (m *Manager) stylize(ctx context.Context, reply, userText string) string {
	if !m.styling || reply == "" {
		return reply
	}
	return m.gw.Stylize(ctx, m.styleInstruction(), reply, userText)
}

// styleInstruction composes the system instruction from the active
// persona and tone.
func (m *Manager) styleInstruction() string {
	s := m.state.Load()
	p := s.persona
	p.Tone = s.tone
	return fmt.Sprintf("%s Respond in a %s tone, suitable for robotic speech.",
		p.SystemPrompt(), s.tone)
}

func intentApology(intentName string) string {
	return fmt.Sprintf("Sorry, something went wrong while handling your %s request.",
		strings.ReplaceAll(intentName, "_", " "))
}
