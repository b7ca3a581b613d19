package dialogue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"genesis/internal/gateway"
	"genesis/internal/intent"
	"genesis/internal/persona"
	"genesis/internal/plugin"
	"genesis/internal/robot"
	"genesis/internal/tasks"
)

type fakeReasoner struct {
	mu      sync.Mutex
	answer  string // empty means "backend down"
	styled  string // non-empty overrides Stylize output
	lastSys string
}

func (f *fakeReasoner) Respond(_ context.Context, sys, _ string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSys = sys
	if f.answer == "" {
		return gateway.SentinelDisconnected
	}
	return f.answer
}

func (f *fakeReasoner) Stylize(_ context.Context, sys, base, _ string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSys = sys
	if f.styled == "" {
		return base
	}
	return f.styled
}

func (f *fakeReasoner) systemInstruction() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSys
}

type fakeOutput struct {
	mu       sync.Mutex
	spoken   []string
	postures []string
	sayErr   error
	sayDelay time.Duration
}

func (f *fakeOutput) Say(text string) error {
	if f.sayDelay > 0 {
		time.Sleep(f.sayDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sayErr != nil {
		return f.sayErr
	}
	f.spoken = append(f.spoken, text)
	return nil
}

func (f *fakeOutput) GoToPosture(posture string, _ float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postures = append(f.postures, posture)
	return nil
}

func (f *fakeOutput) allSpoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

func (f *fakeOutput) allPostures() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.postures...)
}

type claimPlugin struct {
	name    string
	intents map[string]bool
	reply   string
	err     error
	calls   int
}

func (p *claimPlugin) Name() string                 { return p.name }
func (p *claimPlugin) Description() string          { return "test" }
func (p *claimPlugin) SupportsIntent(n string) bool { return p.intents[n] }
func (p *claimPlugin) Execute(context.Context, intent.Result, string) (string, error) {
	p.calls++
	return p.reply, p.err
}

func testPersonas(t *testing.T) *persona.Registry {
	t.Helper()
	reg := persona.NewRegistry(zaptest.NewLogger(t))
	reg.Register(persona.Persona{
		Name:                 "Genesis",
		Tone:                 "neutral",
		SystemPromptTemplate: "You are {{name}}. Speak in a {{tone}} voice.",
	})
	reg.Register(persona.Persona{
		Name:                 "Pirate",
		Tone:                 "salty",
		SystemPromptTemplate: "You are {{name}}, a sea dog with a {{tone}} tongue.",
	})
	return reg
}

func newTestManager(t *testing.T, gw Reasoner, styling bool) (*Manager, *plugin.Registry) {
	t.Helper()
	log := zaptest.NewLogger(t)
	plugins := plugin.NewRegistry(log)
	m := NewManager(ManagerDeps{
		Resolver: intent.NewRuleResolver(),
		Personas: testPersonas(t),
		Plugins:  plugins,
		Gateway:  gw,
		Styling:  styling,
		Logger:   log,
	}, "genesis")
	return m, plugins
}

func TestProcessTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("internal intent skips plugins", func(t *testing.T) {
		m, plugins := newTestManager(t, &fakeReasoner{}, false)
		greedy := &claimPlugin{name: "greedy", intents: map[string]bool{intent.TellTime: true}, reply: "hijacked"}
		require.NoError(t, plugins.Register(greedy, plugin.Resources{}))

		m.now = func() time.Time { return time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC) }
		reply := m.ProcessTurn(ctx, "what time is it")
		assert.Equal(t, "The time is 10:30 AM.", reply)
		assert.Zero(t, greedy.calls)
	})

	t.Run("plugin reply returned verbatim without styling", func(t *testing.T) {
		m, plugins := newTestManager(t, &fakeReasoner{}, false)
		p := &claimPlugin{name: "notes", intents: map[string]bool{intent.TakeNote: true}, reply: "Noted: buy milk."}
		require.NoError(t, plugins.Register(p, plugin.Resources{}))

		reply := m.ProcessTurn(ctx, "take a note to buy milk")
		assert.Equal(t, "Noted: buy milk.", reply)
		assert.Equal(t, 1, p.calls)
	})

	t.Run("plugin error becomes intent apology", func(t *testing.T) {
		m, plugins := newTestManager(t, &fakeReasoner{}, false)
		p := &claimPlugin{name: "notes", intents: map[string]bool{intent.TakeNote: true}, err: errors.New("db locked")}
		require.NoError(t, plugins.Register(p, plugin.Resources{}))

		reply := m.ProcessTurn(ctx, "take a note to buy milk")
		assert.Equal(t, "Sorry, something went wrong while handling your take note request.", reply)
	})

	t.Run("unsupported intent yields no-handler notice", func(t *testing.T) {
		m, plugins := newTestManager(t, &fakeReasoner{}, false)
		// notes intent with no plugin registered
		_ = plugins
		reply := m.ProcessTurn(ctx, "take a note to buy milk")
		assert.Equal(t, "I understood that as a take note request, but I don't have a handler for it.", reply)
	})

	t.Run("general query goes to the gateway under the active persona", func(t *testing.T) {
		gw := &fakeReasoner{answer: "The sky scatters blue light."}
		m, _ := newTestManager(t, gw, true)

		reply := m.ProcessTurn(ctx, "why is the sky blue?")
		assert.Equal(t, "The sky scatters blue light.", reply)
		assert.Contains(t, gw.systemInstruction(), "You are Genesis")
		assert.Contains(t, gw.systemInstruction(), "neutral tone")
	})

	t.Run("gateway sentinel degrades to fallback", func(t *testing.T) {
		m, _ := newTestManager(t, &fakeReasoner{}, true)
		reply := m.ProcessTurn(ctx, "why is the sky blue?")
		assert.Equal(t, FallbackReply, reply)
	})

	t.Run("styling applies to handler replies", func(t *testing.T) {
		gw := &fakeReasoner{styled: "Arr, the clock be strikin' ten thirty!"}
		m, _ := newTestManager(t, gw, true)
		m.now = func() time.Time { return time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC) }

		reply := m.ProcessTurn(ctx, "what time is it")
		assert.Equal(t, "Arr, the clock be strikin' ten thirty!", reply)
	})

	t.Run("handler panic becomes intent apology", func(t *testing.T) {
		m, _ := newTestManager(t, &fakeReasoner{}, false)
		m.handlers["boom"] = func(context.Context, intent.Result) (string, error) {
			panic("handler bug")
		}
		reply := m.runHandler(ctx, intent.Result{Intent: "boom"}, m.handlers["boom"])
		assert.Equal(t, "Sorry, something went wrong while handling your boom request.", reply)
	})
}

func TestPersonaAndToneHandlers(t *testing.T) {
	ctx := context.Background()

	t.Run("switch persona updates name and tone together", func(t *testing.T) {
		m, _ := newTestManager(t, &fakeReasoner{}, false)

		reply := m.ProcessTurn(ctx, "switch your personality to pirate")
		assert.Equal(t, "Okay, I've switched to my Pirate personality.", reply)

		name, tone := m.CurrentPersona()
		assert.Equal(t, "Pirate", name)
		assert.Equal(t, "salty", tone)
	})

	t.Run("unknown persona lists available names", func(t *testing.T) {
		m, _ := newTestManager(t, &fakeReasoner{}, false)
		reply := m.ProcessTurn(ctx, "switch your personality to batman")
		assert.Equal(t, "I don't have a personality called batman. Available personalities are: Genesis, Pirate.", reply)

		name, _ := m.CurrentPersona()
		assert.Equal(t, "Genesis", name)
	})

	t.Run("change tone keeps persona", func(t *testing.T) {
		m, _ := newTestManager(t, &fakeReasoner{}, false)
		reply := m.ProcessTurn(ctx, "please speak in a cheerful tone")
		assert.Equal(t, "Alright, I'll use a cheerful tone from now on.", reply)

		name, tone := m.CurrentPersona()
		assert.Equal(t, "Genesis", name)
		assert.Equal(t, "cheerful", tone)
	})
}

func TestReminderHandler(t *testing.T) {
	ctx := context.Background()
	log := zaptest.NewLogger(t)

	newManagerWithReminders := func(t *testing.T) (*Manager, *tasks.Scheduler, *fakeOutput) {
		sched := tasks.NewScheduler(log)
		out := &fakeOutput{}
		m := NewManager(ManagerDeps{
			Resolver:  intent.NewRuleResolver(),
			Personas:  testPersonas(t),
			Plugins:   plugin.NewRegistry(log),
			Gateway:   &fakeReasoner{},
			Reminders: tasks.NewReminderService(sched, out, nil, log),
			Logger:    log,
		}, "genesis")
		return m, sched, out
	}

	t.Run("schedules with note and time", func(t *testing.T) {
		m, sched, _ := newManagerWithReminders(t)
		reply := m.ProcessTurn(ctx, "set a reminder at 15:00 to call mom")
		assert.Equal(t, "Okay, I've set a reminder for 15:00 to call mom.", reply)
		assert.Len(t, sched.Tasks(), 1)
	})

	t.Run("asks for missing pieces", func(t *testing.T) {
		m, sched, _ := newManagerWithReminders(t)
		reply := m.ProcessTurn(ctx, "set a reminder to water the plants")
		assert.Contains(t, reply, "both what to remind you about and when")
		assert.Empty(t, sched.Tasks())
	})

	t.Run("reports unparseable reminder time", func(t *testing.T) {
		m, _, _ := newManagerWithReminders(t)
		res := intent.Result{
			Intent: intent.SetReminder,
			Entities: map[string]string{
				intent.EntityNote: "stretch",
				intent.EntityTime: "99:99",
			},
		}
		reply, err := m.handleSetReminder(ctx, res)
		require.NoError(t, err)
		assert.Contains(t, reply, "couldn't understand the time")
	})
}

func TestHandleSensorEvent(t *testing.T) {
	newBound := func(t *testing.T) (*Manager, *fakeOutput) {
		m, _ := newTestManager(t, &fakeReasoner{}, false)
		out := &fakeOutput{}
		e := NewEngine(m, intent.NewRuleResolver(), out, nil, zaptest.NewLogger(t))
		m.BindEngine(e)
		return m, out
	}

	ev := func(name string, value any) robot.SensorEvent {
		return robot.SensorEvent{Name: name, Value: value, Timestamp: time.Now()}
	}

	t.Run("word recognized starts a turn", func(t *testing.T) {
		m, out := newBound(t)
		m.now = func() time.Time { return time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC) }

		m.HandleSensorEvent(ev(robot.EventWordRecognized, []any{"what time is it", 0.92}))
		require.Eventually(t, func() bool {
			return len(out.allSpoken()) == 1
		}, time.Second, 10*time.Millisecond)
		assert.Equal(t, "The time is 10:30 AM.", out.allSpoken()[0])
	})

	t.Run("other events never start a turn", func(t *testing.T) {
		m, out := newBound(t)
		m.HandleSensorEvent(ev(robot.EventTouchChanged, 1.0))
		m.HandleSensorEvent(ev(robot.EventTextDone, "1"))

		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, out.allSpoken())
	})

	t.Run("blank utterance never starts a turn", func(t *testing.T) {
		m, out := newBound(t)
		m.HandleSensorEvent(ev(robot.EventWordRecognized, []any{"   ", 0.9}))

		time.Sleep(50 * time.Millisecond)
		assert.Empty(t, out.allSpoken())
	})
}
