package dialogue

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"genesis/internal/intent"
)

func (m *Manager) handleTellTime(context.Context, intent.Result) (string, error) {
	return fmt.Sprintf("The time is %s.", m.now().Format("3:04 PM")), nil
}

func (m *Manager) handleTellDate(context.Context, intent.Result) (string, error) {
	return fmt.Sprintf("Today is %s.", m.now().Format("Monday, January 2, 2006")), nil
}

func (m *Manager) handleChangePersona(_ context.Context, res intent.Result) (string, error) {
	name := res.Entities[intent.EntityPersonaName]
	if name == "" {
		return "Which personality would you like me to switch to?", nil
	}

	p, ok := m.personas.Get(name)
	if !ok {
		available := strings.Join(m.personas.Names(), ", ")
		return fmt.Sprintf("I don't have a personality called %s. Available personalities are: %s.",
			name, available), nil
	}

	m.state.Store(&conversationState{persona: p, tone: p.Tone})
	m.log.Info("persona changed", zap.String("persona", p.Name), zap.String("tone", p.Tone))
	return fmt.Sprintf("Okay, I've switched to my %s personality.", p.Name), nil
}

func (m *Manager) handleChangeTone(_ context.Context, res intent.Result) (string, error) {
	tone := strings.TrimSpace(res.Entities[intent.EntityToneName])
	if tone == "" {
		return "What tone would you like me to use?", nil
	}
	tone = strings.ToLower(tone)

	cur := m.state.Load()
	m.state.Store(&conversationState{persona: cur.persona, tone: tone})
	m.log.Info("tone changed", zap.String("tone", tone))
	return fmt.Sprintf("Alright, I'll use a %s tone from now on.", tone), nil
}

func (m *Manager) handleSetReminder(_ context.Context, res intent.Result) (string, error) {
	note := res.Entities[intent.EntityNote]
	timeStr := res.Entities[intent.EntityTime]
	if note == "" || timeStr == "" {
		return "Please tell me both what to remind you about and when, for example: set a reminder at 15:00 to call mom.", nil
	}
	if m.reminders == nil {
		return "I can't set reminders right now.", nil
	}

	confirmation, err := m.reminders.Schedule(note, timeStr)
	if err != nil {
		return fmt.Sprintf("I couldn't understand the time %s. Please use an hour and minutes, like 15:00.",
			timeStr), nil
	}
	return confirmation, nil
}
