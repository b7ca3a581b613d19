package intent

import (
	"regexp"
	"strings"
)

// RuleResolver is a deterministic keyword/pattern resolver covering the
// internal intent set. Utterances that match nothing fall through to
// GeneralQuery when they look like a question, otherwise Unknown.
type RuleResolver struct{}

// NewRuleResolver returns the stock rule-based resolver.
func NewRuleResolver() *RuleResolver {
	return &RuleResolver{}
}

var (
	timePattern     = regexp.MustCompile(`(?i)\b(what time|current time|tell me the time|what's the time)\b`)
	datePattern     = regexp.MustCompile(`(?i)\b(what date|today's date|what day is it|tell me the date)\b`)
	personaPattern  = regexp.MustCompile(`(?i)\b(?:switch|change)\s+(?:your\s+)?(?:personality|persona)\s+(?:to\s+)?([a-zA-Z][\w-]*)`)
	tonePattern     = regexp.MustCompile(`(?i)\b(?:use|adopt|change|switch)(?:\s+\w+)?\s+tone\s+(?:to\s+)?([a-zA-Z][\w-]*)|\bspeak\s+(?:in\s+)?(?:a\s+)?([a-zA-Z][\w-]*)\s+tone\b`)
	reminderPattern = regexp.MustCompile(`(?i)\b(?:set|create|add)\s+a?\s*reminder\b`)
	clockPattern    = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	reminderNoteCue = regexp.MustCompile(`(?i)\b(?:to|that|about)\s+(.+)$`)
	takeNotePattern = regexp.MustCompile(`(?i)\b(?:take|make|save|write)\s+(?:a\s+|down\s+a\s+)?note\b`)
	listNotePattern = regexp.MustCompile(`(?i)\b(?:read|list|show)\s+(?:me\s+)?(?:my\s+|the\s+)?notes?\b|\bwhat\s+are\s+my\s+notes\b`)
	questionCue     = regexp.MustCompile(`(?i)^(who|what|when|where|why|how|is|are|do|does|can|could|would|will|tell me)\b`)
)

// Resolve implements Resolver.
func (r *RuleResolver) Resolve(text string) Result {
	trimmed := strings.TrimSpace(text)
	entities := map[string]string{}

	if trimmed == "" {
		return Result{Intent: Unknown, Entities: entities}
	}

	switch {
	case timePattern.MatchString(trimmed):
		return Result{Intent: TellTime, Entities: entities}

	case datePattern.MatchString(trimmed):
		return Result{Intent: TellDate, Entities: entities}

	case personaPattern.MatchString(trimmed):
		m := personaPattern.FindStringSubmatch(trimmed)
		entities[EntityPersonaName] = m[1]
		return Result{Intent: ChangePersonality, Entities: entities}

	case tonePattern.MatchString(trimmed):
		m := tonePattern.FindStringSubmatch(trimmed)
		tone := m[1]
		if tone == "" {
			tone = m[2]
		}
		entities[EntityToneName] = tone
		return Result{Intent: ChangeTone, Entities: entities}

	case reminderPattern.MatchString(trimmed):
		if m := clockPattern.FindString(trimmed); m != "" {
			entities[EntityTime] = normalizeClock(m)
		}
		if note := extractReminderNote(trimmed); note != "" {
			entities[EntityNote] = note
		}
		return Result{Intent: SetReminder, Entities: entities}

	case listNotePattern.MatchString(trimmed):
		return Result{Intent: ListNotes, Entities: entities}

	case takeNotePattern.MatchString(trimmed):
		if note := extractNoteBody(trimmed); note != "" {
			entities[EntityNote] = note
		}
		return Result{Intent: TakeNote, Entities: entities}
	}

	if questionCue.MatchString(trimmed) || strings.HasSuffix(trimmed, "?") {
		return Result{Intent: GeneralQuery, Entities: entities}
	}
	return Result{Intent: Unknown, Entities: entities}
}

// extractReminderNote pulls the reminder text out of phrasings like
// "set a reminder at 15:00 to call mom".
func extractReminderNote(text string) string {
	// Strip the clock token first so "to" inside "15:00 to call mom" binds
	// to the note, not the time.
	stripped := clockPattern.ReplaceAllString(text, "")
	stripped = reminderPattern.ReplaceAllString(stripped, "")
	stripped = strings.TrimSpace(stripped)

	if m := reminderNoteCue.FindStringSubmatch(stripped); len(m) == 2 {
		note := strings.TrimSpace(m[1])
		note = strings.Trim(note, ".!,")
		return note
	}
	return ""
}

// extractNoteBody pulls the note content out of "take a note that the
// wifi password changed".
func extractNoteBody(text string) string {
	stripped := takeNotePattern.ReplaceAllString(text, "")
	stripped = strings.TrimSpace(stripped)
	if m := reminderNoteCue.FindStringSubmatch(stripped); len(m) == 2 {
		return strings.Trim(strings.TrimSpace(m[1]), ".!,")
	}
	// bare "take a note: buy milk"
	stripped = strings.TrimLeft(stripped, ":,- ")
	return strings.Trim(stripped, ".!,")
}

// normalizeClock pads "9:30" to "09:30".
func normalizeClock(clock string) string {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) == 2 && len(parts[0]) == 1 {
		return "0" + clock
	}
	return clock
}
