// Package intent maps raw utterance text to an intent plus extracted
// entities. The orchestration layer consumes it as a pure function behind the
// Resolver interface; RuleResolver is the shipped implementation.
package intent

// Internal intent names. Plugins may declare support for names outside this
// set; anything unresolvable is Unknown.
const (
	TellTime          = "tell_time"
	TellDate          = "tell_date"
	SetReminder       = "set_reminder"
	ChangePersonality = "change_personality"
	ChangeTone        = "change_tone"
	TakeNote          = "take_note"
	ListNotes         = "list_notes"
	GeneralQuery      = "general_query"
	Unknown           = "unknown"
)

// Result is the outcome of resolving one utterance.
type Result struct {
	Intent   string
	Entities map[string]string
}

// Entity keys populated by the resolver.
const (
	EntityPersonaName = "persona_name"
	EntityToneName    = "tone_name"
	EntityNote        = "note"
	EntityTime        = "time_str"
)

// Resolver turns raw utterance text into an intent and entities. It must be
// safe for concurrent use; turns run concurrently.
type Resolver interface {
	Resolve(text string) Result
}
