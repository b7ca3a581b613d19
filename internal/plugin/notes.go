package plugin

import (
	"context"
	"fmt"
	"strings"

	"genesis/internal/intent"
	"genesis/internal/store"
)

// maxSpokenNotes caps how many notes are read back in one reply.
const maxSpokenNotes = 5

// NotesPlugin captures and reads back short spoken notes.
type NotesPlugin struct {
	store *store.Store
}

// NewNotesPlugin returns the plugin; the store arrives via Init.
func NewNotesPlugin() *NotesPlugin {
	return &NotesPlugin{}
}

func (p *NotesPlugin) Name() string        { return "notes" }
func (p *NotesPlugin) Description() string { return "saves and reads back spoken notes" }

func (p *NotesPlugin) SupportsIntent(name string) bool {
	return name == intent.TakeNote || name == intent.ListNotes
}

// RequiredResources implements ResourceAware.
func (p *NotesPlugin) RequiredResources() []string {
	return []string{ResourceStore}
}

func (p *NotesPlugin) Init(res Resources) error {
	if res.Store == nil {
		return fmt.Errorf("notes plugin requires the store")
	}
	p.store = res.Store
	return nil
}

func (p *NotesPlugin) Execute(_ context.Context, res intent.Result, _ string) (string, error) {
	switch res.Intent {
	case intent.TakeNote:
		return p.takeNote(res.Entities[intent.EntityNote])
	case intent.ListNotes:
		return p.listNotes()
	}
	return "", nil
}

func (p *NotesPlugin) takeNote(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "What would you like the note to say?", nil
	}
	if _, err := p.store.AddNote(body); err != nil {
		return "", err
	}
	return fmt.Sprintf("Noted: %s.", body), nil
}

func (p *NotesPlugin) listNotes() (string, error) {
	notes, err := p.store.Notes(maxSpokenNotes)
	if err != nil {
		return "", err
	}
	if len(notes) == 0 {
		return "You don't have any notes yet.", nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d note", len(notes))
	if len(notes) > 1 {
		b.WriteString("s")
	}
	b.WriteString(". ")
	for i, n := range notes {
		fmt.Fprintf(&b, "Note %d: %s. ", i+1, n.Content)
	}
	return strings.TrimSpace(b.String()), nil
}
