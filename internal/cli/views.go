package cli

import (
	"fmt"
	"strings"

	"github.com/roach88/notes/internal/model"
)

// NoteView is the output shape of a single note.
type NoteView struct {
	ID         uint32   `json:"id"`
	Content    string   `json:"content"`
	Owner      string   `json:"owner"`
	SharedWith []string `json:"shared_with"`
}

func newNoteView(n model.Note) NoteView {
	shared := make([]string, len(n.SharedWith))
	for i, p := range n.SharedWith {
		shared[i] = string(p)
	}
	return NoteView{ID: n.ID, Content: n.Content, Owner: string(n.Owner), SharedWith: shared}
}

func (v NoteView) String() string {
	line := fmt.Sprintf("[%d] %s (owner: %s", v.ID, v.Content, v.Owner)
	if len(v.SharedWith) > 0 {
		line += ", shared with: " + strings.Join(v.SharedWith, ", ")
	}
	return line + ")"
}

// NoteListView is the output shape of list commands.
type NoteListView struct {
	Notes []NoteView `json:"notes"`
}

func newNoteListView(list []model.Note) NoteListView {
	views := make([]NoteView, len(list))
	for i, n := range list {
		views[i] = newNoteView(n)
	}
	return NoteListView{Notes: views}
}

func (v NoteListView) String() string {
	if len(v.Notes) == 0 {
		return "No notes."
	}
	lines := make([]string, len(v.Notes))
	for i, n := range v.Notes {
		lines[i] = n.String()
	}
	return strings.Join(lines, "\n")
}

// MessageView is the output shape of mutations.
type MessageView struct {
	Message string  `json:"message"`
	ID      *uint32 `json:"id,omitempty"`
}

func (v MessageView) String() string {
	return v.Message
}

// PrincipalView is the output shape of whoami.
type PrincipalView struct {
	Principal string `json:"principal"`
}

func (v PrincipalView) String() string {
	return v.Principal
}
