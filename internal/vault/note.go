package vault

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/glabrego/podnotes/internal/podcast"
	"github.com/glabrego/podnotes/internal/template"
)

// Note is the outcome of CreateNote.
type Note struct {
	Path        string
	Created     bool
	Diagnostics []template.Diagnostic
}

// CreateNote renders the note path and body for ep and writes the note,
// creating missing folders. An existing note is left untouched and reported
// with Created set to false.
func CreateNote(v Vault, pathTemplate, noteTemplate string, ep podcast.Episode, opts ...template.Option) (Note, error) {
	notePath, diags := template.FilePathTemplate(pathTemplate, ep, opts...)
	notePath = strings.TrimSpace(notePath)
	if notePath == "" {
		return Note{Diagnostics: diags}, errors.New("note path template rendered an empty path")
	}
	if !strings.HasSuffix(strings.ToLower(notePath), ".md") {
		notePath += ".md"
	}
	note := Note{Path: notePath, Diagnostics: diags}

	if v.Exists(notePath) {
		return note, nil
	}
	if dir := path.Dir(notePath); dir != "." && dir != "/" {
		if err := v.CreateFolder(dir); err != nil {
			return note, err
		}
	}

	body, bodyDiags := template.NoteTemplate(noteTemplate, ep, opts...)
	note.Diagnostics = append(note.Diagnostics, bodyDiags...)
	if err := v.Create(notePath, body); err != nil {
		if errors.Is(err, ErrExists) {
			return note, nil
		}
		return note, fmt.Errorf("create note: %w", err)
	}
	note.Created = true
	return note, nil
}
