package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedRecord is returned by DecodeNote for bytes that EncodeNote
// could not have produced. It signals a storage integrity violation and must
// never be masked by substituting a default Note.
var ErrMalformedRecord = errors.New("malformed note record")

// ErrInvalidNote is returned by EncodeNote for a Note that breaks the schema
// invariants.
var ErrInvalidNote = errors.New("invalid note")

// Validate checks the schema invariants every persisted Note satisfies.
func (n Note) Validate() error {
	if n.Owner == "" {
		return fmt.Errorf("%w: owner is empty", ErrInvalidNote)
	}
	seen := make(map[Principal]struct{}, len(n.SharedWith))
	for i, p := range n.SharedWith {
		if p == "" {
			return fmt.Errorf("%w: shared_with[%d] is empty", ErrInvalidNote, i)
		}
		if p == n.Owner {
			return fmt.Errorf("%w: shared_with[%d] is the owner", ErrInvalidNote, i)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: shared_with[%d] duplicates %q", ErrInvalidNote, i, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

// EncodeNote serializes a Note to its canonical record bytes.
func EncodeNote(n Note) ([]byte, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	shared := make([]any, len(n.SharedWith))
	for i, p := range n.SharedWith {
		shared[i] = string(p)
	}

	data, err := MarshalCanonical(map[string]any{
		"id":          n.ID,
		"content":     n.Content,
		"owner":       string(n.Owner),
		"shared_with": shared,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNote, err)
	}
	return data, nil
}

// wireNote uses pointers so that absent fields are distinguishable from
// zero values.
type wireNote struct {
	ID         *uint32   `json:"id"`
	Content    *string   `json:"content"`
	Owner      *string   `json:"owner"`
	SharedWith *[]string `json:"shared_with"`
}

// DecodeNote parses record bytes produced by EncodeNote.
//
// Decoding is strict: unknown fields, missing fields, trailing data, schema
// invariant violations and any non-canonical encoding all fail with
// ErrMalformedRecord.
func DecodeNote(data []byte) (Note, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var w wireNote
	if err := dec.Decode(&w); err != nil {
		return Note{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Note{}, fmt.Errorf("%w: trailing data after record", ErrMalformedRecord)
	}

	switch {
	case w.ID == nil:
		return Note{}, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	case w.Content == nil:
		return Note{}, fmt.Errorf("%w: missing content", ErrMalformedRecord)
	case w.Owner == nil:
		return Note{}, fmt.Errorf("%w: missing owner", ErrMalformedRecord)
	case w.SharedWith == nil:
		return Note{}, fmt.Errorf("%w: missing shared_with", ErrMalformedRecord)
	}

	n := Note{
		ID:         *w.ID,
		Content:    *w.Content,
		Owner:      Principal(*w.Owner),
		SharedWith: make([]Principal, len(*w.SharedWith)),
	}
	for i, p := range *w.SharedWith {
		n.SharedWith[i] = Principal(p)
	}

	// Re-encoding must reproduce the input byte for byte.
	canonical, err := EncodeNote(n)
	if err != nil {
		return Note{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if !bytes.Equal(canonical, data) {
		return Note{}, fmt.Errorf("%w: non-canonical encoding", ErrMalformedRecord)
	}

	return n, nil
}
