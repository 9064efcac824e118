package notes

import (
	"context"
	"fmt"

	"github.com/roach88/notes/internal/model"
)

// AddNote creates a note owned by caller with an empty shared_with list and
// returns its id.
//
// AddNote is not idempotent: every call creates a new entry. With the default
// SizeAllocator the new note may replace a live note (see SizeAllocator).
func (s *Service) AddNote(ctx context.Context, caller model.Principal, content string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.begin(ctx, "add_note", caller)
	if err != nil {
		return 0, err
	}

	id, err := s.allocate(ctx, s.m)
	if err != nil {
		log.Error("id allocation failed", "error", err)
		return 0, fmt.Errorf("add note: %w", err)
	}

	n := model.Note{ID: id, Content: content, Owner: caller, SharedWith: []model.Principal{}}
	prev, existed, err := s.save(ctx, n)
	if err != nil {
		log.Error("write failed", "id", id, "error", err)
		return 0, fmt.Errorf("add note %d: %w", id, err)
	}

	if existed {
		attrs := []any{"id", id}
		if old, derr := model.DecodeNote(prev); derr == nil {
			attrs = append(attrs, "previous_owner", string(old.Owner))
		}
		log.Warn("allocated id replaced a live note", attrs...)
	}

	log.Info("note added", "id", id)
	return id, nil
}

// UpdateNote replaces the content of the note at id. Only the owner may
// update; shared_with is left untouched.
func (s *Service) UpdateNote(ctx context.Context, caller model.Principal, id uint32, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.begin(ctx, "update_note", caller)
	if err != nil {
		return "", err
	}

	n, found, err := s.load(ctx, id)
	if err != nil {
		log.Error("load failed", "id", id, "error", err)
		return "", fmt.Errorf("update note %d: %w", id, err)
	}
	if !found {
		return "", newError(ErrCodeNotFound, id, caller, "Note not found")
	}
	if !n.IsOwner(caller) {
		log.Info("update denied", "id", id)
		return "", newError(ErrCodePermissionDenied, id, caller, "Permission denied: Only the owner can update the note")
	}

	n.Content = content
	if _, _, err := s.save(ctx, n); err != nil {
		log.Error("write failed", "id", id, "error", err)
		return "", fmt.Errorf("update note %d: %w", id, err)
	}

	log.Info("note updated", "id", id)
	return MsgUpdated, nil
}

// DeleteNote permanently removes the note at id. Only the owner may delete.
// Surviving ids are never renumbered.
func (s *Service) DeleteNote(ctx context.Context, caller model.Principal, id uint32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.begin(ctx, "delete_note", caller)
	if err != nil {
		return "", err
	}

	n, found, err := s.load(ctx, id)
	if err != nil {
		log.Error("load failed", "id", id, "error", err)
		return "", fmt.Errorf("delete note %d: %w", id, err)
	}
	if !found {
		return "", newError(ErrCodeNotFound, id, caller, "No note found.")
	}
	if !n.IsOwner(caller) {
		log.Info("delete denied", "id", id)
		return "", newError(ErrCodePermissionDenied, id, caller, "Permission denied: Only the owner can delete the note")
	}

	if _, _, err := s.m.Remove(ctx, id); err != nil {
		log.Error("remove failed", "id", id, "error", err)
		return "", fmt.Errorf("delete note %d: %w", id, err)
	}

	log.Info("note deleted", "id", id)
	return MsgDeleted, nil
}

// ShareNote grants target read access to the note at id. Only the owner may
// share. Sharing is additive; there is no unshare.
//
// Sharing with a principal that can already read the note, including the
// owner, fails with AlreadyShared.
func (s *Service) ShareNote(ctx context.Context, caller model.Principal, id uint32, target model.Principal) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.begin(ctx, "share_note", caller)
	if err != nil {
		return "", err
	}
	if target == "" {
		return "", fmt.Errorf("share note %d: target: %w", id, ErrInvalidPrincipal)
	}

	n, found, err := s.load(ctx, id)
	if err != nil {
		log.Error("load failed", "id", id, "error", err)
		return "", fmt.Errorf("share note %d: %w", id, err)
	}
	if !found {
		return "", newError(ErrCodeNotFound, id, caller, "Note not found.")
	}
	if !n.IsOwner(caller) {
		log.Info("share denied", "id", id)
		return "", newError(ErrCodePermissionDenied, id, caller, "Permission denied: Only the owner can share the note.")
	}
	if n.CanRead(target) {
		return "", newError(ErrCodeAlreadyShared, id, caller, "User already has access to this note.")
	}

	n.SharedWith = append(n.SharedWith, target)
	if _, _, err := s.save(ctx, n); err != nil {
		log.Error("write failed", "id", id, "error", err)
		return "", fmt.Errorf("share note %d: %w", id, err)
	}

	log.Info("note shared", "id", id, "with", string(target))
	return MsgShared, nil
}
