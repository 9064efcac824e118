package notes

import (
	"context"
	"fmt"

	"github.com/roach88/notes/internal/model"
)

// ListVisible returns every note the caller owns or has been shared, in
// ascending id order.
func (s *Service) ListVisible(ctx context.Context, caller model.Principal) ([]model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.begin(ctx, "list_visible", caller)
	if err != nil {
		return nil, err
	}

	notes, err := s.scan(ctx, func(n model.Note) bool { return n.CanRead(caller) })
	if err != nil {
		log.Error("scan failed", "error", err)
		return nil, fmt.Errorf("list visible: %w", err)
	}

	log.Debug("listed visible notes", "count", len(notes))
	return notes, nil
}

// GetByID returns the note at id if the caller may read it.
//
// found is false both when no note has that id and when the caller is
// neither its owner nor in shared_with. The two cases are indistinguishable
// to the caller.
func (s *Service) GetByID(ctx context.Context, caller model.Principal, id uint32) (note model.Note, found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.begin(ctx, "get_by_id", caller)
	if err != nil {
		return model.Note{}, false, err
	}

	n, ok, err := s.load(ctx, id)
	if err != nil {
		log.Error("load failed", "id", id, "error", err)
		return model.Note{}, false, fmt.Errorf("get note %d: %w", id, err)
	}
	if !ok || !n.CanRead(caller) {
		log.Debug("note not visible", "id", id, "exists", ok)
		return model.Note{}, false, nil
	}

	return n, true, nil
}

// ListByOwner returns every note owned by owner, in ascending id order.
//
// No caller check is applied: any caller may list any owner's notes. caller
// is only validated and logged.
func (s *Service) ListByOwner(ctx context.Context, caller, owner model.Principal) ([]model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log, err := s.begin(ctx, "list_by_owner", caller)
	if err != nil {
		return nil, err
	}

	notes, err := s.scan(ctx, func(n model.Note) bool { return n.Owner == owner })
	if err != nil {
		log.Error("scan failed", "error", err)
		return nil, fmt.Errorf("list by owner %q: %w", owner, err)
	}

	log.Debug("listed notes by owner", "owner", string(owner), "count", len(notes))
	return notes, nil
}
