package notes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/notes/internal/model"
)

// OrderedMap is the durable key-ordered map the Service persists notes in.
// Implemented by *store.Store.
//
// Each call is its own atomic unit. Iterate visits entries in ascending key
// order and its callback must not call back into the map.
type OrderedMap interface {
	Get(ctx context.Context, key uint32) ([]byte, bool, error)
	Insert(ctx context.Context, key uint32, value []byte) ([]byte, bool, error)
	Remove(ctx context.Context, key uint32) ([]byte, bool, error)
	Iterate(ctx context.Context, fn func(key uint32, value []byte) error) error
	Len(ctx context.Context) (int, error)
}

// KeySequence hands out strictly increasing keys that survive restarts.
// Implemented by *store.Store.
type KeySequence interface {
	NextKey(ctx context.Context) (uint32, error)
}

// Success messages returned by the mutating operations.
const (
	MsgUpdated = "Note updated successfully"
	MsgDeleted = "Note has been deleted."
	MsgShared  = "Note shared successfully."
)

// Service is the note store.
//
// Thread-safety: every exported method holds mu for its whole duration, so
// operations never interleave and readers never see a partial write.
type Service struct {
	mu       sync.Mutex
	m        OrderedMap
	allocate Allocator
	clock    Clock
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// WithAllocator sets the id allocation policy. Default: SizeAllocator.
func WithAllocator(a Allocator) Option {
	return func(s *Service) {
		s.allocate = a
	}
}

// WithClock sets the clock used to stamp operations.
// Tests pass a deterministic clock to get stable log output.
func WithClock(c Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// New creates a Service that exclusively owns m.
func New(m OrderedMap, opts ...Option) *Service {
	s := &Service{
		m:        m,
		allocate: SizeAllocator,
		clock:    NewClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Whoami returns the caller's own principal.
func (s *Service) Whoami(caller model.Principal) (model.Principal, error) {
	if caller == "" {
		return "", ErrInvalidPrincipal
	}
	return caller, nil
}

// begin validates the caller and returns a logger stamped with the operation
// sequence number and trace id.
func (s *Service) begin(ctx context.Context, op string, caller model.Principal) (*slog.Logger, error) {
	if caller == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPrincipal)
	}
	log := s.logger.With("op", op, "seq", s.clock.Next(), "caller", string(caller))
	if trace := TraceFrom(ctx); trace != "" {
		log = log.With("trace_id", trace)
	}
	return log, nil
}

// load fetches and decodes the note at id.
// A record that fails to decode, or that claims a different id than its key,
// is an integrity failure and aborts the operation.
func (s *Service) load(ctx context.Context, id uint32) (model.Note, bool, error) {
	data, found, err := s.m.Get(ctx, id)
	if err != nil {
		return model.Note{}, false, err
	}
	if !found {
		return model.Note{}, false, nil
	}
	n, err := decodeAt(id, data)
	if err != nil {
		return model.Note{}, false, err
	}
	return n, true, nil
}

// save encodes n and writes it under n.ID.
// Returns the previous record's bytes if the key was occupied.
func (s *Service) save(ctx context.Context, n model.Note) ([]byte, bool, error) {
	data, err := model.EncodeNote(n)
	if err != nil {
		return nil, false, err
	}
	return s.m.Insert(ctx, n.ID, data)
}

// scan decodes every note in ascending id order and returns those matching
// keep. The result is never nil.
func (s *Service) scan(ctx context.Context, keep func(model.Note) bool) ([]model.Note, error) {
	out := []model.Note{}
	err := s.m.Iterate(ctx, func(key uint32, value []byte) error {
		n, err := decodeAt(key, value)
		if err != nil {
			return err
		}
		if keep(n) {
			out = append(out, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeAt(key uint32, data []byte) (model.Note, error) {
	n, err := model.DecodeNote(data)
	if err != nil {
		return model.Note{}, fmt.Errorf("note %d: %w", key, err)
	}
	if n.ID != key {
		return model.Note{}, fmt.Errorf("note %d: %w: record id %d", key, model.ErrMalformedRecord, n.ID)
	}
	return n, nil
}
