// Package tallyservice coordinates storage, the ledger and the reporter.
package tallyservice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/starford/devtally/internal/apperr"
	"github.com/starford/devtally/internal/handle"
	"github.com/starford/devtally/internal/ledger"
	"github.com/starford/devtally/internal/models"
	"github.com/starford/devtally/internal/report"
	"github.com/starford/devtally/internal/storage"
)

// Event kinds passed to an EventCallback.
const (
	EventRecorded = "recorded"
	EventReset    = "reset"
)

// EventCallback is called after a mutation has been saved.
// handle is empty for EventReset.
type EventCallback func(kind, handle string)

// Result describes an applied increment.
type Result struct {
	Handle string            `json:"handle"`
	Kind   models.Kind       `json:"kind"`
	N      int               `json:"n"`
	Record models.UserRecord `json:"record"`
}

// Service runs every command as load → mutate → save against the store.
// Mutations are serialized within the process; nothing is cached between
// calls.
type Service struct {
	store storage.Provider
	now   func() time.Time
	onEvt EventCallback

	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithEvents registers a callback for saved mutations.
func WithEvents(cb EventCallback) Option {
	return func(s *Service) { s.onEvt = cb }
}

// NewService creates a new tally service.
func NewService(store storage.Provider, opts ...Option) *Service {
	s := &Service{store: store, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record normalizes raw and applies n to its kind counter, with an optional note.
func (s *Service) Record(ctx context.Context, raw string, kind models.Kind, n int, note string) (*Result, error) {
	key := handle.Normalize(raw)
	if key == "" {
		return nil, fmt.Errorf("%w: handle is empty", apperr.ErrValidation)
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown counter %q", apperr.ErrValidation, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally: load: %w", err)
	}
	rec, err := ledger.Record(doc, key, kind, n, note, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("tally: save: %w", err)
	}
	s.emit(EventRecorded, key)

	return &Result{Handle: key, Kind: kind, N: n, Record: *rec}, nil
}

// Document returns the current persisted document.
func (s *Service) Document(ctx context.Context) (models.Document, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally: load: %w", err)
	}
	return doc, nil
}

// Report renders the ranked summary of the current document.
func (s *Service) Report(ctx context.Context) (string, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return "", err
	}
	return report.Render(doc), nil
}

// Rows returns the ranked rows of the current document.
func (s *Service) Rows(ctx context.Context) ([]report.Row, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	return report.Rows(doc), nil
}

// User returns the normalized key and record for raw, or apperr.ErrNotFound.
func (s *Service) User(ctx context.Context, raw string) (string, *models.UserRecord, error) {
	key := handle.Normalize(raw)
	doc, err := s.Document(ctx)
	if err != nil {
		return key, nil, err
	}
	rec, ok := doc[key]
	if !ok {
		return key, nil, apperr.ErrNotFound
	}
	return key, rec, nil
}

// Notes renders the notes recorded for raw.
func (s *Service) Notes(ctx context.Context, raw string) (string, error) {
	key, rec, err := s.User(ctx, raw)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}
	return report.RenderNotes(key, rec), nil
}

// Reset replaces the document with an empty one.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Save(ctx, models.Document{}); err != nil {
		return fmt.Errorf("tally: reset: %w", err)
	}
	s.emit(EventReset, "")
	return nil
}

func (s *Service) emit(kind, key string) {
	if s.onEvt != nil {
		s.onEvt(kind, key)
	}
}
