// Package notification is the toast sink for the chart shell: domain code
// fires success/error notices, the shell drains them for display.
package notification

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Kind classifies a notification for rendering.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a single fire-and-forget notice.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Kind      Kind      `json:"kind"`
	Subtitle  string    `json:"subtitle,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier is implemented by any sink that can accept a notification.
// Notify never returns an error; delivery problems are the sink's concern.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) {
	f(ctx, n)
}

const defaultCapacity = 100

// Store is an in-memory notification queue. Oldest entries are dropped once
// capacity is reached.
type Store struct {
	mu      sync.Mutex
	pending []Notification
	cap     int
	log     zerolog.Logger
}

func NewStore(logger zerolog.Logger) *Store {
	return &Store{cap: defaultCapacity, log: logger}
}

// Notify implements Notifier.
func (s *Store) Notify(_ context.Context, n Notification) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.pending = append(s.pending, n)
	if len(s.pending) > s.cap {
		s.pending = s.pending[len(s.pending)-s.cap:]
	}
	s.mu.Unlock()

	s.log.Info().
		Str("kind", string(n.Kind)).
		Str("title", n.Title).
		Str("subtitle", n.Subtitle).
		Msg("notification")
}

// Pending returns a copy of the queued notifications without consuming them.
func (s *Store) Pending() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.pending))
	copy(out, s.pending)
	return out
}

// Drain returns all queued notifications and empties the queue.
func (s *Store) Drain() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	if out == nil {
		out = []Notification{}
	}
	return out
}

// RegisterRoutes mounts the drain endpoint the chart shell polls.
func (s *Store) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", func(c echo.Context) error {
		return c.JSON(http.StatusOK, s.Drain())
	})
}
