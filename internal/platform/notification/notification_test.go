package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestStoreNotifyAssignsIdentity(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.Notify(context.Background(), Notification{Title: "Order cancelled", Kind: KindSuccess})

	pending := s.Pending()
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}
	n := pending[0]
	if n.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("expected assigned id")
	}
	if n.CreatedAt.IsZero() {
		t.Error("expected assigned timestamp")
	}
}

func TestStoreDrainEmptiesQueue(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.Notify(context.Background(), Notification{Title: "a", Kind: KindSuccess})
	s.Notify(context.Background(), Notification{Title: "b", Kind: KindError})

	drained := s.Drain()
	if len(drained) != 2 {
		t.Fatalf("expected 2 drained, got %d", len(drained))
	}
	if len(s.Pending()) != 0 {
		t.Error("expected empty queue after drain")
	}
	if again := s.Drain(); len(again) != 0 {
		t.Errorf("expected empty second drain, got %d", len(again))
	}
}

func TestStoreDropsOldestBeyondCapacity(t *testing.T) {
	s := NewStore(zerolog.Nop())
	for i := 0; i < defaultCapacity+5; i++ {
		s.Notify(context.Background(), Notification{Title: fmt.Sprintf("n%d", i), Kind: KindSuccess})
	}
	pending := s.Pending()
	if len(pending) != defaultCapacity {
		t.Fatalf("expected %d pending, got %d", defaultCapacity, len(pending))
	}
	if pending[0].Title != "n5" {
		t.Errorf("expected oldest surviving entry n5, got %s", pending[0].Title)
	}
}

func TestDrainEndpoint(t *testing.T) {
	s := NewStore(zerolog.Nop())
	s.Notify(context.Background(), Notification{Title: "Order ORD-7 cancelled", Kind: KindSuccess})

	e := echo.New()
	s.RegisterRoutes(e.Group("/api"))

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got []Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 1 || got[0].Kind != KindSuccess {
		t.Fatalf("unexpected payload: %+v", got)
	}
}
