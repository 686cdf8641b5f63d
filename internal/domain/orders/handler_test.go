package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/emr/chart/internal/platform/notification"
	"github.com/emr/chart/internal/platform/workspace"
)

type handlerFixture struct {
	h        *Handler
	repo     *mockRepo
	store    *notification.Store
	launcher *workspace.Launcher
}

func newHandlerFixture() *handlerFixture {
	repo := newMockRepo()
	store := notification.NewStore(zerolog.Nop())
	launcher := workspace.NewLauncher(zerolog.Nop())
	svc := NewService(repo, zerolog.Nop())
	return &handlerFixture{
		h:        NewHandler(svc, launcher, store, zerolog.Nop()),
		repo:     repo,
		store:    store,
		launcher: launcher,
	}
}

func cancelRequestRec(fx *handlerFixture, orderID, body string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+orderID+"/cancel", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(orderID)
	if err := fx.h.CancelOrder(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestListOrders(t *testing.T) {
	fx := newHandlerFixture()
	order := testOrder()
	fx.repo.add(order)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/patients/"+order.PatientID.String()+"/orders", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("patient_id")
	c.SetParamValues(order.PatientID.String())

	if err := fx.h.ListOrders(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Orders []Order `json:"orders"`
		Total  int     `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body.Total != 1 || len(body.Orders) != 1 {
		t.Fatalf("expected 1 order, got total=%d len=%d", body.Total, len(body.Orders))
	}
	if body.Orders[0].OrderNumber != order.OrderNumber {
		t.Errorf("order_number = %s", body.Orders[0].OrderNumber)
	}
}

func TestCancelOrderSuccess(t *testing.T) {
	fx := newHandlerFixture()
	order := testOrder()
	fx.repo.add(order)

	today := time.Now().Format("2006-01-02")
	rec := cancelRequestRec(fx, order.ID.String(),
		`{"date":"`+today+`","reason":"duplicate order"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if body["status"] != "cancelled" || body["order_number"] != order.OrderNumber {
		t.Errorf("unexpected body: %v", body)
	}

	if order.FulfillerStatus == nil || *order.FulfillerStatus != FulfillerDeclined {
		t.Error("expected declined fulfiller status persisted")
	}
	if fx.launcher.OpenCount() != 0 {
		t.Error("workspace must be closed after success")
	}
	notes := fx.store.Drain()
	if len(notes) != 1 || notes[0].Kind != notification.KindSuccess {
		t.Fatalf("expected one success notification, got %+v", notes)
	}
	if !strings.Contains(notes[0].Subtitle, order.OrderNumber) {
		t.Errorf("notification must name the order number, got %q", notes[0].Subtitle)
	}
}

func TestCancelOrderValidationFailure(t *testing.T) {
	fx := newHandlerFixture()
	order := testOrder()
	fx.repo.add(order)

	yesterday := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	rec := cancelRequestRec(fx, order.ID.String(),
		`{"date":"`+yesterday+`","reason":"duplicate"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var failure cancelFailure
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if failure.Kind != "validation" {
		t.Errorf("kind = %s, want validation", failure.Kind)
	}
	if _, ok := failure.Fields["date"]; !ok {
		t.Error("expected date field error")
	}
	if _, ok := failure.Fields["reason"]; ok {
		t.Error("reason was valid, must carry no error")
	}

	if order.FulfillerStatus != nil {
		t.Error("nothing may be persisted on validation failure")
	}
	if fx.launcher.OpenCount() != 1 {
		t.Error("workspace must stay open on validation failure")
	}
}

func TestCancelOrderMissingFields(t *testing.T) {
	fx := newHandlerFixture()
	order := testOrder()
	fx.repo.add(order)

	rec := cancelRequestRec(fx, order.ID.String(), `{}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var failure cancelFailure
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(failure.Fields) != 2 {
		t.Errorf("expected both fields flagged, got %v", failure.Fields)
	}
}

func TestCancelOrderSinkFailure(t *testing.T) {
	fx := newHandlerFixture()
	order := testOrder()
	fx.repo.add(order)

	// Break the repo after the order lookup path is primed: the handler
	// reads the order first, then the sink write fails.
	fx.repo.fail = errors.New("fulfiller unavailable")
	// GetByID ignores the failure flag in the mock, so the lookup works
	// and only UpdateFulfillerStatus rejects.
	today := time.Now().Format("2006-01-02")
	rec := cancelRequestRec(fx, order.ID.String(),
		`{"date":"`+today+`","reason":"duplicate order"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}

	var failure cancelFailure
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if failure.Kind != "network" {
		t.Errorf("kind = %s, want network", failure.Kind)
	}
	if !strings.Contains(failure.Message, "fulfiller unavailable") {
		t.Errorf("message must carry the rejection, got %q", failure.Message)
	}
	if fx.launcher.OpenCount() != 1 {
		t.Error("workspace must stay open on submission failure")
	}
	notes := fx.store.Drain()
	if len(notes) != 1 || notes[0].Kind != notification.KindError {
		t.Fatalf("expected one error notification, got %+v", notes)
	}
}

func TestCancelOrderUnknownOrder(t *testing.T) {
	fx := newHandlerFixture()
	rec := cancelRequestRec(fx, uuid.NewString(), `{"reason":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCancelOrderBadDateFormat(t *testing.T) {
	fx := newHandlerFixture()
	order := testOrder()
	fx.repo.add(order)

	rec := cancelRequestRec(fx, order.ID.String(), `{"date":"27/08/2026","reason":"x"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var failure cancelFailure
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if failure.Kind != "validation" || failure.Fields["date"] == "" {
		t.Errorf("expected date format error, got %+v", failure)
	}
}

func TestGetOrderFHIR(t *testing.T) {
	fx := newHandlerFixture()
	order := testOrder()
	fx.repo.add(order)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/fhir/ServiceRequest/"+order.ID.String(), nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(order.ID.String())

	if err := fx.h.GetOrderFHIR(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resource map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resource); err != nil {
		t.Fatalf("bad resource: %v", err)
	}
	if resource["resourceType"] != "ServiceRequest" {
		t.Errorf("resourceType = %v", resource["resourceType"])
	}
}
