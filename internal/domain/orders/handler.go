package orders

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/emr/chart/internal/platform/auth"
	"github.com/emr/chart/internal/platform/fhir"
	"github.com/emr/chart/internal/platform/notification"
	"github.com/emr/chart/internal/platform/workspace"
)

// CancellationWorkspace is the workspace name the cancellation form opens
// under. One cancellation surface is open at a time; launching a second
// replaces the first.
const CancellationWorkspace = "order-cancellation"

type Handler struct {
	svc      *Service
	launcher *workspace.Launcher
	notifier notification.Notifier
	log      zerolog.Logger
}

func NewHandler(svc *Service, launcher *workspace.Launcher, notifier notification.Notifier, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, launcher: launcher, notifier: notifier, log: logger}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	read.GET("/patients/:patient_id/orders", h.ListOrders)

	write := api.Group("", auth.RequireRole("admin", "physician"))
	write.POST("/orders/:id/cancel", h.CancelOrder)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse"))
	fhirRead.GET("/ServiceRequest/:id", h.GetOrderFHIR)
}

func (h *Handler) ListOrders(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	records, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []*Order{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"orders": records,
		"total":  len(records),
	})
}

type cancelRequest struct {
	// Date is the cancellation date, "2006-01-02". Omitted means the field
	// was left blank.
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type cancelFailure struct {
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// CancelOrder drives one cancellation interaction end to end: open the
// workspace, fill the form, submit. Validation failures keep the workspace
// open with field errors; sink rejections keep it open with the rejection
// message; only an accepted cancellation closes it.
func (h *Handler) CancelOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	order, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	var req cancelRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	handle := h.launcher.Launch(CancellationWorkspace, map[string]interface{}{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	})
	form := NewCancelForm(order, CancelFormDeps{
		Sink:     h.svc,
		Notifier: h.notifier,
		Handle:   handle,
		Mutate: func(ctx context.Context) {
			h.svc.Mutate(ctx, order.PatientID)
		},
		Log: h.log,
	})

	if req.Date != "" {
		date, err := time.ParseInLocation("2006-01-02", req.Date, time.Local)
		if err != nil {
			return c.JSON(http.StatusUnprocessableEntity, cancelFailure{
				Kind:    "validation",
				Message: "invalid date",
				Fields:  map[string]string{"date": "date must be formatted 2006-01-02"},
			})
		}
		form.SetDate(date)
	}
	form.SetReason(req.Reason)

	err = form.Submit(c.Request().Context())
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":       "cancelled",
			"order_number": order.OrderNumber,
		})
	case errors.Is(err, ErrSubmitInFlight):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		var verr *ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusUnprocessableEntity, cancelFailure{
				Kind:    "validation",
				Message: verr.Error(),
				Fields:  verr.Fields,
			})
		}
		var serr *SubmissionError
		if errors.As(err, &serr) {
			return c.JSON(http.StatusBadGateway, cancelFailure{
				Kind:    "network",
				Message: serr.Err.Error(),
			})
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) GetOrderFHIR(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("ServiceRequest", c.Param("id")))
	}
	order, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("ServiceRequest", c.Param("id")))
	}
	return c.JSON(http.StatusOK, order.ToFHIR())
}
