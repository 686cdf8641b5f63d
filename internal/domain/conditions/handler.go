package conditions

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/emr/chart/internal/platform/auth"
	"github.com/emr/chart/internal/platform/fhir"
	"github.com/emr/chart/internal/platform/i18n"
	"github.com/emr/chart/pkg/pagination"
)

type Handler struct {
	svc             *Service
	translator      *i18n.Translator
	defaultPageSize int
}

func NewHandler(svc *Service, translator *i18n.Translator, defaultPageSize int) *Handler {
	if defaultPageSize <= 0 {
		defaultPageSize = pagination.DefaultPageSize
	}
	return &Handler{svc: svc, translator: translator, defaultPageSize: defaultPageSize}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	read.GET("/patients/:patient_id/conditions", h.ListConditions)

	write := api.Group("", auth.RequireRole("admin", "physician"))
	write.POST("/patients/:patient_id/conditions", h.CreateCondition)
	write.PUT("/conditions/:id", h.UpdateCondition)
	write.DELETE("/conditions/:id", h.DeleteCondition)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse"))
	fhirRead.GET("/Condition", h.SearchConditionsFHIR)
	fhirRead.GET("/Condition/:id", h.GetConditionFHIR)
}

// ListConditions renders the conditions overview: status filter, column
// sort, and page-based pagination over the patient's full condition set.
// Fetch failures are part of the view (outcome "error"), not an HTTP error,
// so the shell can branch on the outcome like any other render state.
func (h *Handler) ListConditions(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}

	st := NewListState(h.defaultPageSize)
	st.SetFilter(ParseFilter(c.QueryParam("status")))
	st.SetSort(ParseSortKey(c.QueryParam("sort")), ParseSortDir(c.QueryParam("dir")))
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil {
		st.SetPage(page)
	}
	if size, err := strconv.Atoi(c.QueryParam("page_size")); err == nil && size > 0 {
		st.SetPageSize(size)
	}

	res := h.svc.Fetch(c.Request().Context(), patientID)
	view := Present(res, st, h.rowBuilder())
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) rowBuilder() RowBuilder {
	return RowBuilder{
		Layout:      h.translator.Translate("conditions.onset.layout", "January 2, 2006", nil),
		Placeholder: h.translator.Translate("conditions.onset.placeholder", "--", nil),
		Locale:      h.translator.Locale(),
	}
}

func (h *Handler) CreateCondition(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	var cond Condition
	if err := c.Bind(&cond); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cond.PatientID = patientID
	if err := h.svc.Create(c.Request().Context(), &cond); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cond)
}

func (h *Handler) UpdateCondition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid condition id")
	}
	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "condition not found")
	}

	var in Condition
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.ID = existing.ID
	in.FHIRID = existing.FHIRID
	in.PatientID = existing.PatientID
	if err := h.svc.Update(c.Request().Context(), &in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, in)
}

func (h *Handler) DeleteCondition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid condition id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "condition not found")
	}
	return c.NoContent(http.StatusNoContent)
}

// -- FHIR read surface --

func (h *Handler) GetConditionFHIR(c echo.Context) error {
	cond, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Condition", c.Param("id")))
	}
	return c.JSON(http.StatusOK, cond.ToFHIR())
}

func (h *Handler) SearchConditionsFHIR(c echo.Context) error {
	patient := c.QueryParam("patient")
	if patient == "" {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("patient parameter is required"))
	}
	patientID, err := uuid.Parse(patient)
	if err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid patient parameter"))
	}

	if c.QueryParam("_summary") == "count" {
		n, err := h.svc.Count(c.Request().Context(), patientID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
		return c.JSON(http.StatusOK, fhir.NewSearchBundle(nil, n, baseURL(c)))
	}

	res := h.svc.Fetch(c.Request().Context(), patientID)
	if res.Err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(res.Err.Error()))
	}

	records := res.Records
	if status := c.QueryParam("clinical-status"); status != "" {
		records = Apply(records, ParseFilter(status))
	}

	pg := pagination.FromContext(c)
	total := len(records)
	start, end := pg.Offset, pg.Offset+pg.Limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	resources := make([]interface{}, 0, end-start)
	for _, cond := range records[start:end] {
		resources = append(resources, cond.ToFHIR())
	}
	bundle := fhir.NewSearchBundle(resources, total, baseURL(c))
	for _, link := range pg.FHIRLinks(c.Request().URL.Path, total) {
		bundle.Link = append(bundle.Link, fhir.BundleLink{Relation: link.Relation, URL: link.URL})
	}
	return c.JSON(http.StatusOK, bundle)
}

func baseURL(c echo.Context) string {
	scheme := c.Scheme()
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + c.Request().Host + "/fhir"
}
