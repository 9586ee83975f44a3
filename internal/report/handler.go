// AngelaMos | 2026
// handler.go

package report

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/forum/internal/core"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

// RegisterRoutes mounts the report routes. fileLimiter throttles filing
// separately from the general API limit.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly, fileLimiter func(http.Handler) http.Handler,
) {
	r.Route("/reports", func(r chi.Router) {
		r.Use(authenticator)

		r.With(fileLimiter).Post("/", h.File)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)

			r.Get("/", h.List)
			r.Get("/{reportID}", h.Get)
			r.Delete("/{reportID}", h.TakeAction)
			r.Patch("/{reportID}/dismiss", h.Dismiss)
		})
	})
}

func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	var req FileReportRequest
	if !core.DecodeJSON(w, r, h.validator, &req) {
		return
	}

	rep, err := h.service.File(r.Context(), req)
	if err != nil {
		writeError(w, err, req.TargetType)
		return
	}

	core.Created(w, rep)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		Page:       core.QueryInt(r, "page", 1),
		PageSize:   core.QueryInt(r, "pageSize", 50),
		TargetType: r.URL.Query().Get("targetType"),
		Status:     r.URL.Query().Get("status"),
	}

	if err := h.validator.Struct(params); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}
	params.Normalize()

	reports, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, reports, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Get(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, err, "report")
		return
	}

	core.OK(w, rep)
}

func (h *Handler) TakeAction(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.TakeAction(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, err, "report")
		return
	}

	core.OK(w, res)
}

func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Dismiss(r.Context(), chi.URLParam(r, "reportID"))
	if err != nil {
		writeError(w, err, "report")
		return
	}

	core.OK(w, res)
}

func writeError(w http.ResponseWriter, err error, resource string) {
	switch {
	case errors.Is(err, core.ErrDuplicateReport):
		core.JSONError(w, core.DuplicateReportError())
	case errors.Is(err, core.ErrReportClosed):
		core.JSONError(w, core.ReportClosedError())
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, resource)
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrForbidden):
		core.Forbidden(w, "")
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "")
	default:
		core.InternalServerError(w, err)
	}
}
