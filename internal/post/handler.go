// AngelaMos | 2026
// handler.go

package post

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/templates/forum/internal/core"
	"github.com/carterperez-dev/templates/forum/internal/forum"
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

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Get("/posts", h.List)
	r.Get("/posts/{postID}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/posts", h.Create)
		r.Get("/posts/count/{email}", h.Count)
		r.Patch("/posts/vote/{postID}", h.Vote)
		r.Delete("/posts/{postID}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		Page:     core.QueryInt(r, "page", 1),
		PageSize: core.QueryInt(r, "pageSize", 20),
		Tag:      r.URL.Query().Get("tag"),
		AuthorID: r.URL.Query().Get("author"),
	}

	if err := h.validator.Struct(params); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}
	params.Normalize()

	posts, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, posts, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if !core.DecodeJSON(w, r, h.validator, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	core.Created(w, p)
}

func (h *Handler) Count(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, CountResponse{Count: count})
}

func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if !core.DecodeJSON(w, r, h.validator, &req) {
		return
	}

	p, err := h.service.Vote(r.Context(), chi.URLParam(r, "postID"), forum.Direction(req.VoteType))
	if err != nil {
		writeError(w, err)
		return
	}

	core.OK(w, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "postID")); err != nil {
		writeError(w, err)
		return
	}

	core.NoContent(w)
}

func writeError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		core.NotFound(w, "post")
	case errors.Is(err, core.ErrForbidden):
		core.JSONError(w, core.NotAuthorError("post"))
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	case errors.Is(err, core.ErrUnauthorized):
		core.Unauthorized(w, "")
	default:
		core.InternalServerError(w, err)
	}
}
