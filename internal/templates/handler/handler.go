// Package handler exposes the template catalog API over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rentaldocs/internal/contracts"
	"rentaldocs/internal/templates"
	dErrors "rentaldocs/pkg/domain-errors"
	"rentaldocs/pkg/platform/httputil"
	"rentaldocs/pkg/requestcontext"
)

// Service defines the template catalog operations the handlers call.
type Service interface {
	Upload(ctx context.Context, in templates.UploadInput) (*contracts.TemplateRecord, error)
	List(ctx context.Context) ([]contracts.TemplateRecord, error)
	Get(ctx context.Context, id string) (*contracts.TemplateRecord, error)
	Activate(ctx context.Context, id string) error
	SourceURL(ctx context.Context, id string) (string, error)
}

// Handler wires template catalog endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Get("/templates", h.HandleList)
	r.Get("/templates/{id}", h.HandleGet)
	r.Get("/templates/{id}/source", h.HandleSource)
}

// RegisterEditor mounts the endpoints that change the catalog; callers gate
// them with the editor role.
func (h *Handler) RegisterEditor(r chi.Router) {
	r.Post("/templates", h.HandleUpload)
	r.Post("/templates/{id}/activate", h.HandleActivate)
}

type listResponse struct {
	Templates []contracts.TemplateRecord `json:"templates"`
}

type sourceResponse struct {
	URL string `json:"url"`
}

// HandleUpload handles POST /templates. The body is multipart form data with
// a "file" part and "name"/"description" fields.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, templates.MaxTemplateSize+1<<20)
	if err := r.ParseMultipartForm(templates.MaxTemplateSize); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid multipart body"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "missing template file").
			WithHint("send the DOCX in a multipart part named \"file\""))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "template file could not be read"))
		return
	}

	record, err := h.service.Upload(ctx, templates.UploadInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Filename:    header.Filename,
		Data:        data,
		CreatedBy:   requestcontext.ActorID(ctx),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "template upload failed",
			"request_id", requestcontext.RequestID(ctx),
			"name", r.FormValue("name"),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleList handles GET /templates.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []contracts.TemplateRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Templates: records})
}

// HandleGet handles GET /templates/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleActivate handles POST /templates/{id}/activate.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Activate(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(r.Context(), "template activation handled",
		"request_id", requestcontext.RequestID(r.Context()),
		"template_id", id,
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSource handles GET /templates/{id}/source, returning a signed URL for
// the stored DOCX.
func (h *Handler) HandleSource(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.SourceURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sourceResponse{URL: url})
}
