// Package handler exposes the contract issuance API over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"rentaldocs/internal/contracts"
	"rentaldocs/internal/contracts/clformat"
	"rentaldocs/internal/contracts/service"
	"rentaldocs/internal/contracts/store"
	"rentaldocs/internal/contracts/validate"
	dErrors "rentaldocs/pkg/domain-errors"
	"rentaldocs/pkg/platform/httputil"
	"rentaldocs/pkg/requestcontext"
)

// Service defines the issuance operations the handlers call.
type Service interface {
	ValidatePayload(ctx context.Context, payload *contracts.Payload, opts validate.Options) error
	ValidateForTemplate(ctx context.Context, templateID string, payload *contracts.Payload, opts validate.Options) (*service.ValidationReport, error)
	Issue(ctx context.Context, templateID string, payload *contracts.Payload, opts validate.Options) (*service.IssueResult, error)
	Draft(ctx context.Context, templateID string, payload *contracts.Payload, opts validate.Options) (*service.DraftResult, error)
	Get(ctx context.Context, id string) (*contracts.ContractRecord, error)
	List(ctx context.Context, filter store.ContractListFilter) ([]contracts.ContractRecord, error)
	DownloadURL(ctx context.Context, id string) (string, error)
}

// Handler wires contract endpoints to the issuance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the read and validation endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/contracts/validate", h.HandleValidate)
	r.Post("/contracts/validate-template", h.HandleValidateTemplate)
	r.Get("/contracts", h.HandleList)
	r.Get("/contracts/{id}", h.HandleGet)
	r.Get("/contracts/{id}/download", h.HandleDownload)
}

// RegisterEditor mounts the endpoints that create documents; callers gate
// them with the editor role.
func (h *Handler) RegisterEditor(r chi.Router) {
	r.Post("/contracts/issue", h.HandleIssue)
	r.Post("/contracts/draft", h.HandleDraft)
}

// HandleValidate handles POST /contracts/validate. The response echoes the
// payload with normalization, defaults and automatic rules applied.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[ValidateRequest](w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.ValidatePayload(ctx, &req.Payload, req.Options.domain()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ValidateResponse{Valid: true, Payload: req.Payload})
}

// HandleValidateTemplate handles POST /contracts/validate-template: a dry run
// against a concrete template that reports residual placeholders.
func (h *Handler) HandleValidateTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[IssueRequest](w, r, h.logger)
	if !ok {
		return
	}

	report, err := h.service.ValidateForTemplate(ctx, req.TemplateID, &req.Payload, req.Options.domain())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleIssue handles POST /contracts/issue.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()
	req, ok := httputil.DecodeJSON[IssueRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Issue(ctx, req.TemplateID, &req.Payload, req.Options.domain())
	if err != nil {
		h.logger.ErrorContext(ctx, "contract issuance failed",
			"request_id", requestcontext.RequestID(ctx),
			"template_id", req.TemplateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "contract issuance handled",
		"request_id", requestcontext.RequestID(ctx),
		"contract_id", result.ContractID,
		"reused", result.Reused,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	status := http.StatusCreated
	if result.Reused {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, result)
}

// HandleDraft handles POST /contracts/draft.
func (h *Handler) HandleDraft(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeJSON[IssueRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Draft(ctx, req.TemplateID, &req.Payload, req.Options.domain())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleList handles GET /contracts with optional filters.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := listFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	records, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if records == nil {
		records = []contracts.ContractRecord{}
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Contracts: records})
}

// HandleGet handles GET /contracts/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleDownload handles GET /contracts/{id}/download, returning a signed URL.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	url, err := h.service.DownloadURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DownloadResponse{URL: url})
}

func listFilter(r *http.Request) (store.ContractListFilter, error) {
	q := r.URL.Query()
	filter := store.ContractListFilter{
		TemplateID: q.Get("templateId"),
		ActorID:    q.Get("actorId"),
		Status:     q.Get("status"),
	}

	if raw := q.Get("from"); raw != "" {
		t, err := clformat.ParseDate(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid from date").
				WithDetails(map[string]string{"from": raw})
		}
		filter.IssuedFrom = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := clformat.ParseDate(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid to date").
				WithDetails(map[string]string{"to": raw})
		}
		// Inclusive upper bound for a date-only filter.
		filter.IssuedTo = t.AddDate(0, 0, 1)
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid limit")
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid offset")
		}
		filter.Offset = n
	}
	return filter, nil
}
