// Package service orchestrates contract issuance: validation, template
// rendering, PDF conversion, storage and the idempotent record keeping.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rentaldocs/internal/contracts"
	"rentaldocs/internal/contracts/clformat"
	"rentaldocs/internal/contracts/events"
	"rentaldocs/internal/contracts/fingerprint"
	"rentaldocs/internal/contracts/idempotency"
	"rentaldocs/internal/contracts/metrics"
	"rentaldocs/internal/contracts/render"
	"rentaldocs/internal/contracts/store"
	"rentaldocs/internal/contracts/template"
	"rentaldocs/internal/contracts/validate"
	dErrors "rentaldocs/pkg/domain-errors"
	"rentaldocs/pkg/requestcontext"
)

// ObjectStore is the object-storage surface the workflow needs.
type ObjectStore interface {
	DownloadTemplate(ctx context.Context, key string) ([]byte, error)
	UploadContract(ctx context.Context, key string, data []byte) error
	PresignedContractURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Converter turns rendered DOCX bytes into the distributable PDF.
type Converter interface {
	ToPDF(ctx context.Context, docx []byte, filename string) ([]byte, error)
}

// EventRecorder appends audit events.
type EventRecorder interface {
	Record(ctx context.Context, contractID, eventType string, metadata map[string]any) error
}

// PartyProjector maintains the party directory from issued contracts.
type PartyProjector interface {
	ProjectContract(ctx context.Context, record *contracts.ContractRecord) error
}

// Options tunes the issuance workflow.
type Options struct {
	// IdempotencyWindow bounds how far back the duplicate lookup reaches.
	IdempotencyWindow time.Duration
	// SignedURLTTL is the lifetime of returned download URLs.
	SignedURLTTL time.Duration
}

type Service struct {
	templates store.TemplateStore
	records   store.ContractStore
	objects   ObjectStore
	converter Converter
	engine    *template.Engine
	lease     *idempotency.Lease
	events    EventRecorder
	parties   PartyProjector
	metrics   *metrics.Metrics
	logger    *slog.Logger
	opts      Options
}

func New(
	templates store.TemplateStore,
	records store.ContractStore,
	objects ObjectStore,
	converter Converter,
	engine *template.Engine,
	lease *idempotency.Lease,
	eventRecorder EventRecorder,
	partyProjector PartyProjector,
	m *metrics.Metrics,
	logger *slog.Logger,
	opts Options,
) *Service {
	if opts.IdempotencyWindow <= 0 {
		opts.IdempotencyWindow = 15 * time.Minute
	}
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = 7 * 24 * time.Hour
	}
	return &Service{
		templates: templates,
		records:   records,
		objects:   objects,
		converter: converter,
		engine:    engine,
		lease:     lease,
		events:    eventRecorder,
		parties:   partyProjector,
		metrics:   m,
		logger:    logger,
		opts:      opts,
	}
}

// IssueResult is the outcome of an issuance call. Reused marks an idempotent
// replay resolved from an earlier record.
type IssueResult struct {
	ContractID  string `json:"contractId"`
	Reused      bool   `json:"reused"`
	Fingerprint string `json:"fingerprint"`
	PDFSHA256   string `json:"pdfSha256"`
	DownloadURL string `json:"downloadUrl"`
}

// DraftResult is a rendered preview; nothing is recorded.
type DraftResult struct {
	Fingerprint string `json:"fingerprint"`
	DownloadURL string `json:"downloadUrl"`
}

// ValidationReport is the outcome of validating a payload against a template
// without issuing.
type ValidationReport struct {
	Valid                bool     `json:"valid"`
	ResidualPlaceholders []string `json:"residualPlaceholders,omitempty"`
}

// ValidatePayload normalizes, fills defaults and checks the business rules.
// The payload is mutated with the derived fields.
func (s *Service) ValidatePayload(_ context.Context, payload *contracts.Payload, vopts validate.Options) error {
	validate.Normalize(payload)
	if err := validate.ApplyDefaults(payload, vopts); err != nil {
		return err
	}
	return validate.ValidateBusinessRules(payload)
}

// ValidateForTemplate validates the payload and dry-runs the render,
// reporting residual placeholders without failing on them.
func (s *Service) ValidateForTemplate(ctx context.Context, templateID string, payload *contracts.Payload, vopts validate.Options) (*ValidationReport, error) {
	if err := s.ValidatePayload(ctx, payload, vopts); err != nil {
		return nil, err
	}
	tpl, err := s.loadTemplate(ctx, templateID, payload.Contract.Type)
	if err != nil {
		return nil, err
	}

	result, _, err := s.renderTemplate(ctx, tpl, payload)
	if err != nil {
		return nil, err
	}

	residual := template.FindResidualPlaceholders(result.MergedText)
	return &ValidationReport{
		Valid:                len(residual) == 0,
		ResidualPlaceholders: residual,
	}, nil
}

// Issue runs the full idempotent issuance workflow.
func (s *Service) Issue(ctx context.Context, templateID string, payload *contracts.Payload, vopts validate.Options) (*IssueResult, error) {
	result, err := s.issue(ctx, templateID, payload, vopts)
	if err != nil {
		s.metrics.IncrementIssueOutcome("failed")
		s.metrics.IncrementFailures(string(dErrors.CodeOf(err)))
		return nil, err
	}
	if result.Reused {
		s.metrics.IncrementIssueOutcome("reused")
	} else {
		s.metrics.IncrementIssueOutcome("issued")
	}
	return result, nil
}

func (s *Service) issue(ctx context.Context, templateID string, payload *contracts.Payload, vopts validate.Options) (*IssueResult, error) {
	actorID := requestcontext.ActorID(ctx)
	if actorID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing acting user")
	}

	if err := s.ValidatePayload(ctx, payload, vopts); err != nil {
		return nil, err
	}
	tpl, err := s.loadTemplate(ctx, templateID, payload.Contract.Type)
	if err != nil {
		return nil, err
	}

	fp, err := fingerprint.Compute(tpl.ID, payload)
	if err != nil {
		return nil, err
	}

	// The lease closes the gap between the duplicate lookup and the record
	// write. Without Redis we fall back to the unguarded check.
	release, acquired, err := s.lease.Acquire(ctx, idempotency.Key(tpl.ID, actorID, fp))
	if err != nil {
		return nil, err
	}
	defer release(ctx)
	if !acquired {
		s.logger.Warn("issuance lease unavailable, using unguarded idempotency check",
			"template_id", tpl.ID, "fingerprint", fp)
	}

	since := time.Now().UTC().Add(-s.opts.IdempotencyWindow)
	existing, err := s.records.FindRecentIssued(ctx, tpl.ID, actorID, fp, since)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		url, err := s.objects.PresignedContractURL(ctx, existing.ObjectKey, s.opts.SignedURLTTL)
		if err != nil {
			return nil, err
		}
		s.logger.Info("contract issuance reused",
			"contract_id", existing.ID, "fingerprint", fp)
		return &IssueResult{
			ContractID:  existing.ID,
			Reused:      true,
			Fingerprint: fp,
			PDFSHA256:   existing.PDFSHA256,
			DownloadURL: url,
		}, nil
	}

	rendered, replacements, err := s.renderTemplate(ctx, tpl, payload)
	if err != nil {
		return nil, err
	}
	if err := template.AssertNoResidualPlaceholders(rendered.MergedText); err != nil {
		return nil, err
	}

	pdf, err := s.convert(ctx, rendered.DocxBytes)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(pdf)
	pdfSHA := hex.EncodeToString(sum[:])
	now := time.Now().UTC()
	objectKey := fmt.Sprintf("%s/%s/%s.pdf", actorID, clformat.FormatISO(now), fp)

	uploadStart := time.Now()
	if err := s.objects.UploadContract(ctx, objectKey, pdf); err != nil {
		return nil, err
	}
	s.metrics.ObserveStageLatency("store", time.Since(uploadStart))

	record := &contracts.ContractRecord{
		ID:           uuid.NewString(),
		TemplateID:   tpl.ID,
		ActorID:      actorID,
		Status:       contracts.ContractIssued,
		Fingerprint:  fp,
		ObjectKey:    objectKey,
		PDFSHA256:    pdfSHA,
		SizeBytes:    int64(len(pdf)),
		Payload:      *payload,
		Replacements: replacements,
		IssuedAt:     now,
	}
	persistStart := time.Now()
	if err := s.records.Insert(ctx, record); err != nil {
		// The uploaded PDF stays behind; no compensating delete.
		return nil, err
	}
	s.metrics.ObserveStageLatency("persist", time.Since(persistStart))

	// The record is durable from here on; audit and projection problems are
	// logged, not surfaced.
	if err := s.events.Record(ctx, record.ID, events.TypeIssued, map[string]any{
		"fingerprint": fp,
		"templateId":  tpl.ID,
	}); err != nil {
		s.logger.Warn("issued event not recorded", "contract_id", record.ID, "error", err)
	}
	if err := s.parties.ProjectContract(ctx, record); err != nil {
		s.logger.Warn("party projection failed", "contract_id", record.ID, "error", err)
	}

	url, err := s.objects.PresignedContractURL(ctx, objectKey, s.opts.SignedURLTTL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("contract issued",
		"contract_id", record.ID,
		"template_id", tpl.ID,
		"fingerprint", fp,
		"size_bytes", record.SizeBytes)

	return &IssueResult{
		ContractID:  record.ID,
		Fingerprint: fp,
		PDFSHA256:   pdfSHA,
		DownloadURL: url,
	}, nil
}

// Draft renders and converts a preview document. Every call yields a fresh
// object; no ContractRecord is written.
func (s *Service) Draft(ctx context.Context, templateID string, payload *contracts.Payload, vopts validate.Options) (*DraftResult, error) {
	actorID := requestcontext.ActorID(ctx)
	if actorID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing acting user")
	}

	if err := s.ValidatePayload(ctx, payload, vopts); err != nil {
		return nil, err
	}
	tpl, err := s.loadTemplate(ctx, templateID, payload.Contract.Type)
	if err != nil {
		return nil, err
	}

	base, err := fingerprint.Compute(tpl.ID, payload)
	if err != nil {
		return nil, err
	}
	// Timestamped so every draft call stores a distinct object.
	fp := fmt.Sprintf("%s-%d", base, time.Now().UnixNano())

	rendered, _, err := s.renderTemplate(ctx, tpl, payload)
	if err != nil {
		return nil, err
	}
	if err := template.AssertNoResidualPlaceholders(rendered.MergedText); err != nil {
		return nil, err
	}

	pdf, err := s.convert(ctx, rendered.DocxBytes)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("drafts/%s/%s.pdf", actorID, fp)
	if err := s.objects.UploadContract(ctx, objectKey, pdf); err != nil {
		return nil, err
	}
	url, err := s.objects.PresignedContractURL(ctx, objectKey, s.opts.SignedURLTTL)
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementDrafts()
	return &DraftResult{Fingerprint: fp, DownloadURL: url}, nil
}

// Get returns one issued contract.
func (s *Service) Get(ctx context.Context, id string) (*contracts.ContractRecord, error) {
	record, err := s.records.GetByID(ctx, id)
	if err == store.ErrContractNotFound {
		return nil, dErrors.New(dErrors.CodeValidation, "contract not found").
			WithDetails(map[string]string{"id": id})
	}
	return record, err
}

// List returns issued contracts matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter store.ContractListFilter) ([]contracts.ContractRecord, error) {
	return s.records.List(ctx, filter)
}

// DownloadURL returns a signed URL for an issued contract and records the
// download event.
func (s *Service) DownloadURL(ctx context.Context, id string) (string, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.objects.PresignedContractURL(ctx, record.ObjectKey, s.opts.SignedURLTTL)
	if err != nil {
		return "", err
	}
	if err := s.events.Record(ctx, record.ID, events.TypeDownloaded, map[string]any{
		"actorId": requestcontext.ActorID(ctx),
	}); err != nil {
		s.logger.Warn("downloaded event not recorded", "contract_id", record.ID, "error", err)
	}
	return url, nil
}

// loadTemplate fetches the template, requires it to be active and to match
// the payload's contract type by naming convention.
func (s *Service) loadTemplate(ctx context.Context, templateID, contractType string) (*contracts.TemplateRecord, error) {
	tpl, err := s.templates.GetByID(ctx, templateID)
	if err == store.ErrTemplateNotFound {
		return nil, dErrors.New(dErrors.CodeValidation, "template not found").
			WithDetails(map[string]string{"templateId": templateID})
	}
	if err != nil {
		return nil, err
	}
	if tpl.Status != contracts.TemplateActive {
		return nil, dErrors.New(dErrors.CodeTemplateNotActive, "template is not active").
			WithDetails(map[string]string{"templateId": templateID, "status": tpl.Status})
	}

	wantSublease := contractType == contracts.TypeOwnerSublease
	if tpl.IsSubleaseTemplate() != wantSublease {
		return nil, dErrors.New(dErrors.CodeValidation,
			"template does not match the contract type").
			WithDetails(map[string]string{"templateId": templateID, "contractType": contractType}).
			WithHint("sublease templates carry \"subarriendo\" or \"sublease\" in their name or description")
	}
	return tpl, nil
}

// renderTemplate downloads the template binary and runs the text pipeline:
// catalog syntax check, conditionals, guarantor protection, substitution.
func (s *Service) renderTemplate(ctx context.Context, tpl *contracts.TemplateRecord, payload *contracts.Payload) (*render.Result, map[string]string, error) {
	source, err := s.objects.DownloadTemplate(ctx, tpl.ObjectKey)
	if err != nil {
		return nil, nil, err
	}

	flags := map[string]bool{
		template.FlagGuarantor:  payload.Flags.HasGuarantor,
		template.FlagPetAllowed: payload.Flags.PetAllowed,
		template.FlagFurnished:  payload.Flags.Furnished,
	}
	replacements := s.engine.BuildReplacements(payload)

	start := time.Now()
	result, err := render.Render(source, func(xml string) (string, error) {
		if err := s.engine.ValidateCatalogSyntax(xml); err != nil {
			return "", err
		}
		applied, err := template.ApplyConditionals(xml, flags)
		if err != nil {
			return "", err
		}
		if err := template.AssertGuarantorPlaceholdersProtected(applied, payload.Flags.HasGuarantor); err != nil {
			return "", err
		}
		return s.engine.ApplyReplacements(applied, replacements), nil
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.ObserveStageLatency("render", time.Since(start))
	return result, replacements, nil
}

func (s *Service) convert(ctx context.Context, docx []byte) ([]byte, error) {
	start := time.Now()
	pdf, err := s.converter.ToPDF(ctx, docx, "contract.docx")
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveStageLatency("convert", time.Since(start))
	return pdf, nil
}
