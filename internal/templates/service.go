// Package templates manages the DOCX template catalog: upload, dry-run
// verification, versioning and activation.
package templates

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"rentaldocs/internal/contracts"
	"rentaldocs/internal/contracts/render"
	"rentaldocs/internal/contracts/store"
	"rentaldocs/internal/contracts/template"
	dErrors "rentaldocs/pkg/domain-errors"
)

// MaxTemplateSize bounds uploaded DOCX files.
const MaxTemplateSize = 10 << 20

var zipMagic = []byte{'P', 'K', 0x03, 0x04}

// ObjectStore is the object-storage surface the template catalog needs.
type ObjectStore interface {
	UploadTemplate(ctx context.Context, key string, data []byte) error
	PresignedTemplateURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Options tunes the template catalog service.
type Options struct {
	// SignedURLTTL is the lifetime of returned source URLs.
	SignedURLTTL time.Duration
}

type Service struct {
	store   store.TemplateStore
	objects ObjectStore
	engine  *template.Engine
	catalog *template.Catalog
	logger  *slog.Logger
	opts    Options
}

func New(templateStore store.TemplateStore, objects ObjectStore, engine *template.Engine, catalog *template.Catalog, logger *slog.Logger, opts Options) *Service {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = time.Hour
	}
	return &Service{
		store:   templateStore,
		objects: objects,
		engine:  engine,
		catalog: catalog,
		logger:  logger,
		opts:    opts,
	}
}

// UploadInput describes one uploaded template file.
type UploadInput struct {
	Name        string
	Description string
	Filename    string
	Data        []byte
	CreatedBy   string
}

// Upload verifies and stores a new template version. The template starts
// inactive; activation is a separate explicit step.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*contracts.TemplateRecord, error) {
	if err := s.verifyFile(in); err != nil {
		return nil, err
	}
	if err := s.verifyContent(in.Data); err != nil {
		return nil, err
	}

	version, err := s.nextVersion(ctx, in.Name)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(in.Data)
	digest := hex.EncodeToString(sum[:])
	key := fmt.Sprintf("%s/%d/%s.docx", in.Name, version, digest)
	if err := s.objects.UploadTemplate(ctx, key, in.Data); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	record := &contracts.TemplateRecord{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		Version:     version,
		Status:      contracts.TemplateInactive,
		ObjectKey:   key,
		SHA256:      digest,
		SizeBytes:   int64(len(in.Data)),
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info("template uploaded",
		"template_id", record.ID,
		"name", record.Name,
		"version", record.Version,
		"size_bytes", record.SizeBytes)
	return record, nil
}

// List returns every template version.
func (s *Service) List(ctx context.Context) ([]contracts.TemplateRecord, error) {
	return s.store.List(ctx)
}

// Get returns one template.
func (s *Service) Get(ctx context.Context, id string) (*contracts.TemplateRecord, error) {
	tpl, err := s.store.GetByID(ctx, id)
	if err == store.ErrTemplateNotFound {
		return nil, dErrors.New(dErrors.CodeValidation, "template not found").
			WithDetails(map[string]string{"id": id})
	}
	return tpl, err
}

// Activate makes one version the active template of its name, deactivating
// the siblings.
func (s *Service) Activate(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.SetActive(ctx, id); err != nil {
		return err
	}
	s.logger.Info("template activated", "template_id", id)
	return nil
}

// SourceURL returns a signed URL for downloading the template binary.
func (s *Service) SourceURL(ctx context.Context, id string) (string, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.objects.PresignedTemplateURL(ctx, tpl.ObjectKey, s.opts.SignedURLTTL)
}

func (s *Service) verifyFile(in UploadInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return dErrors.New(dErrors.CodeValidation, "template name is required")
	}
	if !strings.EqualFold(filepath.Ext(in.Filename), ".docx") {
		return dErrors.New(dErrors.CodeValidation, "template file must be a .docx").
			WithDetails(map[string]string{"filename": in.Filename})
	}
	if len(in.Data) == 0 {
		return dErrors.New(dErrors.CodeValidation, "template file is empty")
	}
	if len(in.Data) > MaxTemplateSize {
		return dErrors.New(dErrors.CodeValidation, "template file exceeds the size limit").
			WithDetails(map[string]any{"sizeBytes": len(in.Data), "maxBytes": MaxTemplateSize})
	}
	if !bytes.HasPrefix(in.Data, zipMagic) {
		return dErrors.New(dErrors.CodeValidation, "template file is not a DOCX archive")
	}
	return nil
}

// verifyContent dry-runs the template with every conditional flag raised:
// catalog syntax must hold and every required token must be present.
func (s *Service) verifyContent(data []byte) error {
	allFlags := map[string]bool{
		template.FlagGuarantor:  true,
		template.FlagPetAllowed: true,
		template.FlagFurnished:  true,
	}
	result, err := render.Render(data, func(xml string) (string, error) {
		if err := s.engine.ValidateCatalogSyntax(xml); err != nil {
			return "", err
		}
		return template.ApplyConditionals(xml, allFlags)
	})
	if dErrors.CodeOf(err) == dErrors.CodeRenderFailed {
		// A bad archive on upload is the author's problem, not a pipeline
		// failure.
		return dErrors.Wrap(dErrors.CodeValidation, "template archive could not be read", err)
	}
	if err != nil {
		return err
	}

	var missing []string
	for _, token := range s.catalog.Required {
		if !strings.Contains(result.MergedText, token) {
			missing = append(missing, token)
		}
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, "template is missing required placeholders").
			WithDetails(missing)
	}
	return nil
}

func (s *Service) nextVersion(ctx context.Context, name string) (int, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	version := 1
	for _, tpl := range all {
		if tpl.Name == name && tpl.Version >= version {
			version = tpl.Version + 1
		}
	}
	return version, nil
}
