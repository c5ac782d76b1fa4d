package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentaldocs/internal/contracts"
	"rentaldocs/internal/templates"
	dErrors "rentaldocs/pkg/domain-errors"
)

type fakeService struct {
	upload    func(in templates.UploadInput) (*contracts.TemplateRecord, error)
	list      func() ([]contracts.TemplateRecord, error)
	get       func(id string) (*contracts.TemplateRecord, error)
	activate  func(id string) error
	sourceURL func(id string) (string, error)
}

func (f *fakeService) Upload(_ context.Context, in templates.UploadInput) (*contracts.TemplateRecord, error) {
	return f.upload(in)
}

func (f *fakeService) List(_ context.Context) ([]contracts.TemplateRecord, error) {
	return f.list()
}

func (f *fakeService) Get(_ context.Context, id string) (*contracts.TemplateRecord, error) {
	return f.get(id)
}

func (f *fakeService) Activate(_ context.Context, id string) error {
	return f.activate(id)
}

func (f *fakeService) SourceURL(_ context.Context, id string) (string, error) {
	return f.sourceURL(id)
}

func newRouter(svc Service) http.Handler {
	r := chi.NewRouter()
	h := New(svc, slog.Default())
	h.Register(r)
	h.RegisterEditor(r)
	return r
}

func multipartUpload(t *testing.T, name, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", name))
	require.NoError(t, mw.WriteField("description", "contrato residencial"))
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/templates", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleUploadCreated(t *testing.T) {
	svc := &fakeService{
		upload: func(in templates.UploadInput) (*contracts.TemplateRecord, error) {
			assert.Equal(t, "contrato-arriendo", in.Name)
			assert.Equal(t, "contrato residencial", in.Description)
			assert.Equal(t, "contrato.docx", in.Filename)
			assert.Equal(t, []byte("PK-content"), in.Data)
			return &contracts.TemplateRecord{ID: "tpl-1", Name: in.Name, Version: 1}, nil
		},
	}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, multipartUpload(t, "contrato-arriendo", "contrato.docx", []byte("PK-content")))

	require.Equal(t, http.StatusCreated, rec.Code)
	var record contracts.TemplateRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, "tpl-1", record.ID)
}

func TestHandleUploadMissingFile(t *testing.T) {
	svc := &fakeService{}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "contrato-arriendo"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/templates", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleUploadServiceError(t *testing.T) {
	svc := &fakeService{
		upload: func(templates.UploadInput) (*contracts.TemplateRecord, error) {
			return nil, dErrors.New(dErrors.CodeValidation, "template file must be a .docx")
		},
	}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, multipartUpload(t, "contrato-arriendo", "contrato.pdf", []byte("PK")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleList(t *testing.T) {
	svc := &fakeService{
		list: func() ([]contracts.TemplateRecord, error) {
			return []contracts.TemplateRecord{{ID: "tpl-1"}, {ID: "tpl-2"}}, nil
		},
	}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Templates, 2)
}

func TestHandleActivate(t *testing.T) {
	var activated string
	svc := &fakeService{
		activate: func(id string) error {
			activated = id
			return nil
		},
	}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/templates/tpl-1/activate", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "tpl-1", activated)
}

func TestHandleSource(t *testing.T) {
	svc := &fakeService{
		sourceURL: func(id string) (string, error) {
			assert.Equal(t, "tpl-1", id)
			return "https://objects.test/tpl-source", nil
		},
	}
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/templates/tpl-1/source", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp sourceResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://objects.test/tpl-source", resp.URL)
}
