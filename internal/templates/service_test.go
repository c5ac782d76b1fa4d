package templates

import (
	"archive/zip"
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentaldocs/internal/contracts"
	"rentaldocs/internal/contracts/store"
	"rentaldocs/internal/contracts/template"
	dErrors "rentaldocs/pkg/domain-errors"
)

const testCatalogJSON = `{
	"allowed": [
		"[[CONTRACT.SIGNING_CITY]]",
		"[[TENANT.NAME]]",
		"[[TENANT.RUT]]",
		"[[RENT.AMOUNT]]",
		"[[GUARANTOR.NAME]]"
	],
	"required": ["[[TENANT.NAME]]", "[[RENT.AMOUNT]]"]
}`

const completeDocumentXML = `<w:document><w:body>` +
	`<w:p><w:r><w:t>En [[CONTRACT.SIGNING_CITY]], [[TENANT.NAME]], RUT [[TENANT.RUT]], ` +
	`renta [[RENT.AMOUNT]].</w:t></w:r></w:p>` +
	`<w:p><w:r><w:t>[[IF.GUARANTOR]]Aval [[GUARANTOR.NAME]].[[ENDIF.GUARANTOR]]</w:t></w:r></w:p>` +
	`</w:body></w:document>`

type fakeObjects struct {
	uploads map[string][]byte
}

func (f *fakeObjects) UploadTemplate(_ context.Context, key string, data []byte) error {
	f.uploads[key] = data
	return nil
}

func (f *fakeObjects) PresignedTemplateURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://objects.test/" + key, nil
}

type fixture struct {
	svc     *Service
	store   *store.InMemoryTemplateStore
	objects *fakeObjects
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	catalog, err := template.ParseCatalog([]byte(testCatalogJSON))
	require.NoError(t, err)

	f := &fixture{
		store:   store.NewInMemoryTemplateStore(),
		objects: &fakeObjects{uploads: map[string][]byte{}},
	}
	f.svc = New(f.store, f.objects, template.NewEngine(catalog), catalog, slog.Default(), Options{})
	return f
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types/>`,
		"word/document.xml":   documentXML,
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func uploadInput(t *testing.T, documentXML string) UploadInput {
	t.Helper()
	return UploadInput{
		Name:      "contrato-arriendo",
		Filename:  "contrato.docx",
		Data:      buildDocx(t, documentXML),
		CreatedBy: "admin-1",
	}
}

func TestUploadStoresInactiveTemplate(t *testing.T) {
	f := newFixture(t)

	record, err := f.svc.Upload(context.Background(), uploadInput(t, completeDocumentXML))
	require.NoError(t, err)

	assert.Equal(t, contracts.TemplateInactive, record.Status)
	assert.Equal(t, 1, record.Version)
	assert.Equal(t, "admin-1", record.CreatedBy)
	assert.NotEmpty(t, record.SHA256)
	assert.True(t, strings.HasPrefix(record.ObjectKey, "contrato-arriendo/1/"))
	assert.Contains(t, f.objects.uploads, record.ObjectKey)
}

func TestUploadIncrementsVersionPerName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Upload(ctx, uploadInput(t, completeDocumentXML))
	require.NoError(t, err)
	second, err := f.svc.Upload(ctx, uploadInput(t, completeDocumentXML))
	require.NoError(t, err)

	other := uploadInput(t, completeDocumentXML)
	other.Name = "contrato-subarriendo"
	third, err := f.svc.Upload(ctx, other)
	require.NoError(t, err)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 1, third.Version, "versions are scoped per name")
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	f := newFixture(t)
	in := uploadInput(t, completeDocumentXML)
	in.Filename = "contrato.pdf"

	_, err := f.svc.Upload(context.Background(), in)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	f := newFixture(t)
	in := uploadInput(t, completeDocumentXML)
	in.Data = append(in.Data, make([]byte, MaxTemplateSize)...)

	_, err := f.svc.Upload(context.Background(), in)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
}

func TestUploadRejectsNonArchiveContent(t *testing.T) {
	f := newFixture(t)
	in := uploadInput(t, completeDocumentXML)
	in.Data = []byte("plain text pretending to be a docx")

	_, err := f.svc.Upload(context.Background(), in)
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
}

func TestUploadRejectsUnknownPlaceholders(t *testing.T) {
	f := newFixture(t)
	bad := strings.Replace(completeDocumentXML, "[[TENANT.RUT]]", "[[TENANT.PASSPORT]]", 1)

	_, err := f.svc.Upload(context.Background(), uploadInput(t, bad))
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
}

func TestUploadRejectsMissingRequiredPlaceholders(t *testing.T) {
	f := newFixture(t)
	bad := strings.Replace(completeDocumentXML, "[[RENT.AMOUNT]]", "una suma a convenir", 1)

	_, err := f.svc.Upload(context.Background(), uploadInput(t, bad))
	require.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
	de := dErrors.As(err)
	require.NotNil(t, de)
	assert.Contains(t, de.Details, "[[RENT.AMOUNT]]")
}

func TestUploadChecksRequiredInsideConditionals(t *testing.T) {
	// Required tokens guarded by a conditional still count: verification
	// runs with every flag raised.
	f := newFixture(t)
	guarded := strings.Replace(completeDocumentXML,
		"renta [[RENT.AMOUNT]].",
		"[[IF.FURNISHED]]renta [[RENT.AMOUNT]].[[ENDIF.FURNISHED]]", 1)

	_, err := f.svc.Upload(context.Background(), uploadInput(t, guarded))
	assert.NoError(t, err)
}

func TestUploadRejectsBrokenConditionals(t *testing.T) {
	f := newFixture(t)
	bad := strings.Replace(completeDocumentXML, "[[ENDIF.GUARANTOR]]", "", 1)

	_, err := f.svc.Upload(context.Background(), uploadInput(t, bad))
	assert.Equal(t, dErrors.CodeConditionalSyntax, dErrors.CodeOf(err))
}

func TestActivateSwitchesVersions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Upload(ctx, uploadInput(t, completeDocumentXML))
	require.NoError(t, err)
	second, err := f.svc.Upload(ctx, uploadInput(t, completeDocumentXML))
	require.NoError(t, err)

	require.NoError(t, f.svc.Activate(ctx, first.ID))
	require.NoError(t, f.svc.Activate(ctx, second.ID))

	reloaded, err := f.svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.TemplateInactive, reloaded.Status)

	active, err := f.svc.Get(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.TemplateActive, active.Status)
}

func TestActivateUnknownTemplate(t *testing.T) {
	f := newFixture(t)

	err := f.svc.Activate(context.Background(), "missing")
	assert.Equal(t, dErrors.CodeValidation, dErrors.CodeOf(err))
}

func TestSourceURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.svc.Upload(ctx, uploadInput(t, completeDocumentXML))
	require.NoError(t, err)

	url, err := f.svc.SourceURL(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://objects.test/"+record.ObjectKey, url)
}
