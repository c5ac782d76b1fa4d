package render

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rentaldocs/pkg/domain-errors"
)

func buildDocx(t *testing.T, parts map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range parts {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func readDocxPart(t *testing.T, archive []byte, name string) string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	require.NoError(t, err)
	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(data)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

func TestRenderTransformsPresentParts(t *testing.T) {
	source := buildDocx(t, map[string]string{
		"word/document.xml":            "<w:p><w:r>hola [[X]]</w:r></w:p>",
		"word/header1.xml":             "header [[X]]",
		"[Content_Types].xml":          "<Types/>",
		"word/_rels/document.xml.rels": "<Relationships/>",
	})

	result, err := Render(source, func(xml string) (string, error) {
		return strings.ReplaceAll(xml, "[[X]]", "mundo"), nil
	})
	require.NoError(t, err)

	assert.Contains(t, result.MergedText, "hola mundo")
	assert.Contains(t, result.MergedText, "header mundo")
	assert.Contains(t, readDocxPart(t, result.DocxBytes, "word/header1.xml"), "header mundo")
	// Untouched entries survive the repack.
	assert.Equal(t, "<Types/>", readDocxPart(t, result.DocxBytes, "[Content_Types].xml"))
}

func TestRenderEnforcesJustificationOnBody(t *testing.T) {
	source := buildDocx(t, map[string]string{
		"word/document.xml": `<w:p><w:r>a</w:r></w:p><w:p><w:pPr><w:ind/></w:pPr><w:r>b</w:r></w:p><w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r>c</w:r></w:p>`,
		"word/header1.xml":  "<w:p><w:r>h</w:r></w:p>",
	})

	result, err := Render(source, func(xml string) (string, error) { return xml, nil })
	require.NoError(t, err)

	body := readDocxPart(t, result.DocxBytes, "word/document.xml")
	assert.Contains(t, body, `<w:p><w:pPr><w:jc w:val="both"/></w:pPr><w:r>a</w:r></w:p>`)
	assert.Contains(t, body, `<w:pPr><w:jc w:val="both"/><w:ind/></w:pPr>`)
	// Existing justification untouched.
	assert.Contains(t, body, `<w:jc w:val="center"/>`)
	// Headers are not justified.
	assert.Equal(t, "<w:p><w:r>h</w:r></w:p>", readDocxPart(t, result.DocxBytes, "word/header1.xml"))
}

func TestRenderPropagatesTransformError(t *testing.T) {
	source := buildDocx(t, map[string]string{"word/document.xml": "x"})

	wantErr := dErrors.New(dErrors.CodeConditionalSyntax, "boom")
	_, err := Render(source, func(string) (string, error) { return "", wantErr })
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConditionalSyntax))
}

func TestRenderRejectsCorruptArchive(t *testing.T) {
	_, err := Render([]byte("not a zip"), func(xml string) (string, error) { return xml, nil })
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeRenderFailed))
}
