// Package render rewrites the text parts of a DOCX archive through a
// caller-supplied transform and repacks the result.
package render

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	dErrors "rentaldocs/pkg/domain-errors"
)

// xmlParts are the archive entries that can carry contract text. Missing
// entries are simply skipped.
var xmlParts = []string{
	"word/document.xml",
	"word/header1.xml",
	"word/header2.xml",
	"word/header3.xml",
	"word/footer1.xml",
	"word/footer2.xml",
	"word/footer3.xml",
}

// TransformFunc rewrites one XML part.
type TransformFunc func(xml string) (string, error)

// Result is the repacked archive plus the concatenation of every transformed
// part, so downstream checks can scan the text without re-extracting.
type Result struct {
	DocxBytes  []byte
	MergedText string
}

// Render extracts the template archive to a scratch directory, transforms
// each present text part, and repacks. The scratch directory is removed on
// every exit path; failures surface as RENDER_FAILED.
func Render(source []byte, transform TransformFunc) (*Result, error) {
	workDir, err := os.MkdirTemp("", "contract-docx-")
	if err != nil {
		return nil, renderFailed(err)
	}
	defer os.RemoveAll(workDir)

	if err := extractArchive(source, workDir); err != nil {
		return nil, renderFailed(err)
	}

	var merged []string
	for _, part := range xmlParts {
		absPath := filepath.Join(workDir, filepath.FromSlash(part))
		raw, err := os.ReadFile(absPath)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, renderFailed(err)
		}

		transformed, err := transform(string(raw))
		if err != nil {
			// Transform failures are domain errors, not packaging failures.
			return nil, err
		}
		if part == "word/document.xml" {
			transformed = enforceParagraphJustification(transformed)
		}

		merged = append(merged, transformed)
		if err := os.WriteFile(absPath, []byte(transformed), 0o644); err != nil {
			return nil, renderFailed(err)
		}
	}

	packed, err := packArchive(workDir)
	if err != nil {
		return nil, renderFailed(err)
	}

	return &Result{
		DocxBytes:  packed,
		MergedText: strings.Join(merged, "\n"),
	}, nil
}

func renderFailed(err error) error {
	return dErrors.Wrap(dErrors.CodeRenderFailed, "could not render the DOCX template", err)
}

func extractArchive(source []byte, dir string) error {
	reader, err := zip.NewReader(bytes.NewReader(source), int64(len(source)))
	if err != nil {
		return fmt.Errorf("open docx archive: %w", err)
	}

	for _, file := range reader.File {
		target := filepath.Join(dir, filepath.FromSlash(file.Name))
		// Entry names must stay inside the scratch dir.
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry escapes extraction dir: %s", file.Name)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		src, err := file.Open()
		if err != nil {
			return err
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func packArchive(dir string) ([]byte, error) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		entry, err := writer.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		_, err = entry.Write(data)
		return err
	})
	if err != nil {
		writer.Close()
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var (
	paragraphPattern   = regexp.MustCompile(`(?s)<w:p\b.*?</w:p>`)
	justificationMark  = regexp.MustCompile(`<w:jc\b`)
	paragraphPropsMark = "<w:pPr>"
	paragraphOpenTag   = regexp.MustCompile(`^<w:p([^>]*)>`)
)

// enforceParagraphJustification injects <w:jc w:val="both"/> into every body
// paragraph that does not already declare a justification.
func enforceParagraphJustification(xml string) string {
	return paragraphPattern.ReplaceAllStringFunc(xml, func(paragraph string) string {
		if justificationMark.MatchString(paragraph) {
			return paragraph
		}
		if strings.Contains(paragraph, paragraphPropsMark) {
			return strings.Replace(paragraph, paragraphPropsMark, `<w:pPr><w:jc w:val="both"/>`, 1)
		}
		return paragraphOpenTag.ReplaceAllString(paragraph, `<w:p$1><w:pPr><w:jc w:val="both"/></w:pPr>`)
	})
}
