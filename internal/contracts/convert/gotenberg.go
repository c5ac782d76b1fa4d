// Package convert turns rendered DOCX documents into PDFs through a Gotenberg
// instance.
package convert

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	dErrors "rentaldocs/pkg/domain-errors"
)

const convertRoute = "/forms/libreoffice/convert"

// Client calls Gotenberg's LibreOffice conversion route.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ToPDF uploads the DOCX bytes and returns the converted PDF. Conversion
// problems surface as RENDER_FAILED carrying Gotenberg's status and body.
func (c *Client) ToPDF(ctx context.Context, docx []byte, filename string) ([]byte, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("files", filename)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeRenderFailed, "build conversion request", err)
	}
	if _, err := part.Write(docx); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeRenderFailed, "build conversion request", err)
	}
	if err := form.Close(); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeRenderFailed, "build conversion request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+convertRoute, &body)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeRenderFailed, "build conversion request", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeRenderFailed, "conversion service unreachable", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeRenderFailed, "read conversion response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.Newf(dErrors.CodeRenderFailed,
			"conversion service returned status %d", resp.StatusCode).
			WithDetails(map[string]string{
				"status": fmt.Sprintf("%d", resp.StatusCode),
				"body":   string(payload),
			})
	}
	return payload, nil
}
