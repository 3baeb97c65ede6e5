// Package parser talks to the document parsing service, which turns an
// uploaded timetable or enrollment document into structured JSON.
package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

// Document is a file handed to the parser.
type Document struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// Client parses section documents.
type Client interface {
	Parse(ctx context.Context, t models.FileType, doc Document) (json.RawMessage, error)
	Health(ctx context.Context) error
}

// HTTPClient is the Client backed by the parsing service's HTTP API.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  zerolog.Logger
}

// NewHTTPClient creates a client for the service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "parser").Logger(),
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Detail  string          `json:"detail"`
	Data    json.RawMessage `json:"data"`
}

func endpoint(t models.FileType) string {
	if t == models.FileTypeEnrollment {
		return "/parse-enrollment"
	}
	return "/parse-timetable"
}

// Parse uploads doc as multipart field "file" and returns the service's
// data payload. Transport failures, non-2xx answers and status "error"
// all come back wrapped in apperrors.ErrParseFailed.
func (c *HTTPClient) Parse(ctx context.Context, t models.FileType, doc Document) (json.RawMessage, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Filename))
	if doc.ContentType != "" {
		h.Set("Content-Type", doc.ContentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, doc.Content); err != nil {
		return nil, fmt.Errorf("failed to buffer document: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint(t), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("fileType", string(t)).Msg("Parsing service unreachable")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrParseFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", apperrors.ErrParseFailed, err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(raw))
		if decodeErr == nil {
			msg = firstNonEmpty(env.Message, env.Detail, msg)
		}
		c.logger.Warn().Int("status", resp.StatusCode).Str("fileType", string(t)).Str("message", msg).Msg("Parsing service rejected document")
		return nil, fmt.Errorf("%w: %s", apperrors.ErrParseFailed, firstNonEmpty(msg, resp.Status))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", apperrors.ErrParseFailed, decodeErr)
	}
	if env.Status == "error" {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrParseFailed, firstNonEmpty(env.Message, "unknown parser error"))
	}
	if len(env.Data) == 0 {
		return json.RawMessage("null"), nil
	}
	return env.Data, nil
}

// Health reports whether the service answers its readiness probe.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("parser health: %w", err)
	}
	if resp.StatusCode != http.StatusOK || env.Status != "ok" {
		return errors.New("parser health: service not ready")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
