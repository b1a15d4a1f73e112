// Package audioclient — HTTP-клиент публичного API аудиохранилища.
package audioclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/sir_venger/audiostore/internal/models"
)

// APIError — ответ сервера с кодом не из 2xx.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded %d", e.Status)
	}
	return fmt.Sprintf("server responded %d: %s", e.Status, e.Message)
}

type Client struct {
	base string
	http *http.Client
}

// New создаёт клиент; c == nil — http.DefaultClient.
func New(baseURL string, c *http.Client) *Client {
	if c == nil {
		c = http.DefaultClient
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), http: c}
}

// UploadRequest описывает отправляемый файл. Тело читается потоком.
type UploadRequest struct {
	Filename    string
	ContentType string
	Title       string
	Description string
	Body        io.Reader
}

type UploadResponse struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// Upload отправляет multipart-форму, не буферизуя файл: форма пишется в pipe параллельно с запросом.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (UploadResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, req))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/upload/audio", pr)
	if err != nil {
		pr.Close()
		return UploadResponse{}, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		pr.CloseWithError(err)
		return UploadResponse{}, err
	}
	defer resp.Body.Close()
	// сервер мог ответить, не дочитав тело
	pr.CloseWithError(io.ErrClosedPipe)

	if resp.StatusCode != http.StatusCreated {
		return UploadResponse{}, apiError(resp)
	}

	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return UploadResponse{}, fmt.Errorf("decode upload response: %w", err)
	}
	return out, nil
}

// writeForm пишет текстовые поля до файла, чтобы метаданные ушли вместе с блобом.
func writeForm(mw *multipart.Writer, req UploadRequest) error {
	for _, f := range []struct{ name, value string }{
		{"title", req.Title},
		{"description", req.Description},
	} {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return err
		}
	}

	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "audio",
		"filename": req.Filename,
	}))
	if req.ContentType != "" {
		h.Set("Content-Type", req.ContentType)
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, req.Body); err != nil {
		return err
	}

	return mw.Close()
}

// Content — открытый поток ответа. Body обязательно закрыть.
type Content struct {
	Body         io.ReadCloser
	Length       int64
	ContentType  string
	ContentRange string
	// Filename заполняется для Download из Content-Disposition.
	Filename string
	Partial  bool
}

// Stream открывает блоб; rangeHeader вида "bytes=0-99", пустой — весь блоб.
func (c *Client) Stream(ctx context.Context, id, rangeHeader string) (*Content, error) {
	h := http.Header{}
	if rangeHeader != "" {
		h.Set("Range", rangeHeader)
	}
	return c.open(ctx, "/api/files/"+url.PathEscape(id)+"/stream", h)
}

func (c *Client) Download(ctx context.Context, id string) (*Content, error) {
	return c.open(ctx, "/api/files/"+url.PathEscape(id)+"/download", nil)
}

func (c *Client) open(ctx context.Context, path string, h http.Header) (*Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range h {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}

	out := &Content{
		Body:         resp.Body,
		Length:       resp.ContentLength,
		ContentType:  resp.Header.Get("Content-Type"),
		ContentRange: resp.Header.Get("Content-Range"),
		Partial:      resp.StatusCode == http.StatusPartialContent,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		out.Filename = params["filename"]
	}

	return out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+"/api/files/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return apiError(resp)
	}
	return nil
}

// List ищет документы; limit <= 0 — значение сервера по умолчанию.
func (c *Client) List(ctx context.Context, q string, limit int) ([]models.Document, error) {
	v := url.Values{}
	if q != "" {
		v.Set("q", q)
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	u := c.base + "/api/files"
	if len(v) > 0 {
		u += "?" + v.Encode()
	}

	var out []models.Document
	if err := c.doJSON(ctx, http.MethodGet, u, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Patch меняет заголовок и/или описание документа.
func (c *Client) Patch(ctx context.Context, id string, patch models.DocumentPatch) (models.Document, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return models.Document{}, err
	}

	var out models.Document
	err = c.doJSON(ctx, http.MethodPatch, c.base+"/api/files/"+url.PathEscape(id), body, http.StatusOK, &out)
	return out, err
}

func (c *Client) doJSON(ctx context.Context, method, u string, body []byte, want int, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	e := &APIError{Status: resp.StatusCode}

	var body struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		e.Message = body.Message
	}
	return e
}
