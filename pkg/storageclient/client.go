package storageclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
	"github.com/sir_venger/audiostore/pkg/storageproto"
)

// PutBlobRequest описывает потоковую запись блоба на storage-узел.
type PutBlobRequest struct {
	ID          models.BlobID
	Name        string
	ContentType string
	Metadata    models.BlobMetadata
	Body        io.Reader
	// Trailer можно дополнять, пока Body не вернул EOF.
	Trailer http.Header
}

type Client interface {
	// PutBlob Положить блоб в хранилище
	PutBlob(ctx context.Context, req PutBlobRequest) (models.BlobInfo, error)
	// GetBlob Достать блоб или его окно из хранилища
	GetBlob(ctx context.Context, id models.BlobID, w *byterange.Window) (io.ReadCloser, error)
	StatBlob(ctx context.Context, id models.BlobID) (models.BlobInfo, error)
	DeleteBlob(ctx context.Context, id models.BlobID) error
	Health(ctx context.Context) (storageproto.Health, error)
}

type httpClient struct {
	base string
	c    *http.Client
}

// New создаёт HTTP-клиент к одному storage-узлу.
func New(baseURL string, c *http.Client) Client {
	if c == nil {
		c = &http.Client{}
	}

	return &httpClient{
		base: strings.TrimRight(baseURL, "/"),
		c:    c,
	}
}

// PutBlob стримит тело чанками; итоговые метаданные уходят трейлером.
func (h *httpClient) PutBlob(ctx context.Context, req PutBlobRequest) (models.BlobInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, h.blobURL(req.ID), req.Body)
	if err != nil {
		return models.BlobInfo{}, err
	}
	httpReq.ContentLength = -1
	httpReq.Trailer = req.Trailer
	httpReq.Header.Set(storageproto.HeaderBlobName, req.Name)
	httpReq.Header.Set(storageproto.HeaderBlobContentType, req.ContentType)
	httpReq.Header.Set(storageproto.HeaderBlobMetadata, storageproto.EncodeMetadata(req.Metadata))

	resp, err := h.c.Do(httpReq)
	if err != nil {
		return models.BlobInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return models.BlobInfo{}, statusErr(http.MethodPut, resp)
	}

	var info models.BlobInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return models.BlobInfo{}, fmt.Errorf("decode put response: %w", err)
	}

	return info, nil
}

// GetBlob скачивает блоб (или окно) и возвращает поток с телом.
func (h *httpClient) GetBlob(ctx context.Context, id models.BlobID, w *byterange.Window) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.blobURL(id), nil)
	if err != nil {
		return nil, err
	}

	want := http.StatusOK
	if w != nil {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", w.Start, w.End))
		want = http.StatusPartialContent
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != want {
		defer resp.Body.Close()
		return nil, statusErr(http.MethodGet, resp)
	}

	return resp.Body, nil
}

func (h *httpClient) StatBlob(ctx context.Context, id models.BlobID) (models.BlobInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.blobURL(id), nil)
	if err != nil {
		return models.BlobInfo{}, err
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return models.BlobInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.BlobInfo{}, statusErr(http.MethodHead, resp)
	}

	return storageproto.DecodeInfo(resp.Header.Get(storageproto.HeaderBlobInfo))
}

func (h *httpClient) DeleteBlob(ctx context.Context, id models.BlobID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, h.blobURL(id), nil)
	if err != nil {
		return err
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return statusErr(http.MethodDelete, resp)
	}

	return nil
}

func (h *httpClient) Health(ctx context.Context) (storageproto.Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(storageproto.HealthPathFormat, h.base), nil)
	if err != nil {
		return storageproto.Health{}, err
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return storageproto.Health{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return storageproto.Health{}, statusErr(http.MethodGet, resp)
	}

	var out storageproto.Health
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return storageproto.Health{}, err
	}

	return out, nil
}

func (h *httpClient) blobURL(id models.BlobID) string {
	return fmt.Sprintf(storageproto.BlobPathFormat, h.base, id)
}

// statusErr переводит ответ узла в доменные ошибки.
func statusErr(method string, resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusConflict:
		return models.ErrConflict
	case http.StatusRequestedRangeNotSatisfiable:
		return &byterange.Error{Total: unsatisfiedTotal(resp.Header.Get("Content-Range")), Err: models.ErrRangeNotSatisfiable}
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: storage %s failed: %s %s", models.ErrStoreIO, method, resp.Status, strings.TrimSpace(string(msg)))
}

// unsatisfiedTotal достаёт N из "bytes */N".
func unsatisfiedTotal(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimPrefix(v, "bytes */"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
