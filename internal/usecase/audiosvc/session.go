package audiosvc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
)

type sessionState int

const (
	stateAwaitingPart sessionState = iota
	stateStreamingField
	stateStreamingFile
	stateTerminal
)

func (st sessionState) String() string {
	switch st {
	case stateAwaitingPart:
		return "awaiting_part"
	case stateStreamingField:
		return "streaming_field"
	case stateStreamingFile:
		return "streaming_file"
	default:
		return "terminal"
	}
}

// session — состояние одной загрузки. Части читаются по одной через NextPart;
// единственный конкурентный участник — наблюдатель за отменой ctx.
type session struct {
	ctx context.Context
	svc *Audio
	mr  *multipart.Reader
	log zerolog.Logger

	state        sessionState
	fileReceived bool
	fields       int
	title        *string
	description  *string
	result       models.UploadResult

	mu   sync.Mutex
	sink blobstore.Sink

	// responded — слот терминального исхода: выигрывает первый CompareAndSwap.
	responded atomic.Bool
}

func newSession(ctx context.Context, svc *Audio, mr *multipart.Reader) *session {
	return &session{
		ctx: ctx,
		svc: svc,
		mr:  mr,
		log: svc.Log.With().Str("component", "upload").Logger(),
	}
}

func (s *session) claim() bool {
	return s.responded.CompareAndSwap(false, true)
}

// onDisconnect вызывается из context.AfterFunc.
func (s *session) onDisconnect() {
	if !s.claim() {
		return
	}

	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		_ = sink.Abort()
	}

	s.log.Debug().Msg("client went away, upload aborted")
}

func (s *session) run() (models.UploadResult, error) {
	for {
		s.state = stateAwaitingPart
		part, err := s.mr.NextPart()
		// NextPart оборачивает io.EOF обрезанного тела, чистый конец — только голый io.EOF.
		if err == io.EOF {
			return s.finish()
		}
		if err != nil {
			return s.fail(s.classify(err))
		}

		err = s.handlePart(part)
		_ = part.Close()
		if err != nil {
			return s.fail(err)
		}
	}
}

// nextState — переход из AwaitingPart по заголовкам очередной части.
// Лишние файловые части оставляют сессию в AwaitingPart и сливаются.
func (s *session) nextState(p *multipart.Part) sessionState {
	switch {
	case p.FileName() == "":
		return stateStreamingField
	case p.FormName() == audioField && !s.fileReceived:
		return stateStreamingFile
	default:
		return stateAwaitingPart
	}
}

func (s *session) handlePart(p *multipart.Part) error {
	s.state = s.nextState(p)

	switch s.state {
	case stateStreamingField:
		return s.readField(p)
	case stateStreamingFile:
		s.fileReceived = true
		return s.streamFile(p)
	default:
		s.log.Debug().Str("field", p.FormName()).Msg("extra file part drained")
		return s.drain(p, -1)
	}
}

// readField запоминает первые title/description; значение длиннее лимита обрезается.
func (s *session) readField(p *multipart.Part) error {
	s.fields++
	if s.fields > s.svc.Limits.MaxFields {
		return s.drain(p, -1)
	}

	b, err := io.ReadAll(io.LimitReader(p, s.svc.Limits.MaxFieldBytes))
	if err != nil {
		return s.classify(err)
	}
	if err := s.drain(p, -1); err != nil {
		return err
	}

	v := string(b)
	switch p.FormName() {
	case titleField:
		if s.title == nil {
			s.title = &v
		}
	case descriptionField:
		if s.description == nil {
			s.description = &v
		}
	}

	return nil
}

func (s *session) streamFile(p *multipart.Part) error {
	br := bufio.NewReaderSize(p, sniffLen)
	original := p.FileName()

	contentType := s.svc.resolveType(p.Header.Get("Content-Type"), original)
	detected, err := sniffType(br)
	if err != nil {
		return s.classify(err)
	}
	if detected != nil && contentType != "" && !detected.Is(contentType) && !detected.Is(genericType) {
		s.log.Warn().
			Str("content_type", contentType).
			Str("detected", detected.String()).
			Str("filename", original).
			Msg("file signature does not match its type")
	}
	if contentType == "" {
		if err := s.drain(br, s.svc.Limits.MaxFileSize); err != nil && !errors.Is(err, models.ErrPayloadTooLarge) {
			return err
		}
		return models.ErrUnsupportedAudioType
	}

	filename := storageName(s.svc.Now(), original)
	md := s.metadata(original)
	sink, err := s.svc.Store.OpenWrite(s.ctx, filename, blobstore.WriteOptions{
		ContentType: contentType,
		Metadata:    md,
	})
	if err != nil {
		if s.ctx.Err() != nil {
			return models.ErrClientAborted
		}
		return storeErr("open sink", err)
	}

	s.mu.Lock()
	s.sink = sink
	s.mu.Unlock()

	n, err := s.copyLimited(sink, br)
	if err != nil {
		return err
	}

	s.result = models.UploadResult{
		ID:          sink.ID(),
		Filename:    filename,
		ContentType: contentType,
		Length:      n,
		Metadata:    md,
	}

	return nil
}

// copyLimited копирует через фиксированный буфер и останавливается до записи байта сверх лимита.
func (s *session) copyLimited(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, copyBufferSize)
	limit := s.svc.Limits.MaxFileSize

	var written int64
	for {
		if s.responded.Load() {
			return written, models.ErrClientAborted
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			if written+int64(n) > limit {
				return written, models.ErrPayloadTooLarge
			}

			w, werr := dst.Write(buf[:n])
			written += int64(w)
			if werr != nil {
				if errors.Is(werr, blobstore.ErrSinkAborted) {
					return written, models.ErrClientAborted
				}
				return written, storeErr("write", werr)
			}
		}

		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, s.classify(rerr)
		}
	}
}

// drain дочитывает часть в никуда. limit < 0 — без ограничения.
func (s *session) drain(r io.Reader, limit int64) error {
	buf := make([]byte, copyBufferSize)
	if limit < 0 {
		if _, err := io.CopyBuffer(io.Discard, r, buf); err != nil {
			return s.classify(err)
		}
		return nil
	}

	n, err := io.CopyBuffer(io.Discard, io.LimitReader(r, limit+1), buf)
	if err != nil {
		return s.classify(err)
	}
	if n > limit {
		return models.ErrPayloadTooLarge
	}

	return nil
}

// finish — тело закончилось: фиксируем блоб с метаданными, пришедшими к этому моменту.
func (s *session) finish() (models.UploadResult, error) {
	s.state = stateTerminal

	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()

	if sink == nil {
		if !s.claim() {
			return models.UploadResult{}, models.ErrClientAborted
		}
		return models.UploadResult{}, models.ErrNoFileProvided
	}

	md := s.metadata(s.result.Metadata.OriginalName)
	sink.SetMetadata(md)
	if err := sink.Close(); err != nil {
		if errors.Is(err, blobstore.ErrSinkAborted) || !s.claim() {
			return models.UploadResult{}, models.ErrClientAborted
		}
		return models.UploadResult{}, storeErr("commit", err)
	}

	if !s.claim() {
		// Клиент ушёл в момент коммита: блоб никто не получит.
		if err := s.svc.Store.Delete(context.WithoutCancel(s.ctx), sink.ID()); err != nil {
			s.log.Warn().Err(err).Stringer("id", sink.ID()).Msg("delete of abandoned blob failed")
		}
		return models.UploadResult{}, models.ErrClientAborted
	}

	s.result.Metadata = md
	s.result.UploadedAt = s.svc.Now().UTC()

	return s.result, nil
}

// fail отбрасывает открытый синк и пытается занять слот ответа ошибкой err.
func (s *session) fail(err error) (models.UploadResult, error) {
	s.log.Debug().Err(err).Stringer("state", s.state).Msg("upload failed")
	s.state = stateTerminal

	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		_ = sink.Abort()
	}

	if !s.claim() {
		return models.UploadResult{}, models.ErrClientAborted
	}

	return models.UploadResult{}, err
}

// classify различает обрыв соединения и испорченное тело.
func (s *session) classify(err error) error {
	switch {
	case errors.Is(err, models.ErrClientAborted), errors.Is(err, models.ErrPayloadTooLarge):
		return err
	case s.ctx.Err() != nil, errors.Is(err, io.ErrUnexpectedEOF):
		return models.ErrClientAborted
	default:
		return fmt.Errorf("%w: %v", models.ErrMalformedBody, err)
	}
}

func (s *session) metadata(original string) models.BlobMetadata {
	md := models.BlobMetadata{OriginalName: original}
	if s.title != nil {
		md.Title = *s.title
	}
	if s.description != nil {
		md.Description = *s.description
	}

	return md
}
