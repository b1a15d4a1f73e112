package models

import "errors"

// Ошибки загрузки.
var (
	ErrUnsupportedMediaType = errors.New("expected multipart/form-data")
	ErrUnsupportedAudioType = errors.New("unsupported audio type")
	ErrNoFileProvided       = errors.New("no file provided")
	ErrMalformedBody        = errors.New("malformed multipart body")
	ErrPayloadTooLarge      = errors.New("file too large")
	ErrClientAborted        = errors.New("client closed request")
)

// Ошибки выдачи и работы с записями.
var (
	ErrNotFound            = errors.New("file not found")
	ErrInvalidID           = errors.New("invalid id")
	ErrInvalidPayload      = errors.New("invalid request body")
	ErrNoFieldsToUpdate    = errors.New("no fields to update")
	ErrRangeNotParseable   = errors.New("range not parseable")
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	ErrConflict            = errors.New("blob already exists")
	ErrStoreIO             = errors.New("storage failure")
)
