// Package httperrors переводит доменные ошибки в HTTP-ответы вида {"message": "..."}.
package httperrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

// StatusClientClosedRequest — нестандартный код nginx для оборванного клиентом запроса.
const StatusClientClosedRequest = 499

type body struct {
	Message string `json:"message"`
}

var table = []struct {
	err     error
	status  int
	message string
}{
	{models.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType, "Expected multipart/form-data"},
	{models.ErrUnsupportedAudioType, http.StatusBadRequest, "Unsupported audio type"},
	{models.ErrNoFileProvided, http.StatusBadRequest, "No file uploaded (expecting form-data field 'audio')"},
	{models.ErrMalformedBody, http.StatusBadRequest, "Malformed multipart body"},
	{models.ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "File too large"},
	{models.ErrClientAborted, StatusClientClosedRequest, "Client closed request during upload"},
	{models.ErrNotFound, http.StatusNotFound, "File not found"},
	{models.ErrInvalidID, http.StatusBadRequest, "Invalid id"},
	{models.ErrInvalidPayload, http.StatusBadRequest, "Invalid request body"},
	{models.ErrNoFieldsToUpdate, http.StatusBadRequest, "No fields to update"},
	{models.ErrRangeNotParseable, http.StatusRequestedRangeNotSatisfiable, "Range not parseable"},
	{models.ErrRangeNotSatisfiable, http.StatusRequestedRangeNotSatisfiable, "Range not satisfiable"},
	{models.ErrConflict, http.StatusConflict, "Already exists"},
	{models.ErrStoreIO, http.StatusInternalServerError, "Storage failure"},
}

// Status возвращает HTTP-статус и сообщение для ошибки.
func Status(err error) (int, string) {
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.status, e.message
		}
	}

	return http.StatusInternalServerError, "Internal server error"
}

// Write пишет единственный ответ с ошибкой. Для ошибок диапазона тело пустое,
// а Content-Range сообщает полную длину блоба.
func Write(w http.ResponseWriter, err error) {
	var rerr *byterange.Error
	if errors.As(err, &rerr) {
		w.Header().Set("Content-Range", rerr.Unsatisfied())
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	status, msg := Status(err)
	JSON(w, status, body{Message: msg})
}

// JSON пишет v со статусом status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
