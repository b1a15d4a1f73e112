// Package byterange разбирает заголовок Range (одиночный диапазон bytes=start-end)
// и считает окно выдачи относительно известной длины блоба.
package byterange

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sir_venger/audiostore/internal/models"
)

var rangeRe = regexp.MustCompile(`^bytes=(\d*)-(\d*)$`)

// Window — отдаваемый срез [Start, End] блоба длиной Total.
type Window struct {
	Start int64
	End   int64
	Total int64
}

// Length — число байт в окне.
func (w Window) Length() int64 {
	return w.End - w.Start + 1
}

// ContentRange форматирует значение заголовка Content-Range для ответа 206.
func (w Window) ContentRange() string {
	return fmt.Sprintf("bytes %d-%d/%d", w.Start, w.End, w.Total)
}

// Full возвращает окно на весь блоб; для пустого блоба ok=false.
func Full(total int64) (Window, bool) {
	if total <= 0 {
		return Window{Total: total}, false
	}

	return Window{Start: 0, End: total - 1, Total: total}, true
}

// Error несёт полную длину блоба, чтобы ответ 416 мог сообщить её клиенту.
type Error struct {
	Total int64
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v (total %d)", e.Err, e.Total)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unsatisfied — значение Content-Range для ответа 416.
func (e *Error) Unsatisfied() string {
	return fmt.Sprintf("bytes */%d", e.Total)
}

// Parse разбирает заголовок Range. Пустой start означает 0, пустой end — последний байт.
// Конец за пределами блоба обрезается до Total-1.
func Parse(header string, total int64) (Window, error) {
	m := rangeRe.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return Window{}, &Error{Total: total, Err: models.ErrRangeNotParseable}
	}

	var start int64
	if m[1] != "" {
		v, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return Window{}, &Error{Total: total, Err: models.ErrRangeNotSatisfiable}
			}
			return Window{}, &Error{Total: total, Err: models.ErrRangeNotParseable}
		}
		start = v
	}

	end := total - 1
	if m[2] != "" {
		v, err := strconv.ParseInt(m[2], 10, 64)
		switch {
		case err == nil:
			end = v
		case errors.Is(err, strconv.ErrRange):
			// конец больше int64 всё равно обрежется до последнего байта
		default:
			return Window{}, &Error{Total: total, Err: models.ErrRangeNotParseable}
		}
	}

	if start >= total {
		return Window{}, &Error{Total: total, Err: models.ErrRangeNotSatisfiable}
	}
	if start > end {
		return Window{}, &Error{Total: total, Err: models.ErrRangeNotParseable}
	}
	if end > total-1 {
		end = total - 1
	}

	return Window{Start: start, End: end, Total: total}, nil
}
