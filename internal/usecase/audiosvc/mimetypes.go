package audiosvc

import (
	"bufio"
	"errors"
	"io"
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

const (
	sniffLen    = 3072
	genericType = "application/octet-stream"
)

// Расширения, которых может не быть в системной таблице mime.types.
var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".weba": "audio/webm",
}

func init() {
	for ext, t := range audioExtensions {
		_ = mime.AddExtensionType(ext, t)
	}
}

// resolveType выбирает тип файла: заявленный клиентом, иначе по расширению имени.
// Пустая строка — ни один из них не разрешён.
func (s *Audio) resolveType(declared, filename string) string {
	if t := mediaType(declared); t != "" && t != genericType && s.isAllowed(t) {
		return t
	}

	if t := mediaType(mime.TypeByExtension(filepath.Ext(filename))); t != "" && s.isAllowed(t) {
		return t
	}

	return ""
}

// sniffType определяет тип по первым байтам части, не продвигая br.
// На решение о приёме файла не влияет, используется только в логах.
func sniffType(br *bufio.Reader) (*mimetype.MIME, error) {
	head, err := br.Peek(sniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if len(head) == 0 {
		return nil, nil
	}

	return mimetype.Detect(head), nil
}

// mediaType отбрасывает параметры ("; charset=...") и приводит тип к нижнему регистру.
func mediaType(v string) string {
	if v == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return ""
	}
	return normalizeType(mt)
}
