package audiosvc

import (
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\-_.]+`)

// safeName оставляет от имени клиента только базовое имя из безопасных символов.
func safeName(original string) string {
	base := path.Base(strings.ReplaceAll(original, `\`, "/"))
	name := unsafeNameChars.ReplaceAllString(base, "_")
	switch name {
	case "", ".", "..", "/":
		return "upload"
	}
	return name
}

// storageName: <unixMillis>-<6 hex>-<safe name>. Уникальность без обращения к хранилищу.
func storageName(now time.Time, original string) string {
	token := uuid.New()
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), hex.EncodeToString(token[:3]), safeName(original))
}
