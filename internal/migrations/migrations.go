// Package migrations хранит SQL-миграции goose для Postgres.
package migrations

import "embed"

// FS — встроенные файлы миграций; корень — текущий каталог.
//
//go:embed *.sql
var FS embed.FS
