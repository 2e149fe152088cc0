// Package migrations содержит SQL-миграции схемы jobs.
package migrations

import "embed"

// FS — встроенные файлы миграций golang-migrate.
//
//go:embed *.sql
var FS embed.FS
