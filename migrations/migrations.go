// Package migrations содержит SQL миграции postgres схемы, встроенные в бинарник.
package migrations

import "embed"

// FS встроенные goose миграции
//
//go:embed *.sql
var FS embed.FS
