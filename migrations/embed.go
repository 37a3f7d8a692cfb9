// Package migrations contains the goose SQL migrations of every storage backend.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed clickhouse/*.sql sqlite/*.sql
var FS embed.FS

// Dir returns the migrations of one backend ("clickhouse" or "sqlite")
func Dir(driver string) (fs.FS, error) {
	switch driver {
	case "clickhouse", "sqlite":
		return fs.Sub(FS, driver)
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driver)
	}
}
