// Package migrations embeds the SQL schema migrations so the binaries can apply them
// without a migrations directory on disk.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql pair
//
//go:embed *.sql
var FS embed.FS
