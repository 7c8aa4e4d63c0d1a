// Package migrations embeds the versioned schema for every supported dialect.
// Each dialect lives in its own directory named after db.Dialect.String().
package migrations

import "embed"

//go:embed postgres/*.sql mysql/*.sql sqlite3/*.sql
var FS embed.FS
