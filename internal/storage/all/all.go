// Package all registers every storage backend. Binaries blank-import it so
// the factory registry is populated without each main wiring backends by hand.
package all

import (
	_ "ordersetl/internal/storage/mssql"
	_ "ordersetl/internal/storage/postgres"
	_ "ordersetl/internal/storage/sqlite"
)
