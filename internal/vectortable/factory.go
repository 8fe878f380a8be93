// Engine selection for vector table storage.
package vectortable

import "fmt"

// Engine identifies a storage engine for vector tables.
type Engine string

const (
	// EngineSQLite stores tables durably in one SQLite database file.
	EngineSQLite Engine = "sqlite"
	// EngineMemory keeps tables in process memory. Ephemeral; used in tests
	// and when no writable database location exists.
	EngineMemory Engine = "memory"
)

// NewOpener creates a table opener for the given engine. dbPath is only used
// by the sqlite engine.
func NewOpener(engine string, dbPath string) (Opener, error) {
	switch Engine(engine) {
	case EngineSQLite, "":
		return OpenSQLite(dbPath)
	case EngineMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown vector table engine: %s (supported: sqlite, memory)", engine)
	}
}
