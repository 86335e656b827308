package core

// GraphConfig holds the connection settings of one graph instance.
type GraphConfig struct {
	// Backend is the registered backend name: sqlite, duckdb, postgres, neo4j.
	Backend string `koanf:"backend"`

	// Path is the database file for file-based backends (sqlite, duckdb).
	// Empty or ":memory:" opens an in-memory graph.
	Path string `koanf:"path"`

	// DSN is the connection string for postgres.
	DSN string `koanf:"dsn"`

	// Network graph databases (neo4j)
	URI      string `koanf:"uri"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	Database string `koanf:"database"`

	// Name labels the instance in logs ("buffer", "main").
	Name string `koanf:"-"`
}

// IsMemory reports whether a file-based backend should be opened in memory.
func (c GraphConfig) IsMemory() bool {
	return c.Path == "" || c.Path == ":memory:"
}
