package core

// AuthConfig holds the connection settings of the warehouse. Backend
// specific settings (Snowflake account, BigQuery credentials, DuckDB
// settings) live in Params and are decoded by the backend.
type AuthConfig struct {
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Username string            `koanf:"user"`
	Password string            `koanf:"password"`
	Path     string            `koanf:"path"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}
