package daemon

// StartOptions configures the daemon (home, port, dev mode, DB, cache, metrics).
type StartOptions struct {
	Home      string
	Port      int
	Dev       bool
	PprofAddr string
	DBDriver  string // "sqlite" (default) or "postgres"
	DBURL     string // for postgres: connection string (or DATABASE_URL env)
	RedisAddr string // Redis address for the interaction cache (or TASKD_REDIS_ADDR env)
	// EnableOtel enables OpenTelemetry metrics (Prometheus exporter + HTTP instrumentation).
	EnableOtel bool
}

// StatusInfo is the result of Status (running or not, PID, listen addr).
type StatusInfo struct {
	Running bool
	PID     int
	Addr    string
}
