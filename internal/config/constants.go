package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 120 * time.Second
	ServerReadTimeout     = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const HousekeepingJobInterval = 5 * time.Minute

// Proctor events per session per minute
const DefaultProctorRateLimitPerMin = 120

// Upper bound on how long a speech submission may hold the per-session lock
const SubmissionLockTTL = 3 * time.Minute

// Earlier turns passed to the evaluator as context
const EvaluatorHistoryLimit = 5
