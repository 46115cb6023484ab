// Package config - defaults.go centralizes default values and magic numbers.
package config

import "time"

// Usage store drivers.
const (
	DriverDynamoDB = "dynamodb"
	DriverSQLite   = "sqlite"
)

// DefaultServerPort is the gateway listen port.
const DefaultServerPort = 8080

// DefaultServerReadTimeout bounds how long a client may take to send a request.
const DefaultServerReadTimeout = 30 * time.Second

// DefaultServerWriteTimeout for the HTTP server (safe for streaming).
const DefaultServerWriteTimeout = 10 * time.Minute

// DefaultUserMonthlyLimit caps invocations per user per calendar month.
const DefaultUserMonthlyLimit = 100

// DefaultGlobalMonthlyLimit caps invocations across all users per calendar month.
const DefaultGlobalMonthlyLimit = 2000

// DefaultRegion is the provider region when none is configured.
const DefaultRegion = "us-east-1"

// DefaultSystemPreamble is the system instruction sent with every model call.
const DefaultSystemPreamble = "You are a helpful bot."

// MaxRequestBodySize is the maximum allowed request body (1MB covers long
// conversation histories with headroom).
const MaxRequestBodySize = 1 * 1024 * 1024

// DefaultBufferSize is the standard I/O buffer size for stream reads.
const DefaultBufferSize = 4096
