package config

import (
	"fmt"
	"time"
)

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment
	// when the postgres store is used.
	DefaultDatabaseURL = ""

	// DefaultJWTIssuer is the issuer written into and required on bearer tokens.
	DefaultJWTIssuer = "tasktrack"

	// DefaultTokenTTL is the lifetime of tokens minted by issue-token.
	DefaultTokenTTL = 24 * time.Hour

	// DefaultTextgenProvider is the model backend used for assist endpoints.
	DefaultTextgenProvider = "anthropic"

	// DefaultLogFormat is the log handler format.
	DefaultLogFormat = "json"
)

// StoreKind selects the task store backend.
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreMemory   StoreKind = "memory"
)

// DefaultStore is the task store used when none is configured.
const DefaultStore = StorePostgres

// ParseStoreKind validates a store name.
func ParseStoreKind(s string) (StoreKind, error) {
	switch StoreKind(s) {
	case StorePostgres, StoreMemory:
		return StoreKind(s), nil
	default:
		return "", fmt.Errorf("unknown store %q (want %s or %s)", s, StorePostgres, StoreMemory)
	}
}
