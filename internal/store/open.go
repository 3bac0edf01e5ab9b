package store

import (
	"fmt"
	"strings"

	"github.com/stellarlinkco/rlgym/internal/config"
)

// Open builds a Store from the storage config.
func Open(cfg config.StorageConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store: unknown storage type %q", cfg.Type)
	}
}
