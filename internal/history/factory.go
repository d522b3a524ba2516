package history

import (
	"context"
	"fmt"
	"strings"
)

// NewStore picks a backend by driver name; an empty driver means memory.
func NewStore(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "postgres", "postgresql":
		return NewPostgresStore(ctx, dsn)
	case "sqlite":
		if strings.TrimSpace(dsn) == "" {
			dsn = "data/calls.db"
		}
		return NewSQLiteStore(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown history driver %q", driver)
}
