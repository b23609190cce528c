package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cadenzahq/cadenza/pkg/persistence"
	"github.com/cadenzahq/cadenza/pkg/persistence/memory"
	"github.com/cadenzahq/cadenza/pkg/persistence/postgresql"
)

// NewPersistence builds the store from the database URL scheme. postgres://
// and postgresql:// select the PostgreSQL store; "memory" selects the
// in-memory store used in development and tests.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to initialize PostgreSQL persistence: %w", err))
		}

		return store
	case databaseURL == "memory":
		return memory.NewStore()
	default:
		panic("Unsupported database URL: " + databaseURL)
	}
}
