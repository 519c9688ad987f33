package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/nurture/pkg/persistence"
	"github.com/dukex/nurture/pkg/persistence/memory"
	"github.com/dukex/nurture/pkg/persistence/postgresql"
	"github.com/dukex/nurture/pkg/persistence/redisqueue"
	"github.com/redis/go-redis/v9"
)

var supportedPersistenceProviders = []string{"memory", "postgres", "postgresql"}

// NewPersistence opens the store named by the URL scheme: postgres:// or memory://.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger.With("module", "postgresql"), databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	case "memory":
		store, err := memory.NewPersistence()
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database url %q, expected one of %s", databaseURL,
			strings.Join(supportedPersistenceProviders, ", "))
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, _ := strings.Cut(databaseURL, "://")

	for _, supported := range supportedPersistenceProviders {
		if provider == supported {
			return provider
		}
	}

	return ""
}

// JobStore is the job queue together with the connection it owns, if any.
type JobStore struct {
	persistence.JobRepository

	client *redis.Client
}

func (s *JobStore) Close() error {
	if s.client == nil {
		return nil
	}

	return s.client.Close()
}

// NewJobStore returns a redis-backed queue for redis:// URLs and the store's own job table
// otherwise.
func NewJobStore(ctx context.Context, logger *slog.Logger, jobStoreURL string, store persistence.Persistence) (*JobStore, error) {
	if !strings.HasPrefix(jobStoreURL, "redis://") && !strings.HasPrefix(jobStoreURL, "rediss://") {
		if jobStoreURL != "" {
			return nil, fmt.Errorf("unsupported job store url %q", jobStoreURL)
		}

		return &JobStore{JobRepository: store.JobRepository()}, nil
	}

	client, err := redisqueue.Connect(ctx, jobStoreURL)
	if err != nil {
		return nil, err
	}

	return &JobStore{
		JobRepository: redisqueue.NewJobRepository(client, logger.With("module", "redisqueue"), "nurture"),
		client:        client,
	}, nil
}
