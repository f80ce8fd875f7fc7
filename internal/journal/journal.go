package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/fsload/internal/retry"
	"github.com/vvka-141/fsload/pkg/fsload"
)

// AuthMethod selects how the journal authenticates.
type AuthMethod string

const (
	AuthStandard AuthMethod = "standard"
	AuthAWS      AuthMethod = "aws"
	AuthAzure    AuthMethod = "azure"
)

// ParseAuthMethod parses a configured auth method; empty means standard.
func ParseAuthMethod(s string) (AuthMethod, error) {
	switch m := AuthMethod(strings.ToLower(s)); m {
	case "", AuthStandard:
		return AuthStandard, nil
	case AuthAWS, AuthAzure:
		return m, nil
	default:
		return "", fmt.Errorf("unknown journal auth method %q: %w", s, fsload.ErrInvalidConfig)
	}
}

// Config configures the journal connection.
type Config struct {
	ConnectionString string
	AuthMethod       AuthMethod

	AWSRegion string

	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
}

// Status values stored in the journal.
const (
	StatusCompleted = "completed"
)

// Record is one completed load.
type Record struct {
	LoadID      string
	SchemaName  string
	DatasetName string
	Status      string
	RemoteRoot  string
	InsertedAt  time.Time
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS fsload_loads (
    load_id      text        NOT NULL,
    schema_name  text        NOT NULL,
    dataset_name text        NOT NULL,
    status       text        NOT NULL,
    remote_root  text        NOT NULL,
    inserted_at  timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (load_id, schema_name, dataset_name)
)`

const insertSQL = `
INSERT INTO fsload_loads (load_id, schema_name, dataset_name, status, remote_root)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (load_id, schema_name, dataset_name) DO NOTHING`

const existsSQL = `
SELECT EXISTS (
    SELECT 1 FROM fsload_loads
    WHERE load_id = $1 AND schema_name = $2 AND dataset_name = $3
)`

const recentSQL = `
SELECT load_id, schema_name, dataset_name, status, remote_root, inserted_at
FROM fsload_loads
WHERE dataset_name = $1
ORDER BY inserted_at DESC, load_id DESC
LIMIT $2`

// Journal writes and queries load records.
type Journal struct {
	pool     *pgxpool.Pool
	executor *retry.Executor
	logger   fsload.Logger
}

// Connect opens a pool, verifies it with a ping and creates the journal
// table when missing. Transient connection failures are retried.
func Connect(ctx context.Context, cfg Config, logger fsload.Logger) (*Journal, error) {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("journal connection string is required: %w", fsload.ErrInvalidConfig)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("invalid journal connection string: %v: %w", err, fsload.ErrInvalidConfig)
	}
	poolConfig.MaxConns = 4

	provider, err := tokenProviderFor(cfg)
	if err != nil {
		return nil, err
	}
	if provider != nil {
		logger.Verbose("Journal authenticates with %s", provider)
		poolConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
			token, expiresOn, err := provider.GetToken(ctx, cc.Host, cc.Port, cc.User)
			if err != nil {
				return err
			}
			if time.Until(expiresOn) < 5*time.Minute {
				logger.Warn("%s token expires in %v", provider, time.Until(expiresOn).Round(time.Second))
			}
			cc.Password = token
			return nil
		}
	}

	executor := newExecutor(logger)

	var pool *pgxpool.Pool
	err = executor.Execute(ctx, func(ctx context.Context, attempt int) error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to journal at %s:%d: %w", poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port, err)
	}

	j := &Journal{pool: pool, executor: executor, logger: logger}
	if err := j.ensureTable(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return j, nil
}

func newExecutor(logger fsload.Logger) *retry.Executor {
	strategy := retry.NewExponentialBackoff(fsload.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(fsload.DefaultRetryInitialDelay),
		retry.WithMaxDelay(fsload.DefaultRetryMaxDelay),
	)
	return retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(), strategy).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Verbose("Journal attempt %d failed, retrying in %v: %v", attempt+1, delay, err)
		})
}

func tokenProviderFor(cfg Config) (TokenProvider, error) {
	switch cfg.AuthMethod {
	case "", AuthStandard:
		return nil, nil
	case AuthAWS:
		return NewAWSIAMTokenProvider(cfg.AWSRegion)
	case AuthAzure:
		return NewAzureTokenProvider(cfg.AzureTenantID, cfg.AzureClientID, cfg.AzureClientSecret)
	default:
		return nil, fmt.Errorf("unknown journal auth method %q: %w", cfg.AuthMethod, fsload.ErrInvalidConfig)
	}
}

func (j *Journal) ensureTable(ctx context.Context) error {
	return j.executor.Execute(ctx, func(ctx context.Context, _ int) error {
		if _, err := j.pool.Exec(ctx, createTableSQL); err != nil {
			return fmt.Errorf("failed to create journal table: %w", err)
		}
		return nil
	})
}

// Record stores a completed load. Recording the same load twice is a no-op.
func (j *Journal) Record(ctx context.Context, r Record) error {
	if r.Status == "" {
		r.Status = StatusCompleted
	}
	return j.executor.Execute(ctx, func(ctx context.Context, _ int) error {
		_, err := j.pool.Exec(ctx, insertSQL, r.LoadID, r.SchemaName, r.DatasetName, r.Status, r.RemoteRoot)
		if err != nil {
			return fmt.Errorf("failed to record load %s: %w", r.LoadID, err)
		}
		return nil
	})
}

// IsRecorded reports whether a load of schema into dataset was recorded.
func (j *Journal) IsRecorded(ctx context.Context, loadID, schema, dataset string) (bool, error) {
	var exists bool
	err := j.executor.Execute(ctx, func(ctx context.Context, _ int) error {
		return j.pool.QueryRow(ctx, existsSQL, loadID, schema, dataset).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to query journal: %w", err)
	}
	return exists, nil
}

// Recent returns the latest records of a dataset, newest first.
func (j *Journal) Recent(ctx context.Context, dataset string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.pool.Query(ctx, recentSQL, dataset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		err := row.Scan(&r.LoadID, &r.SchemaName, &r.DatasetName, &r.Status, &r.RemoteRoot, &r.InsertedAt)
		return r, err
	})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return records, nil
}

// Close releases the pool.
func (j *Journal) Close() {
	j.pool.Close()
}
