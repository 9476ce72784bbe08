package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib" // Import the driver
	"github.com/sirupsen/logrus"
)

//go:embed schema.sql
var schema string

type Storage struct {
	db *sql.DB
}

func NewStorage(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) DB() *sql.DB { return s.db }

func (s *Storage) Close() error { return s.db.Close() }

// Migrate creates the tables the record sink writes to.
func (s *Storage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// WaitForDB opens url and pings it until the database answers, giving up
// after attempts tries.
func WaitForDB(ctx context.Context, url string, attempts int, wait time.Duration, log *logrus.Entry) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if attempts <= 0 {
		attempts = 1
	}
	for i := 1; ; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			log.Info("connected to database")
			return db, nil
		}
		if i >= attempts {
			break
		}
		log.WithError(err).WithField("attempt", i).Warn("waiting for database")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	db.Close()
	return nil, fmt.Errorf("database not reachable after %d attempts: %w", attempts, err)
}
