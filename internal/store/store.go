// Package store persists resources and visitor submissions.
//
// SQLStore runs on SQLite (the default, a file path or ":memory:") or on a
// hosted Postgres database selected by a postgres:// URL. CachedStore wraps
// any Store with a short-lived snapshot of the resource list, which is what
// every chapter page reads.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/FocuswithJustin/ReformedChapter/core/resource"
)

// Store is the persistence boundary used by the API, importer and CLI.
type Store interface {
	// List returns every resource in insertion order.
	List(ctx context.Context) ([]resource.Resource, error)
	// Count returns the number of stored resources.
	Count(ctx context.Context) (int, error)
	// Insert stores resources, skipping any whose fingerprint is already
	// stored, and returns how many rows were written.
	Insert(ctx context.Context, rs []resource.Resource) (int, error)
	// Existing reports which of the given fingerprints are already stored.
	Existing(ctx context.Context, fingerprints []string) (map[string]bool, error)

	AddSubmission(ctx context.Context, sub *Submission) error
	GetSubmission(ctx context.Context, id string) (*Submission, error)
	ListSubmissions(ctx context.Context, status SubmissionStatus) ([]Submission, error)
	// ApproveSubmission moves a pending submission into the resource table.
	ApproveSubmission(ctx context.Context, id string) (*Submission, error)

	Ping(ctx context.Context) error
	Close() error
}

// SubmissionStatus tracks a visitor submission through moderation.
type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
)

// Submission is a resource proposed by a visitor, held until approved.
type Submission struct {
	ID             string            `json:"id"`
	Resource       resource.Resource `json:"resource"`
	SubmitterName  string            `json:"submitter_name,omitempty"`
	SubmitterEmail string            `json:"submitter_email,omitempty"`
	Status         SubmissionStatus  `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
}

// Dialect names the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DefaultSQLitePath is used when no database URL is configured.
const DefaultSQLitePath = "reformed.db"

// ParseDSN picks the dialect for a DATABASE_URL value. postgres:// and
// postgresql:// URLs select Postgres; anything else is a SQLite path.
func ParseDSN(dsn string) (Dialect, string) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return DialectSQLite, DefaultSQLitePath
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres, dsn
	default:
		return DialectSQLite, dsn
	}
}
