package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/resource"
	"github.com/FocuswithJustin/ReformedChapter/core/sqlite"
)

func init() {
	// sqlx only knows "sqlite3"; the pure Go driver registers as "sqlite".
	sqlx.BindDriver(sqlite.DriverName(), sqlx.QUESTION)
}

// SQLStore implements Store on database/sql through sqlx.
type SQLStore struct {
	db      *sqlx.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects to dsn, chosen by ParseDSN, and migrates the schema.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	dialect, target := ParseDSN(dsn)

	var db *sqlx.DB
	switch dialect {
	case DialectPostgres:
		var err error
		db, err = sqlx.ConnectContext(ctx, "postgres", target)
		if err != nil {
			return nil, errors.NewUpstream("postgres", "connect", err)
		}
	default:
		raw, err := sqlite.Open(target)
		if err != nil {
			return nil, err
		}
		db = sqlx.NewDb(raw, sqlite.DriverName())
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "open sqlite %s", target)
		}
	}

	s := NewSQLStore(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an existing connection. The caller is responsible for
// calling Migrate.
func NewSQLStore(db *sqlx.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Dialect returns the backend in use.
func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

type resourceRow struct {
	ID                 int64  `db:"id"`
	Book               string `db:"book"`
	Chapter            *int   `db:"chapter"`
	ChapterEnd         *int   `db:"chapter_end"`
	VerseStart         *int   `db:"verse_start"`
	VerseEnd           *int   `db:"verse_end"`
	SecondaryScripture string `db:"secondary_scripture"`
	Type               string `db:"type"`
	Title              string `db:"title"`
	Author             string `db:"author"`
	URL                string `db:"url"`
	Price              string `db:"price"`
	PublishedYear      *int   `db:"published_year"`
	Description        string `db:"description"`
	Image              string `db:"image"`
	Fingerprint        string `db:"fingerprint"`
	CreatedAt          int64  `db:"created_at"`
}

func rowFromResource(r resource.Resource, now time.Time) resourceRow {
	created := r.CreatedAt
	if created.IsZero() {
		created = now
	}
	fp := r.Fingerprint
	if fp == "" {
		fp = r.ComputeFingerprint()
	}
	return resourceRow{
		Book:               r.Book,
		Chapter:            r.Chapter,
		ChapterEnd:         r.ChapterEnd,
		VerseStart:         r.VerseStart,
		VerseEnd:           r.VerseEnd,
		SecondaryScripture: r.SecondaryScripture,
		Type:               r.Type,
		Title:              r.Title,
		Author:             r.Author,
		URL:                r.URL,
		Price:              r.Price,
		PublishedYear:      r.PublishedYear,
		Description:        r.Description,
		Image:              r.Image,
		Fingerprint:        fp,
		CreatedAt:          created.Unix(),
	}
}

func (row resourceRow) toResource() resource.Resource {
	return resource.Resource{
		ID:                 row.ID,
		Book:               row.Book,
		Chapter:            row.Chapter,
		ChapterEnd:         row.ChapterEnd,
		VerseStart:         row.VerseStart,
		VerseEnd:           row.VerseEnd,
		SecondaryScripture: row.SecondaryScripture,
		Type:               row.Type,
		Title:              row.Title,
		Author:             row.Author,
		URL:                row.URL,
		Price:              row.Price,
		PublishedYear:      row.PublishedYear,
		Description:        row.Description,
		Image:              row.Image,
		Fingerprint:        row.Fingerprint,
		CreatedAt:          time.Unix(row.CreatedAt, 0).UTC(),
	}
}

const selectResources = `SELECT id, book, chapter, chapter_end, verse_start, verse_end,
	secondary_scripture, type, title, author, url, price, published_year,
	description, image, fingerprint, created_at
	FROM resources ORDER BY id`

const insertResource = `INSERT INTO resources (book, chapter, chapter_end, verse_start, verse_end,
	secondary_scripture, type, title, author, url, price, published_year,
	description, image, fingerprint, created_at)
	VALUES (:book, :chapter, :chapter_end, :verse_start, :verse_end,
	:secondary_scripture, :type, :title, :author, :url, :price, :published_year,
	:description, :image, :fingerprint, :created_at)
	ON CONFLICT (fingerprint) DO NOTHING`

// List returns every resource ordered by id.
func (s *SQLStore) List(ctx context.Context) ([]resource.Resource, error) {
	var rows []resourceRow
	if err := s.db.SelectContext(ctx, &rows, selectResources); err != nil {
		return nil, s.upstream("list resources", err)
	}
	out := make([]resource.Resource, len(rows))
	for i, row := range rows {
		out[i] = row.toResource()
	}
	return out, nil
}

// Count returns the number of stored resources.
func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM resources"); err != nil {
		return 0, s.upstream("count resources", err)
	}
	return n, nil
}

// Insert writes rs in one transaction. Rows whose fingerprint already
// exists are skipped.
func (s *SQLStore) Insert(ctx context.Context, rs []resource.Resource) (int, error) {
	if len(rs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, s.upstream("begin transaction", err)
	}
	defer tx.Rollback()

	inserted, err := s.insertTx(ctx, tx, rs)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, s.upstream("commit", err)
	}
	return inserted, nil
}

func (s *SQLStore) insertTx(ctx context.Context, tx *sqlx.Tx, rs []resource.Resource) (int, error) {
	now := s.now()
	inserted := 0
	for _, r := range rs {
		res, err := tx.NamedExecContext(ctx, insertResource, rowFromResource(r, now))
		if err != nil {
			return 0, s.upstream("insert resource", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, s.upstream("insert resource", err)
		}
		inserted += int(n)
	}
	return inserted, nil
}

// maxLookupParams bounds the bound parameters in one IN query. SQLite
// rejects statements with more than 32766 variables.
const maxLookupParams = 500

// Existing reports which fingerprints are already stored.
func (s *SQLStore) Existing(ctx context.Context, fingerprints []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(fingerprints) == 0 {
		return found, nil
	}

	var stored []string
	switch s.dialect {
	case DialectPostgres:
		err := s.db.SelectContext(ctx, &stored,
			`SELECT fingerprint FROM resources WHERE fingerprint = ANY($1)`, pq.Array(fingerprints))
		if err != nil {
			return nil, s.upstream("lookup fingerprints", err)
		}
	default:
		for start := 0; start < len(fingerprints); start += maxLookupParams {
			end := min(start+maxLookupParams, len(fingerprints))
			query, args, err := sqlx.In(`SELECT fingerprint FROM resources WHERE fingerprint IN (?)`, fingerprints[start:end])
			if err != nil {
				return nil, errors.Wrap(err, "build fingerprint query")
			}
			var chunk []string
			if err := s.db.SelectContext(ctx, &chunk, s.db.Rebind(query), args...); err != nil {
				return nil, s.upstream("lookup fingerprints", err)
			}
			stored = append(stored, chunk...)
		}
	}

	for _, fp := range stored {
		found[fp] = true
	}
	return found, nil
}

type submissionRow struct {
	ID             string `db:"id"`
	Payload        string `db:"payload"`
	SubmitterName  string `db:"submitter_name"`
	SubmitterEmail string `db:"submitter_email"`
	Status         string `db:"status"`
	CreatedAt      int64  `db:"created_at"`
}

func (row submissionRow) toSubmission() (Submission, error) {
	sub := Submission{
		ID:             row.ID,
		SubmitterName:  row.SubmitterName,
		SubmitterEmail: row.SubmitterEmail,
		Status:         SubmissionStatus(row.Status),
		CreatedAt:      time.Unix(row.CreatedAt, 0).UTC(),
	}
	if err := json.Unmarshal([]byte(row.Payload), &sub.Resource); err != nil {
		return sub, errors.NewParse("JSON", "submission "+row.ID, err)
	}
	return sub, nil
}

// AddSubmission stores a pending submission. ID, Status and CreatedAt must
// already be set.
func (s *SQLStore) AddSubmission(ctx context.Context, sub *Submission) error {
	if sub.ID == "" {
		return errors.NewValidation("id", "must not be empty")
	}
	payload, err := json.Marshal(sub.Resource)
	if err != nil {
		return errors.Wrap(err, "encode submission")
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	if sub.Status == "" {
		sub.Status = SubmissionPending
	}

	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO submissions (id, payload, submitter_name, submitter_email, status, created_at)
		VALUES (:id, :payload, :submitter_name, :submitter_email, :status, :created_at)`,
		submissionRow{
			ID:             sub.ID,
			Payload:        string(payload),
			SubmitterName:  sub.SubmitterName,
			SubmitterEmail: sub.SubmitterEmail,
			Status:         string(sub.Status),
			CreatedAt:      sub.CreatedAt.Unix(),
		})
	if err != nil {
		return s.upstream("insert submission", err)
	}
	return nil
}

const selectSubmissions = `SELECT id, payload, submitter_name, submitter_email, status, created_at FROM submissions`

// GetSubmission returns the submission with id.
func (s *SQLStore) GetSubmission(ctx context.Context, id string) (*Submission, error) {
	return s.getSubmission(ctx, s.db, id)
}

func (s *SQLStore) getSubmission(ctx context.Context, q sqlx.QueryerContext, id string) (*Submission, error) {
	var row submissionRow
	err := sqlx.GetContext(ctx, q, &row, s.db.Rebind(selectSubmissions+` WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("submission", id)
	}
	if err != nil {
		return nil, s.upstream("get submission", err)
	}
	sub, err := row.toSubmission()
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubmissions returns submissions oldest first. An empty status lists
// every submission.
func (s *SQLStore) ListSubmissions(ctx context.Context, status SubmissionStatus) ([]Submission, error) {
	var rows []submissionRow
	var err error
	if status == "" {
		err = s.db.SelectContext(ctx, &rows, selectSubmissions+` ORDER BY created_at, id`)
	} else {
		err = s.db.SelectContext(ctx, &rows,
			s.db.Rebind(selectSubmissions+` WHERE status = ? ORDER BY created_at, id`), string(status))
	}
	if err != nil {
		return nil, s.upstream("list submissions", err)
	}

	out := make([]Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := row.toSubmission()
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, nil
}

// ApproveSubmission inserts the submitted resource and marks the
// submission approved. Approving twice is a validation error.
func (s *SQLStore) ApproveSubmission(ctx context.Context, id string) (*Submission, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, s.upstream("begin transaction", err)
	}
	defer tx.Rollback()

	sub, err := s.getSubmission(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != SubmissionPending {
		return nil, &errors.ValidationError{Field: "status", Value: string(sub.Status), Message: "submission is not pending"}
	}

	if _, err := s.insertTx(ctx, tx, []resource.Resource{sub.Resource}); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE submissions SET status = ? WHERE id = ?`),
		string(SubmissionApproved), id); err != nil {
		return nil, s.upstream("approve submission", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, s.upstream("commit", err)
	}

	sub.Status = SubmissionApproved
	return sub, nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.upstream("ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) upstream(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return errors.NewUpstream(string(s.dialect), op, err)
}
