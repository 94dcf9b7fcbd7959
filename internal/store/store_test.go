package store

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/resource"
)

func openTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sample() []resource.Resource {
	return []resource.Resource{
		{Book: "Matthew", Chapter: resource.Int(5), Type: "sermon", Title: "The Beatitudes", Author: "Lloyd-Jones"},
		{Book: "Romans", Chapter: resource.Int(8), ChapterEnd: resource.Int(9), Type: "commentary", Title: "Romans", Author: "Moo", PublishedYear: resource.Int(1996)},
		{Book: "John", Type: "book", Title: "The Gospel of John", SecondaryScripture: "1 John 1"},
	}
}

func TestParseDSN(t *testing.T) {
	tests := []struct {
		dsn        string
		wantDial   Dialect
		wantTarget string
	}{
		{"", DialectSQLite, DefaultSQLitePath},
		{"  ", DialectSQLite, DefaultSQLitePath},
		{"data/catalog.db", DialectSQLite, "data/catalog.db"},
		{":memory:", DialectSQLite, ":memory:"},
		{"postgres://u:p@db/reformed", DialectPostgres, "postgres://u:p@db/reformed"},
		{"postgresql://db/reformed?sslmode=require", DialectPostgres, "postgresql://db/reformed?sslmode=require"},
	}
	for _, tt := range tests {
		d, target := ParseDSN(tt.dsn)
		if d != tt.wantDial || target != tt.wantTarget {
			t.Errorf("ParseDSN(%q) = %s, %q; want %s, %q", tt.dsn, d, target, tt.wantDial, tt.wantTarget)
		}
	}
}

func TestInsertAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	n, err := s.Insert(ctx, sample())
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Insert = %d, want 3", n)
	}

	got, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List returned %d resources, want 3", len(got))
	}

	if got[0].Title != "The Beatitudes" || got[2].Title != "The Gospel of John" {
		t.Errorf("List order = %q, %q, %q", got[0].Title, got[1].Title, got[2].Title)
	}
	if got[0].ID == 0 || got[0].Fingerprint == "" || got[0].CreatedAt.IsZero() {
		t.Errorf("stored fields not populated: %+v", got[0])
	}
	if got[2].Chapter != nil {
		t.Errorf("whole-book chapter = %v, want nil", *got[2].Chapter)
	}
	if got[1].ChapterEnd == nil || *got[1].ChapterEnd != 9 {
		t.Errorf("ChapterEnd = %v, want 9", got[1].ChapterEnd)
	}
	if got[1].PublishedYear == nil || *got[1].PublishedYear != 1996 {
		t.Errorf("PublishedYear = %v, want 1996", got[1].PublishedYear)
	}
	if got[2].SecondaryScripture != "1 John 1" {
		t.Errorf("SecondaryScripture = %q", got[2].SecondaryScripture)
	}

	count, err := s.Count(ctx)
	if err != nil || count != 3 {
		t.Errorf("Count = %d, %v; want 3", count, err)
	}
}

func TestInsertSkipsDuplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, sample()); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	n, err := s.Insert(ctx, sample())
	if err != nil {
		t.Fatalf("second Insert failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second Insert = %d, want 0", n)
	}

	if n, _ := s.Insert(ctx, nil); n != 0 {
		t.Errorf("Insert(nil) = %d, want 0", n)
	}
}

func TestExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rs := sample()
	if _, err := s.Insert(ctx, rs[:1]); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	stored := rs[0].ComputeFingerprint()
	missing := rs[1].ComputeFingerprint()
	found, err := s.Existing(ctx, []string{stored, missing})
	if err != nil {
		t.Fatalf("Existing failed: %v", err)
	}
	if !found[stored] || found[missing] {
		t.Errorf("Existing = %v", found)
	}

	empty, err := s.Existing(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("Existing(nil) = %v, %v", empty, err)
	}
}

func TestExistingManyFingerprints(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rs := sample()
	if _, err := s.Insert(ctx, rs[:1]); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	stored := rs[0].ComputeFingerprint()

	fps := make([]string, 0, 40001)
	for i := 0; i < 40000; i++ {
		fps = append(fps, fmt.Sprintf("%064x", i))
	}
	fps = append(fps, stored)

	found, err := s.Existing(ctx, fps)
	if err != nil {
		t.Fatalf("Existing failed: %v", err)
	}
	if len(found) != 1 || !found[stored] {
		t.Errorf("Existing found %d fingerprints, want only the stored one", len(found))
	}
}

func TestSubmissions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sub := &Submission{
		ID:             "7b0c5e56-2f1b-4f57-9c39-3c1f7d0e2a11",
		Resource:       sample()[0],
		SubmitterName:  "Ann",
		SubmitterEmail: "ann@example.org",
	}
	if err := s.AddSubmission(ctx, sub); err != nil {
		t.Fatalf("AddSubmission failed: %v", err)
	}
	if sub.Status != SubmissionPending || sub.CreatedAt.IsZero() {
		t.Errorf("defaults not applied: %+v", sub)
	}

	got, err := s.GetSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("GetSubmission failed: %v", err)
	}
	if got.Resource.Title != "The Beatitudes" || got.SubmitterEmail != "ann@example.org" {
		t.Errorf("GetSubmission = %+v", got)
	}

	if _, err := s.GetSubmission(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetSubmission(missing) error = %v, want ErrNotFound", err)
	}

	pending, err := s.ListSubmissions(ctx, SubmissionPending)
	if err != nil || len(pending) != 1 {
		t.Fatalf("ListSubmissions(pending) = %d, %v", len(pending), err)
	}

	approved, err := s.ApproveSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ApproveSubmission failed: %v", err)
	}
	if approved.Status != SubmissionApproved {
		t.Errorf("Status = %s, want approved", approved.Status)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count after approve = %d, want 1", n)
	}

	if _, err := s.ApproveSubmission(ctx, sub.ID); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("second approve error = %v, want ErrInvalidInput", err)
	}
	if _, err := s.ApproveSubmission(ctx, "missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("approve missing error = %v, want ErrNotFound", err)
	}

	pending, _ = s.ListSubmissions(ctx, SubmissionPending)
	all, _ := s.ListSubmissions(ctx, "")
	if len(pending) != 0 || len(all) != 1 {
		t.Errorf("after approve: pending=%d all=%d", len(pending), len(all))
	}

	if err := s.AddSubmission(ctx, &Submission{}); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("AddSubmission without id error = %v", err)
	}
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
	if s.Dialect() != DialectSQLite {
		t.Errorf("Dialect = %s", s.Dialect())
	}
}

// countingStore counts List calls on the wrapped store.
type countingStore struct {
	Store
	lists atomic.Int32
}

func (c *countingStore) List(ctx context.Context) ([]resource.Resource, error) {
	c.lists.Add(1)
	return c.Store.List(ctx)
}

func TestCachedStore(t *testing.T) {
	base := &countingStore{Store: openTestStore(t)}
	s := NewCachedStore(base, time.Minute)
	ctx := context.Background()

	if _, err := s.Insert(ctx, sample()[:2]); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		rs, err := s.List(ctx)
		if err != nil || len(rs) != 2 {
			t.Fatalf("List = %d, %v", len(rs), err)
		}
	}
	if got := base.lists.Load(); got != 1 {
		t.Errorf("underlying List called %d times, want 1", got)
	}
	if n, _ := s.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	if _, err := s.Insert(ctx, sample()[2:]); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	rs, _ := s.List(ctx)
	if len(rs) != 3 {
		t.Errorf("List after insert = %d, want 3", len(rs))
	}
	if got := base.lists.Load(); got != 2 {
		t.Errorf("underlying List called %d times, want 2", got)
	}

	// Duplicate insert writes nothing and keeps the snapshot.
	s.Insert(ctx, sample())
	s.List(ctx)
	if got := base.lists.Load(); got != 2 {
		t.Errorf("underlying List called %d times after no-op insert, want 2", got)
	}
}
