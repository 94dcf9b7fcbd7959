// Package importer loads resources in bulk from JSON or YAML files,
// optionally xz-compressed, into a store.
//
// Every record is normalized and validated on its own: a bad record is
// reported and skipped, never fatal to the batch. Records are deduplicated
// by fingerprint against the batch and against the store before insert.
package importer

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/resource"
	"github.com/FocuswithJustin/ReformedChapter/internal/logging"
	"github.com/FocuswithJustin/ReformedChapter/internal/validation"
)

// Sink is the subset of the store the importer writes to.
type Sink interface {
	Insert(ctx context.Context, rs []resource.Resource) (int, error)
	Existing(ctx context.Context, fingerprints []string) (map[string]bool, error)
}

// Stage names reported through Progress.
const (
	StageValidate = "validate"
	StageInsert   = "insert"
	StageDone     = "done"
)

// Progress receives import progress. done and total count records within
// the stage.
type Progress func(stage string, done, total int)

// RecordError describes a record that failed validation.
type RecordError struct {
	Index int    `json:"index"`
	Title string `json:"title,omitempty"`
	Error string `json:"error"`
}

// Report summarizes an import.
type Report struct {
	Source        string        `json:"source"`
	Format        string        `json:"format,omitempty"`
	Read          int           `json:"read"`
	Valid         int           `json:"valid"`
	Invalid       int           `json:"invalid"`
	Duplicates    int           `json:"duplicates"`
	AlreadyStored int           `json:"already_stored"`
	Inserted      int           `json:"inserted"`
	Errors        []RecordError `json:"errors,omitempty"`
}

// Add folds other into r, for multi-file imports.
func (r *Report) Add(other *Report) {
	r.Read += other.Read
	r.Valid += other.Valid
	r.Invalid += other.Invalid
	r.Duplicates += other.Duplicates
	r.AlreadyStored += other.AlreadyStored
	r.Inserted += other.Inserted
	r.Errors = append(r.Errors, other.Errors...)
}

// DefaultBatchSize is the number of records written per insert call.
const DefaultBatchSize = 100

// Importer validates and writes resources to a Sink.
type Importer struct {
	sink      Sink
	batchSize int
}

// New creates an importer writing to sink.
func New(sink Sink) *Importer {
	return &Importer{sink: sink, batchSize: DefaultBatchSize}
}

// WithBatchSize sets the insert batch size. Non-positive values keep the
// default.
func (im *Importer) WithBatchSize(n int) *Importer {
	if n > 0 {
		im.batchSize = n
	}
	return im
}

// ImportFile decodes and imports the file at path.
func (im *Importer) ImportFile(ctx context.Context, path string, progress Progress) (*Report, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, &errors.ValidationError{Field: "path", Value: path, Message: err.Error(), Err: err}
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &errors.NotFoundError{Resource: "file", ID: path, Err: err}
		}
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	return im.ImportReader(ctx, f, filepath.Base(path), progress)
}

// ImportReader decodes r as an import named name and imports it.
func (im *Importer) ImportReader(ctx context.Context, r io.Reader, name string, progress Progress) (*Report, error) {
	rs, format, err := Decode(r, name)
	if err != nil {
		return nil, err
	}
	report, err := im.Import(ctx, rs, progress)
	if report != nil {
		report.Source = name
		report.Format = format.String()
	}
	if err == nil {
		logging.ImportEvent(ctx, name, report.Read, report.Inserted, report.Invalid,
			"format", report.Format, "duplicates", report.Duplicates, "already_stored", report.AlreadyStored)
	}
	return report, err
}

// Import validates rs and inserts the valid, previously unseen records.
// The returned report is populated even when insertion fails part way.
func (im *Importer) Import(ctx context.Context, rs []resource.Resource, progress Progress) (*Report, error) {
	if progress == nil {
		progress = func(string, int, int) {}
	}
	report := &Report{Read: len(rs)}

	fresh := make([]resource.Resource, 0, len(rs))
	seen := make(map[string]bool, len(rs))
	for i := range rs {
		r := rs[i]
		r.ID = 0
		r.Normalize()
		if err := r.Validate(); err != nil {
			report.Invalid++
			report.Errors = append(report.Errors, RecordError{Index: i, Title: r.Title, Error: err.Error()})
			continue
		}
		report.Valid++

		r.Fingerprint = r.ComputeFingerprint()
		if seen[r.Fingerprint] {
			report.Duplicates++
			continue
		}
		seen[r.Fingerprint] = true
		fresh = append(fresh, r)

		if (i+1)%im.batchSize == 0 {
			progress(StageValidate, i+1, len(rs))
		}
	}
	progress(StageValidate, len(rs), len(rs))

	if err := ctx.Err(); err != nil {
		return report, err
	}

	stored := make(map[string]bool)
	for start := 0; start < len(fresh); start += im.batchSize {
		end := min(start+im.batchSize, len(fresh))
		fingerprints := make([]string, 0, end-start)
		for _, r := range fresh[start:end] {
			fingerprints = append(fingerprints, r.Fingerprint)
		}
		found, err := im.sink.Existing(ctx, fingerprints)
		if err != nil {
			return report, errors.Wrap(err, "check existing resources")
		}
		for fp := range found {
			stored[fp] = true
		}
	}

	pending := fresh[:0]
	for _, r := range fresh {
		if stored[r.Fingerprint] {
			report.AlreadyStored++
			continue
		}
		pending = append(pending, r)
	}

	for start := 0; start < len(pending); start += im.batchSize {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := min(start+im.batchSize, len(pending))
		n, err := im.sink.Insert(ctx, pending[start:end])
		if err != nil {
			return report, errors.Wrap(err, "insert resources")
		}
		report.Inserted += n
		progress(StageInsert, end, len(pending))
	}

	progress(StageDone, report.Inserted, report.Read)
	return report, nil
}
