package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/FocuswithJustin/ReformedChapter/core/errors"
	"github.com/FocuswithJustin/ReformedChapter/core/resource"
	"github.com/FocuswithJustin/ReformedChapter/core/scripture"
	"github.com/FocuswithJustin/ReformedChapter/internal/catalog"
	"github.com/FocuswithJustin/ReformedChapter/internal/donate"
	"github.com/FocuswithJustin/ReformedChapter/internal/importer"
	"github.com/FocuswithJustin/ReformedChapter/internal/logging"
	"github.com/FocuswithJustin/ReformedChapter/internal/seo"
	"github.com/FocuswithJustin/ReformedChapter/internal/server"
	"github.com/FocuswithJustin/ReformedChapter/internal/sitemap"
	"github.com/FocuswithJustin/ReformedChapter/internal/store"
	"github.com/FocuswithJustin/ReformedChapter/internal/validation"
)

// HealthInfo is the health check response.
type HealthInfo struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Resources int    `json:"resources"`
	Clients   int    `json:"websocket_clients"`
}

// ChapterResponse is a chapter view with its page metadata.
type ChapterResponse struct {
	*catalog.ChapterView
	SEO seo.Meta `json:"seo"`
}

// ResolveResult answers a citation lookup.
type ResolveResult struct {
	Citation  string               `json:"citation"`
	Citations []scripture.Citation `json:"citations"`
	Book      string               `json:"book,omitempty"`
	Chapter   int                  `json:"chapter,omitempty"`
	Matches   *bool                `json:"matches,omitempty"`
}

var endpoints = []string{
	"GET /health",
	"GET /books",
	"GET /books/{book}",
	"GET /books/{book}/chapters/{chapter}",
	"GET /resolve",
	"GET /authors",
	"POST /donations/payment-intent",
	"POST /submissions",
	"GET /submissions",
	"GET /submissions/{id}",
	"POST /submissions/{id}/approve",
	"POST /imports",
	"GET /imports",
	"GET /imports/{id}",
	"DELETE /imports/{id}",
	"WS /ws",
	"GET /sitemap.xml",
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"name":      "Reformed Chapter API",
		"version":   Version,
		"endpoints": endpoints,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	info := HealthInfo{
		Status:  "healthy",
		Version: Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
		Clients: s.hub.ClientCount(),
	}

	n, err := s.store.Count(r.Context())
	if err != nil {
		logging.WarnContext(r.Context(), "health check failed", "error", err)
		info.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, APIResponse{Success: false, Data: info,
			Error: &APIError{Code: "UNAVAILABLE", Message: "store unavailable"}, Meta: newMeta()})
		return
	}
	info.Resources = n
	respond(w, http.StatusOK, info)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	books := s.catalog.Resolver().Canon().Books()
	respondList(w, books, len(books))
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	book, ok := s.catalog.Resolver().Canon().Lookup(r.PathValue("book"))
	if !ok {
		respondErr(w, r, errors.NewNotFound("book", r.PathValue("book")))
		return
	}
	respond(w, http.StatusOK, book)
}

func (s *Server) handleChapter(w http.ResponseWriter, r *http.Request) {
	chapter, err := strconv.Atoi(r.PathValue("chapter"))
	if err != nil {
		respondErr(w, r, &errors.ValidationError{Field: "chapter", Value: r.PathValue("chapter"), Message: "must be a number"})
		return
	}

	q := r.URL.Query()
	filters, err := catalog.ParseFilters(q.Get("types"), q.Get("authors"), q.Get("price"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	mode, err := catalog.ParseSortMode(q.Get("sort"))
	if err != nil {
		respondErr(w, r, err)
		return
	}

	view, err := s.catalog.Chapter(r.Context(), catalog.Query{
		Book:    r.PathValue("book"),
		Chapter: chapter,
		Filters: filters,
		Sort:    mode,
	})
	if err != nil {
		respondErr(w, r, err)
		return
	}
	logging.DebugContext(r.Context(), "chapter query",
		"book", view.Book, "chapter", view.Chapter, "sort", string(mode), "total", view.Total)

	respondCached(w, r, ChapterResponse{
		ChapterView: view,
		SEO:         seo.ChapterMeta(s.cfg.SiteName, s.cfg.SiteURL, view.Book, view.Chapter, view.Total),
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resolver := s.catalog.Resolver()

	result := ResolveResult{
		Citation:  q.Get("citation"),
		Citations: resolver.Parse(q.Get("citation")),
		Book:      q.Get("book"),
	}
	if result.Citations == nil {
		result.Citations = []scripture.Citation{}
	}

	if raw := q.Get("chapter"); raw != "" || result.Book != "" {
		chapter, err := strconv.Atoi(raw)
		if err != nil {
			respondErr(w, r, &errors.ValidationError{Field: "chapter", Value: raw, Message: "must be a number"})
			return
		}
		matches := resolver.Matches(result.Citation, result.Book, chapter)
		result.Chapter = chapter
		result.Matches = &matches
	}

	respond(w, http.StatusOK, result)
}

func (s *Server) handleAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := s.catalog.Authors(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, authors, len(authors))
}

// donationBody accepts metadata values of any JSON type; they are
// stringified before reaching the payment provider.
type donationBody struct {
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
	Metadata map[string]any `json:"metadata"`
}

func (b donationBody) request() donate.Request {
	req := donate.Request{Amount: b.Amount, Currency: b.Currency}
	if len(b.Metadata) > 0 {
		req.Metadata = make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			if str, ok := v.(string); ok {
				req.Metadata[k] = str
			} else {
				req.Metadata[k] = fmt.Sprint(v)
			}
		}
	}
	return req
}

func (s *Server) createIntent(w http.ResponseWriter, r *http.Request) (donate.Intent, error) {
	if !s.donations.Enabled() {
		return donate.Intent{}, errors.NewUnsupported("donations", "no payment provider configured")
	}
	var body donationBody
	if err := decodeBody(w, r, s.cfg.maxBodyBytes(), &body); err != nil {
		return donate.Intent{}, err
	}
	return s.donations.CreateIntent(r.Context(), body.request())
}

func (s *Server) handleDonation(w http.ResponseWriter, r *http.Request) {
	intent, err := s.createIntent(w, r)
	if errors.Is(err, errors.ErrUnsupported) {
		respondError(w, http.StatusServiceUnavailable, "DONATIONS_DISABLED", "Donations are not configured")
		return
	}
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, intent)
}

// handleLegacyPaymentIntent serves the donation flow at the path and with
// the bare response shape the site's checkout page already calls.
func (s *Server) handleLegacyPaymentIntent(w http.ResponseWriter, r *http.Request) {
	intent, err := s.createIntent(w, r)
	if err != nil {
		status, _, message := classify(err)
		if errors.Is(err, errors.ErrUnsupported) {
			status, message = http.StatusServiceUnavailable, "Donations are not configured"
		}
		if errors.Is(err, errors.ErrUpstream) && message == "" {
			message = "Failed to create payment intent"
		}
		var ve *errors.ValidationError
		if errors.As(err, &ve) {
			message = ve.Message
		}
		writeJSON(w, status, map[string]any{"error": map[string]string{"message": message}})
		return
	}
	writeJSON(w, http.StatusOK, intent)
}

// Submission text limits.
const (
	maxTitleLength       = 300
	maxDescriptionLength = 5000
	maxFieldLength       = 500
)

type submissionBody struct {
	resource.Resource
	SubmitterName  string `json:"submitter_name"`
	SubmitterEmail string `json:"submitter_email"`
}

func sanitizeSubmission(b *submissionBody) {
	clean := func(s string, limit int) string {
		return server.LimitStringLength(server.SanitizeUserInput(s), limit)
	}
	r := &b.Resource
	r.Book = clean(r.Book, maxFieldLength)
	r.SecondaryScripture = clean(r.SecondaryScripture, maxFieldLength)
	r.Type = clean(r.Type, maxFieldLength)
	r.Title = clean(r.Title, maxTitleLength)
	r.Author = clean(r.Author, maxFieldLength)
	r.URL = clean(r.URL, maxFieldLength)
	r.Price = clean(r.Price, maxFieldLength)
	r.Description = clean(r.Description, maxDescriptionLength)
	r.Image = clean(r.Image, maxFieldLength)
	b.SubmitterName = clean(b.SubmitterName, maxFieldLength)
	b.SubmitterEmail = clean(b.SubmitterEmail, maxFieldLength)
}

func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var body submissionBody
	if err := decodeBody(w, r, s.cfg.maxBodyBytes(), &body); err != nil {
		respondErr(w, r, err)
		return
	}
	sanitizeSubmission(&body)

	res := body.Resource
	res.ID, res.Fingerprint, res.CreatedAt = 0, "", time.Time{}
	res.Normalize()
	var errs []error
	if err := res.Validate(); err != nil {
		errs = append(errs, err)
	}
	if body.SubmitterEmail != "" {
		if err := validation.ValidateEmail(body.SubmitterEmail); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		respondErr(w, r, err)
		return
	}
	res.Fingerprint = res.ComputeFingerprint()

	sub := &store.Submission{
		ID:             uuid.New().String(),
		Resource:       res,
		SubmitterName:  body.SubmitterName,
		SubmitterEmail: body.SubmitterEmail,
		Status:         store.SubmissionPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.AddSubmission(r.Context(), sub); err != nil {
		respondErr(w, r, err)
		return
	}
	logging.InfoContext(r.Context(), "submission received", "submission_id", sub.ID, "book", res.Book, "type", res.Type)
	respond(w, http.StatusCreated, sub)
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	status := store.SubmissionStatus(r.URL.Query().Get("status"))
	switch status {
	case "":
		status = store.SubmissionPending
	case "all":
		status = ""
	case store.SubmissionPending, store.SubmissionApproved:
	default:
		respondErr(w, r, &errors.ValidationError{Field: "status", Value: string(status), Message: "must be pending, approved or all"})
		return
	}

	subs, err := s.store.ListSubmissions(r.Context(), status)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, subs, len(subs))
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.GetSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, sub)
}

func (s *Server) handleApproveSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.store.ApproveSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	logging.InfoContext(r.Context(), "submission approved", "submission_id", sub.ID)
	respond(w, http.StatusOK, sub)
}

func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !server.ValidateContentType(ct, server.ImportContentTypes) {
		respondErr(w, r, errors.NewUnsupported("content type", ct))
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	if err := validation.ValidateFilename(name); err != nil {
		respondErr(w, r, &errors.ValidationError{Field: "name", Value: name, Message: err.Error(), Err: err})
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validation.MaxImportSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondErr(w, r, errors.NewValidation("body", "import exceeds the size limit"))
			return
		}
		respondErr(w, r, errors.Wrap(err, "read import"))
		return
	}
	if len(data) == 0 {
		respondErr(w, r, errors.NewValidation("body", "empty import"))
		return
	}

	// The job outlives the request but keeps its request id.
	jobCtx := context.WithoutCancel(r.Context())
	job := s.jobs.Start(jobCtx, name, func(ctx context.Context, progress importer.Progress) (*importer.Report, error) {
		return s.importer.ImportReader(ctx, bytes.NewReader(data), name, progress)
	})
	w.Header().Set("Location", "/imports/"+job.ID)
	respond(w, http.StatusAccepted, job)
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.List()
	respondList(w, jobs, len(jobs))
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	job, err := s.jobs.Get(r.PathValue("id"))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, job)
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.jobs.Cancel(id); err != nil {
		respondErr(w, r, err)
		return
	}
	job, err := s.jobs.Get(id)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respond(w, http.StatusOK, job)
}

func (s *Server) handleSitemap(w http.ResponseWriter, r *http.Request) {
	host := s.cfg.SiteURL
	if host == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		host = scheme + "://" + r.Host
	}

	var buf bytes.Buffer
	if err := sitemap.Generate(&buf, host); err != nil {
		respondErr(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(buf.Bytes())
}
