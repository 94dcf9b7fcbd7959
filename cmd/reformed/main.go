// Command reformed serves and maintains the Reformed Chapter resource
// catalog: the REST API, bulk imports, moderation, and sitemap generation.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"github.com/FocuswithJustin/ReformedChapter/core/scripture"
	"github.com/FocuswithJustin/ReformedChapter/internal/api"
	"github.com/FocuswithJustin/ReformedChapter/internal/catalog"
	"github.com/FocuswithJustin/ReformedChapter/internal/config"
	"github.com/FocuswithJustin/ReformedChapter/internal/donate"
	"github.com/FocuswithJustin/ReformedChapter/internal/importer"
	"github.com/FocuswithJustin/ReformedChapter/internal/logging"
	"github.com/FocuswithJustin/ReformedChapter/internal/sitemap"
	"github.com/FocuswithJustin/ReformedChapter/internal/store"
	"github.com/FocuswithJustin/ReformedChapter/internal/validation"
)

// Globals are flags shared by every command.
type Globals struct {
	EnvFile   string `name:"env-file" help:"Environment file to load before reading settings" default:".env" type:"path"`
	Database  string `name:"database" short:"d" help:"Database URL or SQLite path (overrides DATABASE_URL)"`
	LogLevel  string `name:"log-level" help:"Log level (debug, info, warn, error)" default:"info" env:"REFORMED_LOG_LEVEL"`
	LogFormat string `name:"log-format" help:"Log format (json, text)" default:"text" env:"REFORMED_LOG_FORMAT"`
}

// CLI defines the command-line interface.
type CLI struct {
	Globals

	Serve       ServeCmd         `cmd:"" help:"Start the REST API server"`
	Import      ImportCmd        `cmd:"" help:"Import resources from JSON or YAML files"`
	Resolve     ResolveCmd       `cmd:"" help:"Parse a scripture citation"`
	Books       BooksCmd         `cmd:"" help:"List the books of the canon"`
	Chapter     ChapterCmd       `cmd:"" help:"Show the resources for a chapter"`
	Sitemap     SitemapGroup     `cmd:"" help:"Sitemap generation and checks"`
	Submissions SubmissionsGroup `cmd:"" help:"Moderate visitor submissions"`
	Version     VersionCmd       `cmd:"" help:"Print version information"`
}

// SitemapGroup contains sitemap operations.
type SitemapGroup struct {
	Generate SitemapGenerateCmd `cmd:"" help:"Write sitemap.xml"`
	Verify   SitemapVerifyCmd   `cmd:"" help:"Check a sitemap against the canon"`
}

// SubmissionsGroup contains moderation operations.
type SubmissionsGroup struct {
	List    SubmissionsListCmd    `cmd:"" help:"List submissions"`
	Approve SubmissionsApproveCmd `cmd:"" help:"Approve a pending submission"`
}

func (g *Globals) setupLogging() error {
	level, err := logging.ParseLevel(g.LogLevel)
	if err != nil {
		return err
	}
	format, err := logging.ParseFormat(g.LogFormat)
	if err != nil {
		return err
	}
	logging.SetOutput(os.Stderr)
	logging.InitLogger(level, format)
	return nil
}

func (g *Globals) config() (config.Config, error) {
	cfg, err := config.Load(g.EnvFile)
	if err != nil {
		return config.Config{}, err
	}
	if g.Database != "" {
		cfg.DatabaseURL = g.Database
	}
	return cfg, nil
}

func (g *Globals) openStore(ctx context.Context) (*store.SQLStore, config.Config, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, cfg, err
	}
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to open database: %w", err)
	}
	return st, cfg, nil
}

// ServeCmd starts the REST API server.
type ServeCmd struct {
	Port      int    `help:"HTTP server port (overrides PORT)"`
	RateLimit int    `name:"rate-limit" help:"Requests per minute per client (0 disables)" default:"120"`
	Burst     int    `help:"Rate limit burst size" default:"20"`
	Workers   int    `help:"Goroutines used to match secondary citations (0 = GOMAXPROCS)"`
	TLSCert   string `name:"tls-cert" help:"TLS certificate file" type:"path"`
	TLSKey    string `name:"tls-key" help:"TLS private key file" type:"path"`
	NoCache   bool   `name:"no-cache" help:"Read the database on every request"`
}

func (c *ServeCmd) Run(ctx context.Context, g *Globals) error {
	st, cfg, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	var backend store.Store = st
	if !c.NoCache && cfg.CacheTTL > 0 {
		backend = store.NewCachedStore(st, cfg.CacheTTL)
	}

	var donations *donate.Service
	if cfg.StripeSecretKey != "" {
		donations = donate.NewService(donate.NewStripe(cfg.StripeSecretKey))
	} else {
		logging.Warn("donations disabled", "reason", config.EnvStripeSecretKey+" not set")
	}

	port := cfg.Port
	if c.Port > 0 {
		port = c.Port
	}
	srv, err := api.NewServer(api.Config{
		Port:              port,
		SiteName:          cfg.SiteName,
		SiteURL:           cfg.SiteURL,
		RateLimitRequests: c.RateLimit,
		RateLimitBurst:    c.Burst,
		Auth:              api.NewAuthConfig(cfg.APIKey),
		TLS: api.TLSConfig{
			Enabled:  c.TLSCert != "" || c.TLSKey != "",
			CertFile: c.TLSCert,
			KeyFile:  c.TLSKey,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		Workers:        c.Workers,
	}, backend, donations)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

// ImportCmd loads resource files into the database.
type ImportCmd struct {
	Files     []string `arg:"" help:"JSON or YAML files to import, optionally xz-compressed" type:"path"`
	Parallel  int      `help:"Files decoded at once" default:"4"`
	BatchSize int      `name:"batch-size" help:"Rows per insert transaction" default:"100"`
}

func (c *ImportCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	st, _, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	im := importer.New(st).WithBatchSize(c.BatchSize)
	reports := make([]*importer.Report, len(c.Files))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(c.Parallel, 1))
	for i, path := range c.Files {
		eg.Go(func() error {
			report, err := im.ImportFile(egCtx, path, nil)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = report
			return nil
		})
	}
	err = eg.Wait()

	total := &importer.Report{Source: "total"}
	for _, r := range reports {
		if r == nil {
			continue
		}
		printReport(out, r)
		total.Add(r)
	}
	if len(c.Files) > 1 {
		printReport(out, total)
	}
	return err
}

func printReport(out io.Writer, r *importer.Report) {
	fmt.Fprintf(out, "%s: read %d, inserted %d, invalid %d, duplicates %d, already stored %d\n",
		r.Source, r.Read, r.Inserted, r.Invalid, r.Duplicates, r.AlreadyStored)
	for _, e := range r.Errors {
		if e.Title != "" {
			fmt.Fprintf(out, "  record %d (%s): %s\n", e.Index, e.Title, e.Error)
		} else {
			fmt.Fprintf(out, "  record %d: %s\n", e.Index, e.Error)
		}
	}
}

// ResolveCmd parses a citation and optionally tests it against a chapter.
type ResolveCmd struct {
	Citation string `arg:"" help:"Citation text, e.g. \"Matthew 5; Luke 6:20-26\""`
	Book     string `help:"Book to test the citation against"`
	Chapter  int    `help:"Chapter to test the citation against"`
}

func (c *ResolveCmd) Run(out io.Writer) error {
	citations := scripture.ParseCitation(c.Citation)
	if len(citations) == 0 {
		fmt.Fprintln(out, "no citations recognized")
	}
	for _, cit := range citations {
		fmt.Fprintln(out, cit.String())
	}
	if c.Book != "" {
		fmt.Fprintf(out, "matches %s %d: %v\n", c.Book, c.Chapter, scripture.Matches(c.Citation, c.Book, c.Chapter))
	}
	return nil
}

// BooksCmd lists the canon.
type BooksCmd struct{}

func (c *BooksCmd) Run(out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, b := range scripture.DefaultCanon().Books() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", b.Order, b.Slug, b.Name, b.Testament, b.Chapters)
	}
	return tw.Flush()
}

// ChapterCmd prints the chapter view as JSON.
type ChapterCmd struct {
	Book    string `arg:"" help:"Book name or slug"`
	Chapter int    `arg:"" help:"Chapter number"`
	Types   string `help:"Comma-separated resource types to include"`
	Authors string `help:"Comma-separated authors to include"`
	Price   string `help:"free, paid, or both"`
	Sort    string `help:"scripture, alphabetical, or newest"`
}

func (c *ChapterCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	filters, err := catalog.ParseFilters(c.Types, c.Authors, c.Price)
	if err != nil {
		return err
	}
	mode, err := catalog.ParseSortMode(c.Sort)
	if err != nil {
		return err
	}

	st, _, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	view, err := catalog.New(st).Chapter(ctx, catalog.Query{
		Book:    c.Book,
		Chapter: c.Chapter,
		Filters: filters,
		Sort:    mode,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

// SitemapGenerateCmd writes the sitemap.
type SitemapGenerateCmd struct {
	Output string `short:"o" help:"Output file, relative to --dir (default stdout)"`
	Dir    string `help:"Directory the output file is written under" default:"." type:"existingdir"`
	Host   string `help:"Site URL (overrides REFORMED_SITE_URL)"`
}

func (c *SitemapGenerateCmd) Run(g *Globals, out io.Writer) error {
	host := c.Host
	if host == "" {
		cfg, err := g.config()
		if err != nil {
			return err
		}
		host = cfg.SiteURL
	}

	var buf bytes.Buffer
	if err := sitemap.Generate(&buf, host); err != nil {
		return err
	}
	if c.Output == "" {
		_, err := out.Write(buf.Bytes())
		return err
	}
	rel, err := validation.SanitizePath(c.Dir, c.Output)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}
	path := filepath.Join(c.Dir, rel)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write sitemap: %w", err)
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

// SitemapVerifyCmd checks a sitemap file.
type SitemapVerifyCmd struct {
	File string `arg:"" help:"sitemap.xml to check" type:"existingfile"`
	Host string `help:"Site URL (overrides REFORMED_SITE_URL)"`
}

func (c *SitemapVerifyCmd) Run(g *Globals, out io.Writer) error {
	host := c.Host
	if host == "" {
		cfg, err := g.config()
		if err != nil {
			return err
		}
		host = cfg.SiteURL
	}

	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("failed to open sitemap: %w", err)
	}
	defer f.Close()

	report, err := sitemap.Verify(f, host)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d URLs\n", report.Total)
	for _, loc := range report.Missing {
		fmt.Fprintf(out, "missing: %s\n", loc)
	}
	for _, loc := range report.Unexpected {
		fmt.Fprintf(out, "unexpected: %s\n", loc)
	}
	for _, loc := range report.Duplicates {
		fmt.Fprintf(out, "duplicate: %s\n", loc)
	}
	if !report.OK() {
		return fmt.Errorf("sitemap does not match the canon")
	}
	fmt.Fprintln(out, "OK")
	return nil
}

// SubmissionsListCmd lists submissions.
type SubmissionsListCmd struct {
	Status string `help:"Filter by status" default:"pending" enum:"pending,approved,all"`
}

func (c *SubmissionsListCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	st, _, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	status := store.SubmissionStatus(c.Status)
	if c.Status == "all" {
		status = ""
	}
	subs, err := st.ListSubmissions(ctx, status)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(out, "no submissions")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tBOOK\tTYPE\tTITLE\tSUBMITTED")
	for _, s := range subs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Status, s.Resource.Book, s.Resource.Type, s.Resource.Title,
			s.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// SubmissionsApproveCmd approves a submission.
type SubmissionsApproveCmd struct {
	ID string `arg:"" help:"Submission ID"`
}

func (c *SubmissionsApproveCmd) Run(ctx context.Context, g *Globals, out io.Writer) error {
	st, _, err := g.openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	sub, err := st.ApproveSubmission(ctx, c.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "approved %s: %s\n", sub.ID, sub.Resource.Title)
	return nil
}

type VersionCmd struct{}

func (c *VersionCmd) Run(out io.Writer) error {
	fmt.Fprintf(out, "reformed version %s\n", api.Version)
	return nil
}

func newParser(ctx context.Context, cli *CLI, out io.Writer, options ...kong.Option) (*kong.Kong, error) {
	options = append([]kong.Option{
		kong.Name("reformed"),
		kong.Description("Reformed Chapter - Bible study resources by chapter"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Bind(&cli.Globals),
		kong.BindTo(ctx, (*context.Context)(nil)),
		kong.BindTo(out, (*io.Writer)(nil)),
	}, options...)
	return kong.New(cli, options...)
}

func main() {
	var cli CLI
	parser, err := newParser(context.Background(), &cli, os.Stdout)
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)
	parser.FatalIfErrorf(cli.setupLogging())
	parser.FatalIfErrorf(kctx.Run())
}
