// Package monitor drives batch publishing: scan, publish one article at a
// time, archive, report. Watch mode repeats this on an interval.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wxdraft/internal/formatter"
	"wxdraft/internal/logger"
	"wxdraft/internal/metrics"
	"wxdraft/internal/models"
	"wxdraft/internal/queue"
	"wxdraft/internal/scanner"
	"wxdraft/internal/validator"
)

// Publisher creates a draft from a rendered article.
type Publisher interface {
	PublishToDraft(ctx context.Context, title, content, cover string) (models.DraftResult, error)
}

// Renderer turns an article body into HTML.
type Renderer interface {
	Render(body string) (string, error)
}

// Validator checks a rendered article before it is published.
type Validator interface {
	Validate(article *models.Article, html string) *validator.ValidationResult
}

// Outcome is the result of one article in a run.
type Outcome struct {
	Name     string
	Title    string
	DraftID  string
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Report summarizes one run.
type Report struct {
	RunID     string
	Outcomes  []Outcome
	Published int
	Failed    int
	Skipped   int
}

// OK reports whether no article failed.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// Runner wires the scanner, renderer and publisher together.
type Runner struct {
	scanner   *scanner.Scanner
	renderer  Renderer
	publisher Publisher
	validator Validator
	queue     *queue.Queue[scanner.Entry]
	logger    *logger.Logger
	now       func() time.Time
}

// NewRunner creates a runner.
func NewRunner(s *scanner.Scanner, renderer Renderer, publisher Publisher, q *queue.Queue[scanner.Entry], log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}

	return &Runner{
		scanner:   s,
		renderer:  renderer,
		publisher: publisher,
		queue:     q,
		logger:    log,
		now:       time.Now,
	}
}

// WithValidator enables pre-flight validation of each article.
func (r *Runner) WithValidator(v Validator) *Runner {
	r.validator = v
	return r
}

// Status scans the article directory without publishing anything.
func (r *Runner) Status() ([]scanner.Entry, error) {
	return r.scanner.Scan()
}

// StatusTable renders entries as an aligned table.
func StatusTable(entries []scanner.Entry) string {
	rows := make([][]string, 0, len(entries))

	for _, e := range entries {
		rows = append(rows, []string{e.Name, e.Status})
	}

	return formatter.FormatTable([]string{"Article", "Status"}, rows)
}

// PublishAll publishes every READY article of the directory. Articles
// without an image are reported and skipped.
func (r *Runner) PublishAll(ctx context.Context) (*Report, error) {
	entries, err := r.scanner.Scan()
	if err != nil {
		return nil, err
	}

	report := r.newReport()
	log := r.logger.With("run_id", report.RunID)

	var ready []scanner.Entry

	for _, entry := range entries {
		if entry.Ready() {
			ready = append(ready, entry)
			continue
		}

		log.Warn(fmt.Sprintf("⚠️  %s has no matching image, skipped", entry.Name), "status", entry.Status)
		metrics.ObserveArticle(metrics.ResultMissingImage, 0)
		report.add(Outcome{Name: entry.Name, Err: scanner.ErrMissingImage, Skipped: true})
	}

	log.Info(fmt.Sprintf("Found %d article(s), %d ready", len(entries), len(ready)))

	err = r.run(ctx, log, report, ready)
	metrics.ObserveRun(len(entries), r.now())

	return report, err
}

// PublishFiles publishes the named articles. Unknown names and articles
// without an image count as failures.
func (r *Runner) PublishFiles(ctx context.Context, names []string) (*Report, error) {
	report := r.newReport()
	log := r.logger.With("run_id", report.RunID)

	var entries []scanner.Entry

	for _, name := range names {
		entry, err := r.scanner.Entry(name)
		if err == nil && !entry.Ready() {
			err = fmt.Errorf("%w: %s", scanner.ErrMissingImage, entry.Name)
		}

		if err != nil {
			log.Error(fmt.Sprintf("❌ %v", err))
			metrics.ObserveArticle(metrics.ResultFailed, 0)
			report.add(Outcome{Name: name, Err: err})

			continue
		}

		entries = append(entries, entry)
	}

	err := r.run(ctx, log, report, entries)
	metrics.ObserveRun(len(names), r.now())

	return report, err
}

func (r *Runner) newReport() *Report {
	return &Report{RunID: uuid.NewString()}
}

func (r *Runner) run(ctx context.Context, log *logger.Logger, report *Report, entries []scanner.Entry) error {
	summary, err := r.queue.Run(ctx, entries, func(ctx context.Context, entry scanner.Entry) error {
		outcome := r.publishEntry(ctx, log.With("article", entry.Name), entry)
		report.add(outcome)

		return outcome.Err
	})

	report.Skipped += summary.Skipped

	log.Info(fmt.Sprintf("Run finished: %d published, %d failed, %d skipped", report.Published, report.Failed, report.Skipped))

	return err
}

// publishEntry loads, renders, publishes and archives one article. Any error
// leaves the files in place.
func (r *Runner) publishEntry(ctx context.Context, log *logger.Logger, entry scanner.Entry) Outcome {
	start := r.now()
	outcome := Outcome{Name: entry.Name}

	fail := func(err error) Outcome {
		outcome.Err = err
		outcome.Duration = r.now().Sub(start)

		log.Error(fmt.Sprintf("❌ Publish failed: %v", err))
		metrics.ObserveArticle(metrics.ResultFailed, outcome.Duration)

		return outcome
	}

	log.Info("📄 Processing article")

	article, err := r.scanner.Load(entry)
	if err != nil {
		return fail(err)
	}

	outcome.Title = article.Title

	html, err := r.renderer.Render(article.Body)
	if err != nil {
		return fail(err)
	}

	if r.validator != nil {
		check := r.validator.Validate(article, html)
		for _, w := range check.Warnings {
			log.Warn(fmt.Sprintf("⚠️  %s", w))
		}

		if err := check.Err(); err != nil {
			return fail(err)
		}
	}

	result, err := r.publisher.PublishToDraft(ctx, article.Title, html, article.CoverPath)
	if err != nil {
		return fail(err)
	}

	outcome.DraftID = result.MediaID

	if err := r.scanner.Archive(entry); err != nil {
		return fail(fmt.Errorf("draft %s created but %w", result.MediaID, err))
	}

	outcome.Duration = r.now().Sub(start)

	log.Info(fmt.Sprintf("✅ Published %q as draft %s", article.Title, result.MediaID))
	metrics.ObserveArticle(metrics.ResultPublished, outcome.Duration)

	return outcome
}

// Watch runs PublishAll every interval until ctx is done. Run errors are
// logged and the loop continues.
func (r *Runner) Watch(ctx context.Context, interval time.Duration) error {
	r.logger.Info(fmt.Sprintf("👀 Watching %s every %s", r.scanner.Dir(), interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := r.PublishAll(ctx)

		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			r.logger.Error(fmt.Sprintf("Scan failed: %v", err))
		case report.Published+report.Failed > 0:
			r.logger.Info(fmt.Sprintf("Watch cycle: %d published, %d failed", report.Published, report.Failed))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Report) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)

	switch {
	case o.Skipped:
		r.Skipped++
	case o.Err != nil:
		r.Failed++
	default:
		r.Published++
	}
}
