package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/go-scripts/cookiecode-sync/internal/config"
	"github.com/go-scripts/cookiecode-sync/internal/portal"
	"github.com/go-scripts/cookiecode-sync/internal/progress"
	"github.com/go-scripts/cookiecode-sync/internal/types"
	"github.com/go-scripts/cookiecode-sync/internal/webhook"
	"github.com/go-scripts/cookiecode-sync/internal/writer"
)

// Summary reports what a run did
type Summary struct {
	Counts    types.Counts
	Failures  []types.Failure
	Batches   int
	FromCache bool
	Elapsed   time.Duration
}

// Pipeline runs login, link collection, scraping and dispatch in sequence
// on a single page.
type Pipeline struct {
	cfg        config.Config
	page       portal.Page
	artifacts  portal.ArtifactWriter
	dispatcher *webhook.Dispatcher
	tracker    *progress.Tracker
	logger     *log.Logger
	now        func() time.Time
}

// New creates a Pipeline. cfg must already be validated.
func New(cfg config.Config, page portal.Page, artifacts portal.ArtifactWriter, dispatcher *webhook.Dispatcher, tracker *progress.Tracker, logger *log.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		page:       page,
		artifacts:  artifacts,
		dispatcher: dispatcher,
		tracker:    tracker,
		logger:     logger,
		now:        time.Now,
	}
}

// Run executes the whole flow once
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	start := p.now()
	var sum Summary

	forms, err := portal.Extractors(types.CategoryCustomer, types.CategoryWebsite)
	if err != nil {
		return sum, err
	}

	if err := portal.Login(ctx, p.page, p.cfg.BaseURL, p.cfg.Credentials(), p.logger); err != nil {
		return sum, err
	}

	urls, fromCache, err := p.editURLs(ctx)
	if err != nil {
		return sum, err
	}
	sum.FromCache = fromCache
	sum.Counts.CustomersPlanned = len(urls.Customers)
	sum.Counts.WebsitesPlanned = len(urls.Websites)
	p.logger.Info("edit urls ready", "customers", len(urls.Customers), "websites", len(urls.Websites), "cached", fromCache)

	records, failures, err := p.scrapeAll(ctx, forms, urls)
	sum.Counts.Records = len(records)
	sum.Counts.Failed = len(failures)
	sum.Failures = failures
	if err != nil {
		sum.Elapsed = p.now().Sub(start)
		return sum, err
	}

	sum.Batches, err = p.dispatch(ctx, sum.Counts, records, failures)
	sum.Elapsed = p.now().Sub(start)
	if err != nil {
		return sum, fmt.Errorf("dispatch: %w", err)
	}
	return sum, nil
}

// editURLs loads the URL cache unless a refresh is requested, and falls back
// to paginating the listing. A fresh collection is written back to the cache.
func (p *Pipeline) editURLs(ctx context.Context) (types.EditURLs, bool, error) {
	path := p.cfg.URLsFile

	if path != "" && !p.cfg.RefreshURLs {
		cache, err := writer.ReadURLCache(path)
		switch {
		case err == nil:
			p.logger.Info("using cached edit urls", "file", path, "saved_at", cache.SavedAt)
			return cache.EditURLs(), true, nil
		case errors.Is(err, os.ErrNotExist):
		default:
			p.logger.Warn("ignoring unreadable url cache", "file", path, "err", err)
		}
	}

	p.logger.Info("collecting edit urls from the customer listing", "pages", p.cfg.PageMax)
	collector := &portal.Collector{
		BaseURL:   p.cfg.BaseURL,
		PageMax:   p.cfg.PageMax,
		Artifacts: p.artifacts,
		Logger:    p.logger,
	}
	urls, err := collector.Collect(ctx, p.page)
	if err != nil {
		return types.EditURLs{}, false, err
	}

	if path != "" {
		cache := types.URLCache{
			SavedAt:          p.now().UTC(),
			PageMax:          p.cfg.PageMax,
			CustomerEditURLs: urls.Customers,
			WebsiteEditURLs:  urls.Websites,
		}
		if err := writer.WriteURLCache(path, cache); err != nil {
			p.logger.Warn("could not save url cache", "file", path, "err", err)
		} else {
			p.logger.Info("edit urls saved", "file", path)
		}
	}
	return urls, false, nil
}

// scrapeAll visits the URLs of each form in order, pausing after every page.
// In collect mode a failing page is recorded and skipped; in abort mode it
// ends the run.
func (p *Pipeline) scrapeAll(ctx context.Context, forms []portal.Extractor, urls types.EditURLs) ([]types.Record, []types.Failure, error) {
	records := make([]types.Record, 0, urls.Total())
	failures := make([]types.Failure, 0)

	p.tracker.Start(urls.Total())
	defer func() {
		p.tracker.Stop()
		done, failed := p.tracker.Processed()
		p.logger.Info("scraping finished", "processed", done, "failed", failed, "planned", urls.Total())
	}()

	for _, form := range forms {
		category := form.Category
		delay := p.delayFor(category)

		for _, u := range urlsFor(urls, category) {
			p.tracker.Begin(fmt.Sprintf("%s %s", category, u))
			p.logger.Debug("scraping", "type", category, "url", u)

			rec, err := form.Scrape(ctx, p.page, u, p.cfg.FormTimeout)
			if err != nil {
				p.tracker.Done(false)
				failures = append(failures, p.captureFailure(ctx, category, u, err))

				if ctx.Err() != nil {
					return records, failures, ctx.Err()
				}
				if p.cfg.FailureMode == config.FailureAbort {
					return records, failures, fmt.Errorf("scrape aborted: %w", err)
				}
			} else {
				p.tracker.Done(true)
				records = append(records, rec)
			}

			if err := pause(ctx, delay); err != nil {
				return records, failures, err
			}
		}
	}

	return records, failures, nil
}

func urlsFor(urls types.EditURLs, c types.Category) []string {
	if c == types.CategoryWebsite {
		return urls.Websites
	}
	return urls.Customers
}

func (p *Pipeline) delayFor(c types.Category) time.Duration {
	if c == types.CategoryWebsite {
		return p.cfg.WebsiteDelay
	}
	return p.cfg.CustomerDelay
}

// captureFailure logs a failed scrape and saves a screenshot and the page
// HTML next to it. Capture problems are logged and otherwise ignored.
func (p *Pipeline) captureFailure(ctx context.Context, category types.Category, u string, scrapeErr error) types.Failure {
	p.logger.Warn("scrape failed", "type", category, "url", u, "err", scrapeErr)

	failure := types.Failure{Type: category, URL: u, Error: scrapeErr.Error()}
	name := fmt.Sprintf("debug-fail-%s-%s", category, writer.SafeID(u))

	if shot, err := p.page.Screenshot(ctx); err != nil {
		p.logger.Debug("failure screenshot", "url", u, "err", err)
	} else if path, err := p.artifacts.WriteArtifact(name+".png", shot); err != nil {
		p.logger.Debug("failure screenshot", "url", u, "err", err)
	} else {
		failure.Screenshot = path
	}

	if html, err := p.page.HTML(ctx); err != nil {
		p.logger.Debug("failure html", "url", u, "err", err)
	} else if path, err := p.artifacts.WriteArtifact(name+".html", []byte(html)); err != nil {
		p.logger.Debug("failure html", "url", u, "err", err)
	} else {
		failure.HTML = path
	}

	return failure
}

func (p *Pipeline) dispatch(ctx context.Context, counts types.Counts, records []types.Record, failures []types.Failure) (int, error) {
	scrapedAt := p.now().UTC()

	if p.cfg.DispatchMode == config.DispatchBatched {
		if len(failures) > 0 {
			p.logger.Warn("failed pages are not part of batched messages", "failed", len(failures))
		}
		return p.dispatcher.SendBatches(ctx, scrapedAt, records)
	}

	payload := types.Payload{
		ScrapedAt: scrapedAt,
		Counts:    counts,
		Failed:    failures,
		Records:   records,
	}
	if err := p.dispatcher.SendPayload(ctx, payload); err != nil {
		return 0, err
	}
	return 1, nil
}

// pause blocks for delay after a scrape, counted from the moment the scrape
// ended. A fresh limiter has its only token taken so Wait reserves exactly
// one interval.
func pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)
	limiter.Allow()
	return limiter.Wait(ctx)
}
