package webhook

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-resty/resty/v2"

	"github.com/go-scripts/cookiecode-sync/internal/types"
)

// StatusError is returned for a non-2xx webhook response
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.StatusCode, e.Body)
}

// Options configures a Dispatcher
type Options struct {
	URL string
	// AuthHeader is sent with AuthValue on every request when set
	AuthHeader string
	AuthValue  string
	BatchSize  int
	Timeout    time.Duration
}

// Dispatcher posts JSON bodies to the webhook. Requests are sent one at a
// time and never retried.
type Dispatcher struct {
	client *resty.Client
	opts   Options
	logger *log.Logger
}

// New creates a Dispatcher. client may be nil.
func New(opts Options, client *http.Client, logger *log.Logger) *Dispatcher {
	var rc *resty.Client
	if client != nil {
		rc = resty.NewWithClient(client)
	} else {
		rc = resty.New()
	}
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	rc.SetRetryCount(0)
	rc.SetHeader("Content-Type", "application/json")
	if opts.AuthHeader != "" {
		rc.SetHeader(opts.AuthHeader, opts.AuthValue)
	}

	return &Dispatcher{client: rc, opts: opts, logger: logger}
}

// Send posts body as one JSON request
func (d *Dispatcher) Send(ctx context.Context, body any) error {
	res, err := d.client.R().
		SetContext(ctx).
		SetBody(body).
		Post(d.opts.URL)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if !res.IsSuccess() {
		return &StatusError{StatusCode: res.StatusCode(), Body: res.String()}
	}

	d.logger.Debug("webhook accepted", "status", res.StatusCode(), "duration", res.Time())
	return nil
}

// SendPayload posts the single-message payload, failures included
func (d *Dispatcher) SendPayload(ctx context.Context, payload types.Payload) error {
	if err := d.Send(ctx, payload); err != nil {
		return err
	}
	d.logger.Info("payload sent", "records", payload.Counts.Records, "failed", payload.Counts.Failed)
	return nil
}

// SendBatches posts records in chunks of the configured batch size, in
// order. The first failing chunk aborts the rest. It returns the number of
// chunks that were accepted.
func (d *Dispatcher) SendBatches(ctx context.Context, scrapedAt time.Time, records []types.Record) (int, error) {
	chunks := Chunk(records, d.opts.BatchSize)
	for i, chunk := range chunks {
		batch := types.Batch{ScrapedAt: scrapedAt, Count: len(chunk), Records: chunk}
		if err := d.Send(ctx, batch); err != nil {
			return i, fmt.Errorf("batch %d/%d: %w", i+1, len(chunks), err)
		}
		d.logger.Info("batch sent", "batch", i+1, "of", len(chunks), "records", len(chunk))
	}
	return len(chunks), nil
}
