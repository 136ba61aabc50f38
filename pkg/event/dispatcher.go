package event

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// Dispatcher sends one assembled batch to the event endpoint. A nil return
// acknowledges delivery and lets the processor trim the queue.
type Dispatcher interface {
	Dispatch(ctx context.Context, batch Batch) error
}

// HTTPDispatcher posts batches as JSON. Transport errors and 5xx responses
// are retried with a constant backoff; 4xx responses fail immediately since
// re-sending the same payload cannot succeed.
type HTTPDispatcher struct {
	endpoint   string
	client     *http.Client
	attempts   uint64
	backoff    time.Duration
	reqTimeout time.Duration
}

// HTTPOption configures an HTTPDispatcher.
type HTTPOption func(*HTTPDispatcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(d *HTTPDispatcher) {
		if client != nil {
			d.client = client
		}
	}
}

// WithRetryAttempts sets how many times a retryable failure is re-sent.
func WithRetryAttempts(n uint64) HTTPOption {
	return func(d *HTTPDispatcher) {
		d.attempts = n
	}
}

// WithRetryBackoff sets the delay between retry attempts.
func WithRetryBackoff(backoff time.Duration) HTTPOption {
	return func(d *HTTPDispatcher) {
		if backoff > 0 {
			d.backoff = backoff
		}
	}
}

// WithRequestTimeout bounds each individual send attempt.
func WithRequestTimeout(timeout time.Duration) HTTPOption {
	return func(d *HTTPDispatcher) {
		if timeout > 0 {
			d.reqTimeout = timeout
		}
	}
}

// NewHTTPDispatcher creates a dispatcher for the given endpoint URL.
func NewHTTPDispatcher(endpoint string, opts ...HTTPOption) (*HTTPDispatcher, error) {
	if endpoint == "" {
		return nil, errors.New("event endpoint is required")
	}
	d := &HTTPDispatcher{
		endpoint:   endpoint,
		client:     &http.Client{},
		attempts:   3,
		backoff:    time.Second,
		reqTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch implements Dispatcher.
func (d *HTTPDispatcher) Dispatch(ctx context.Context, batch Batch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return errors.Join(ErrDispatchFailed, err)
	}

	backoff := retry.WithMaxRetries(d.attempts, retry.NewConstant(d.backoff))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return d.send(ctx, payload)
	})
	if err != nil {
		return errors.Join(ErrDispatchFailed, err)
	}
	return nil
}

func (d *HTTPDispatcher) send(ctx context.Context, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.reqTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return retry.RetryableError(fmt.Errorf("event endpoint returned %d", resp.StatusCode))
	default:
		return fmt.Errorf("event endpoint rejected batch with %d", resp.StatusCode)
	}
}
