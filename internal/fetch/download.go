package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZebulonRouseFrantzich/xulpack/internal/config"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 30 * time.Minute
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "xulpack/1.0"
	// DefaultProgressInterval is how often progress is sampled during a transfer.
	DefaultProgressInterval = 250 * time.Millisecond
)

// Progress is one transfer progress event. Total is -1 when the server did
// not declare a Content-Length.
type Progress struct {
	Transferred int64
	Total       int64
}

// ProgressFunc receives progress events. It is called from a sampling
// goroutine and never from the transfer loop itself.
type ProgressFunc func(Progress)

// Downloader handles HTTP downloads with optional retry logic
type Downloader struct {
	client    *http.Client
	userAgent string
	retries   int
	interval  time.Duration
	logger    config.Logger

	// backoff returns the wait before the given retry attempt (1-based).
	backoff func(attempt int) time.Duration
}

// NewDownloader creates a new downloader. retries is the number of extra
// attempts after the first; zero means a single attempt.
func NewDownloader(client *http.Client, retries int, logger config.Logger) *Downloader {
	if client == nil {
		client = &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Allow up to 10 redirects
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		}
	}
	return &Downloader{
		client:    client,
		userAgent: DefaultUserAgent,
		retries:   max(retries, 0),
		interval:  DefaultProgressInterval,
		logger:    config.LoggerOrNop(logger),
		backoff: func(attempt int) time.Duration {
			// Exponential backoff: 1s, 2s, 4s
			return time.Duration(1<<uint(attempt-1)) * time.Second
		},
	}
}

// DownloadToFile downloads url to destPath. The body is streamed into
// destPath+".tmp" and renamed into place only after a complete transfer;
// any failure removes the partial file.
func (d *Downloader) DownloadToFile(ctx context.Context, url, destPath string, progress ProgressFunc) error {
	var lastErr error

	for attempt := 0; attempt <= d.retries; attempt++ {
		// Check context before each attempt
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt > 0 {
			wait := d.backoff(attempt)
			d.logger.Warn("Retrying download", "url", url, "attempt", attempt, "wait", wait.String(), "error", lastErr)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := d.downloadOnce(ctx, url, destPath, progress)
		if err == nil {
			return nil
		}
		lastErr = err

		// Don't retry on context cancellation or client errors
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && !statusErr.retryable() {
			return err
		}
	}

	if d.retries == 0 {
		return lastErr
	}
	return fmt.Errorf("download failed after %d retries: %w", d.retries, lastErr)
}

// downloadOnce performs a single download attempt
func (d *Downloader) downloadOnce(ctx context.Context, url, destPath string, progress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	tmpPath := destPath + ".tmp"
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	// Track whether we need to clean up the temp file
	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath) // Clean up on error
		}
	}()

	total := resp.ContentLength
	if total < 0 {
		total = -1
	}
	counter := &byteCounter{}
	stop := d.sample(counter, total, progress)

	_, err = io.Copy(io.MultiWriter(tmpFile, counter), resp.Body)
	stop()
	if err != nil {
		return fmt.Errorf("copy response body: %w", err)
	}
	if progress != nil {
		progress(Progress{Transferred: counter.Load(), Total: total})
	}

	// Close temp file before rename
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	// Success - don't clean up the temp file (it's been renamed)
	cleanupNeeded = false
	return nil
}

// sample reports counter on a ticker until the returned stop function runs.
// stop waits for the sampler to exit so no event fires after it returns.
func (d *Downloader) sample(counter *byteCounter, total int64, progress ProgressFunc) (stop func()) {
	if progress == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		var last int64 = -1
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if n := counter.Load(); n != last {
					last = n
					progress(Progress{Transferred: n, Total: total})
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

// byteCounter is an io.Writer that only counts.
type byteCounter struct {
	atomic.Int64
}

func (c *byteCounter) Write(p []byte) (int, error) {
	c.Add(int64(len(p)))
	return len(p), nil
}
