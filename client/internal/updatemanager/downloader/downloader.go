package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/asarsync/asarsync/version"
)

const (
	DefaultRetryDelay = 3 * time.Second
	DefaultRetries    = 2
	// DefaultTimeout bounds a single attempt, body transfer included
	DefaultTimeout = 10 * time.Minute
)

var ErrDownload = errors.New("download failed")

// Downloader fetches release assets over HTTP
type Downloader struct {
	client     *http.Client
	retryDelay time.Duration
	retries    uint64
}

func New() *Downloader {
	return &Downloader{
		client:     &http.Client{Timeout: DefaultTimeout},
		retryDelay: DefaultRetryDelay,
		retries:    DefaultRetries,
	}
}

// WithTimeout overrides the per-attempt deadline. A stalled transfer fails
// with ErrDownload once it passes.
func (d *Downloader) WithTimeout(timeout time.Duration) *Downloader {
	d.client = &http.Client{Timeout: timeout}
	return d
}

// WithRetry overrides the retry policy. A zero retryDelay disables retries.
func (d *Downloader) WithRetry(retryDelay time.Duration, retries uint64) *Downloader {
	d.retryDelay = retryDelay
	d.retries = retries
	return d
}

// DownloadToFile writes the body of url to dstFile. On failure the partial
// file is removed.
func (d *Downloader) DownloadToFile(ctx context.Context, url, dstFile string) (err error) {
	log.Debugf("starting download from %s", url)

	out, err := os.Create(dstFile)
	if err != nil {
		return fmt.Errorf("%w: create destination file %q: %v", ErrDownload, dstFile, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			log.Warnf("error closing file %q: %v", dstFile, cerr)
		}
		if err != nil {
			if rerr := os.Remove(dstFile); rerr != nil && !os.IsNotExist(rerr) {
				log.Warnf("failed to remove partial download %q: %v", dstFile, rerr)
			}
		}
	}()

	attempt := 0
	operation := func() error {
		attempt++
		if attempt > 1 {
			if err := out.Truncate(0); err != nil {
				return backoff.Permanent(fmt.Errorf("truncate file on retry: %w", err))
			}
			if _, err := out.Seek(0, io.SeekStart); err != nil {
				return backoff.Permanent(fmt.Errorf("seek to beginning of file: %w", err))
			}
		}
		return d.downloadOnce(ctx, url, out)
	}

	if d.retryDelay == 0 || d.retries == 0 {
		err = operation()
	} else {
		err = backoff.RetryNotify(operation, d.backOff(ctx), func(err error, next time.Duration) {
			log.Warnf("download failed, retrying after %v: %v", next, err)
		})
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDownload, err)
	}

	log.Infof("successfully downloaded file to %s", dstFile)
	return nil
}

func (d *Downloader) backOff(ctx context.Context) backoff.BackOff {
	expBackOff := &backoff.ExponentialBackOff{
		InitialInterval:     d.retryDelay,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         4 * d.retryDelay,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	expBackOff.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(expBackOff, d.retries), ctx)
}

func (d *Downloader) downloadOnce(ctx context.Context, url string, out *os.File) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Warnf("error closing response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected HTTP status: %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return backoff.Permanent(err)
		}
		return err
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("failed to write response body to file: %w", err)
	}

	return nil
}
