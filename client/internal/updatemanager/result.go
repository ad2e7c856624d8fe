package updatemanager

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/asarsync/asarsync/util"
)

const resultFile = "result.json"

// Result is the outcome of the last cutover that got past the grace periods
type Result struct {
	Success    bool
	FromTag    string
	ToTag      string
	BackupPath string `json:",omitempty"`
	Error      string `json:",omitempty"`
	ExecutedAt time.Time
}

// ResultHandler handles reading and writing update results
type ResultHandler struct {
	resultFile string
}

// NewResultHandler keeps the result as "result.json" in dir
func NewResultHandler(dir string) *ResultHandler {
	return &ResultHandler{
		resultFile: filepath.Join(dir, resultFile),
	}
}

func (rh *ResultHandler) Path() string {
	return rh.resultFile
}

// Write replaces the stored result atomically
func (rh *ResultHandler) Write(result Result) error {
	log.Debugf("write out update result to: %s", rh.resultFile)

	dir := filepath.Dir(rh.resultFile)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create result directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := rh.resultFile + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp result file: %w", err)
	}

	if err := os.Rename(tmpPath, rh.resultFile); err != nil {
		if cleanupErr := os.Remove(tmpPath); cleanupErr != nil {
			log.Warnf("failed to remove temp result file: %v", cleanupErr)
		}
		return err
	}

	return nil
}

// Read returns the stored result. A missing file yields an error matching
// os.ErrNotExist.
func (rh *ResultHandler) Read() (Result, error) {
	var result Result
	if _, err := util.ReadJson(rh.resultFile, &result); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("invalid result format: %w", err)
	}

	return result, nil
}

// Watch calls fn with every result written until ctx is done. The directory
// must exist.
func (rh *ResultHandler) Watch(ctx context.Context, fn func(Result)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Warnf("failed to close watcher: %v", err)
		}
	}()

	// watch the directory, the file is replaced by rename on every write
	dir := filepath.Dir(rh.resultFile)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			if event.Name != rh.resultFile {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			result, err := rh.Read()
			if err != nil {
				log.Debugf("error while reading result: %v", err)
				continue
			}
			fn(result)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
