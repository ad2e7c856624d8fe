package updatemanager

import (
	"errors"

	"github.com/asarsync/asarsync/client/internal/updatemanager/downloader"
	"github.com/asarsync/asarsync/client/internal/updatemanager/extract"
	"github.com/asarsync/asarsync/client/internal/updatemanager/integrity"
	"github.com/asarsync/asarsync/client/internal/updatemanager/release"
)

// Error kinds of a cycle. All of them skip the cycle; none stops the agent.
var (
	ErrNetwork    = release.ErrNetwork
	ErrNotFound   = release.ErrNotFound
	ErrDownload   = downloader.ErrDownload
	ErrExtraction = extract.ErrExtraction
	ErrIO         = integrity.ErrIO

	// ErrSwap means the backup rename failed and the installed artifact was
	// not touched.
	ErrSwap = errors.New("swap aborted")

	// ErrFatalSwap means the installed artifact was moved to its backup but
	// the candidate could not take its place. There is no artifact installed
	// until someone restores the backup.
	ErrFatalSwap = errors.New("installed artifact missing after failed swap")
)
