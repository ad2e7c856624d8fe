// Package extract unpacks downloaded release archives. Both implementations
// flatten the archive into the output directory, so the artifact always ends
// up at <outDir>/<artifact name>.
package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrExtraction = errors.New("extraction failed")

// Extractor unpacks archive into outDir and blocks until done
type Extractor interface {
	Extract(ctx context.Context, archive, outDir string) error
}

// ByName picks an extractor from the archive file name
type ByName struct {
	SevenZip Extractor
	Zip      Extractor
}

func (b ByName) Extract(ctx context.Context, archive, outDir string) error {
	return b.For(archive).Extract(ctx, archive, outDir)
}

// For returns the extractor registered for the archive suffix. Unknown
// suffixes go to 7z, which detects formats on its own.
func (b ByName) For(archive string) Extractor {
	if strings.HasSuffix(strings.ToLower(archive), ".zip") && b.Zip != nil {
		return b.Zip
	}
	if b.SevenZip != nil {
		return b.SevenZip
	}
	return unsupported{}
}

type unsupported struct{}

func (unsupported) Extract(_ context.Context, archive, _ string) error {
	return fmt.Errorf("%w: no extractor for %s", ErrExtraction, archive)
}
