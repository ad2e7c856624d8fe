package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"
)

// DefaultSevenZipBinary returns the 7-Zip command line tool location for the
// current OS
func DefaultSevenZipBinary() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files\7-Zip\7z.exe`
	}
	return "7z"
}

// SevenZip runs the external 7-Zip tool
type SevenZip struct {
	Binary string
}

func NewSevenZip(binary string) *SevenZip {
	if binary == "" {
		binary = DefaultSevenZipBinary()
	}
	return &SevenZip{Binary: binary}
}

func (s *SevenZip) Extract(ctx context.Context, archive, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("%w: create output directory: %v", ErrExtraction, err)
	}

	// e: flat extraction, -aoa: overwrite without prompt, -y: assume yes
	cmd := exec.CommandContext(ctx, s.Binary, "e", archive, "-o"+outDir, "-aoa", "-y")
	hideWindow(cmd)

	log.Debugf("running extractor: %s", cmd.String())
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrExtraction, s.Binary, err, strings.TrimSpace(string(out)))
	}

	return nil
}
