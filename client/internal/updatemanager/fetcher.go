package updatemanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/asarsync/asarsync/client/internal/updatemanager/extract"
	"github.com/asarsync/asarsync/client/internal/updatemanager/release"
)

const stagingPrefix = "asarsync-"

// Candidate is the downloaded and unpacked artifact of one cycle
type Candidate struct {
	ArchivePath  string
	ArtifactPath string
}

type Downloader interface {
	DownloadToFile(ctx context.Context, url, dstFile string) error
}

// ArtifactFetcher stages a release asset on disk. Staging directories are
// left behind for the OS temp cleanup.
type ArtifactFetcher struct {
	downloader   Downloader
	extractor    extract.Extractor
	stagingDir   string
	artifactName string
}

// NewArtifactFetcher stages under stagingDir, or the OS temp dir when empty
func NewArtifactFetcher(d Downloader, e extract.Extractor, stagingDir, artifactName string) *ArtifactFetcher {
	if stagingDir == "" {
		stagingDir = os.TempDir()
	}
	return &ArtifactFetcher{
		downloader:   d,
		extractor:    e,
		stagingDir:   stagingDir,
		artifactName: artifactName,
	}
}

func (f *ArtifactFetcher) Fetch(ctx context.Context, rel release.Info) (Candidate, error) {
	if !rel.HasAsset() {
		return Candidate{}, fmt.Errorf("%w: release %s has no usable asset", ErrDownload, rel.Tag)
	}

	dir := filepath.Join(f.stagingDir, stagingPrefix+xid.New().String())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Candidate{}, fmt.Errorf("%w: create staging directory: %v", ErrDownload, err)
	}

	assetName := rel.AssetName
	if assetName == "" {
		assetName = path.Base(rel.AssetURL)
	}

	archive := filepath.Join(dir, filepath.Base(assetName))
	if err := f.downloader.DownloadToFile(ctx, rel.AssetURL, archive); err != nil {
		if !errors.Is(err, ErrDownload) {
			err = fmt.Errorf("%w: %v", ErrDownload, err)
		}
		return Candidate{}, err
	}

	outDir := filepath.Join(dir, "out")
	log.Infof("extracting %s to %s", archive, outDir)
	if err := f.extractor.Extract(ctx, archive, outDir); err != nil {
		if !errors.Is(err, ErrExtraction) {
			err = fmt.Errorf("%w: %v", ErrExtraction, err)
		}
		return Candidate{}, err
	}

	artifact := filepath.Join(outDir, f.artifactName)
	info, err := os.Stat(artifact)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %s not found in %s", ErrExtraction, f.artifactName, rel.AssetName)
	}
	if !info.Mode().IsRegular() {
		return Candidate{}, fmt.Errorf("%w: %s in %s is not a regular file", ErrExtraction, f.artifactName, rel.AssetName)
	}

	return Candidate{
		ArchivePath:  archive,
		ArtifactPath: artifact,
	}, nil
}
