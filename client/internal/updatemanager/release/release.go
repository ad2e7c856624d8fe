package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/asarsync/asarsync/version"
)

const (
	DefaultBaseURL = "https://api.github.com"

	// AssetName7z and AssetNameZip are the only accepted packagings of the
	// artifact, in order of preference.
	AssetName7z  = "app.asar.7z"
	AssetNameZip = "app.asar.zip"

	requestTimeout = 30 * time.Second
	maxBodySize    = 4 << 20
)

var (
	ErrNetwork  = errors.New("release feed unreachable")
	ErrNotFound = errors.New("release not found")
)

var acceptedAssets = []string{AssetName7z, AssetNameZip}

// Info describes the latest release. An empty AssetURL means the release has
// no usable asset.
type Info struct {
	Tag       string
	AssetName string
	AssetURL  string
}

func (i Info) HasAsset() bool {
	return i.AssetURL != ""
}

type githubRelease struct {
	TagName string `json:"tag_name"`
	Assets  []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// GitHubSource reads the latest release of a repository from the GitHub API
type GitHubSource struct {
	owner   string
	repo    string
	token   string
	baseURL string
	client  *http.Client
}

func NewGitHubSource(owner, repo string) *GitHubSource {
	return &GitHubSource{
		owner:   owner,
		repo:    repo,
		baseURL: DefaultBaseURL,
		client: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// WithToken sets an optional token, raising the API rate limit
func (s *GitHubSource) WithToken(token string) *GitHubSource {
	s.token = token
	return s
}

// WithBaseURL points the source at another API host
func (s *GitHubSource) WithBaseURL(baseURL string) *GitHubSource {
	if baseURL != "" {
		s.baseURL = baseURL
	}
	return s
}

func (s *GitHubSource) Repository() string {
	return s.owner + "/" + s.repo
}

// Latest fetches the latest published release
func (s *GitHubSource) Latest(ctx context.Context) (Info, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", s.baseURL, s.owner, s.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Info{}, fmt.Errorf("%w: create request: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", version.UserAgent())
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warnf("error closing response body: %v", err)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, s.Repository())
	case resp.StatusCode != http.StatusOK:
		return Info{}, fmt.Errorf("%w: unexpected HTTP status: %d", ErrNetwork, resp.StatusCode)
	}

	var release githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&release); err != nil {
		return Info{}, fmt.Errorf("%w: decode response: %v", ErrNetwork, err)
	}

	if release.TagName == "" {
		return Info{}, fmt.Errorf("%w: release of %s has no tag", ErrNotFound, s.Repository())
	}

	info := Info{Tag: release.TagName}
	info.AssetName, info.AssetURL = selectAsset(release)

	log.Debugf("latest release of %s is %s (asset: %q)", s.Repository(), info.Tag, info.AssetName)
	return info, nil
}

func selectAsset(release githubRelease) (string, string) {
	for _, name := range acceptedAssets {
		for _, asset := range release.Assets {
			if asset.Name == name && asset.BrowserDownloadURL != "" {
				return asset.Name, asset.BrowserDownloadURL
			}
		}
	}
	return "", ""
}
