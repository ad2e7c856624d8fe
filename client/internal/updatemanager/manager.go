package updatemanager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/asarsync/asarsync/client/internal/notify"
	"github.com/asarsync/asarsync/client/internal/quit"
	"github.com/asarsync/asarsync/client/internal/target"
	"github.com/asarsync/asarsync/client/internal/updatemanager/release"
	"github.com/asarsync/asarsync/version"
)

const (
	DefaultPollInterval     = 30 * time.Minute
	DefaultPollGranularity  = time.Second
	DefaultGracePeriod      = 4 * time.Minute
	DefaultFinalGracePeriod = time.Minute
	DefaultGraceGranularity = 500 * time.Millisecond
	DefaultSettleDelay      = 5 * time.Second

	notificationTitle = "asarsync - New Version"
	errorTitle        = "asarsync - Update failed"
	fatalTitle        = "asarsync - Manual action required"
)

type Config struct {
	// ArtifactPath is the installed artifact, resolved once at startup
	ArtifactPath string

	PollInterval    time.Duration
	PollGranularity time.Duration

	GracePeriod      time.Duration
	FinalGracePeriod time.Duration
	GraceGranularity time.Duration
	SettleDelay      time.Duration

	// KeepBackups is the number of backups retained after a swap, 0 keeps all
	KeepBackups int
}

func DefaultConfig(artifactPath string) Config {
	return Config{
		ArtifactPath:     artifactPath,
		PollInterval:     DefaultPollInterval,
		PollGranularity:  DefaultPollGranularity,
		GracePeriod:      DefaultGracePeriod,
		FinalGracePeriod: DefaultFinalGracePeriod,
		GraceGranularity: DefaultGraceGranularity,
		SettleDelay:      DefaultSettleDelay,
	}
}

type ReleaseSource interface {
	Latest(ctx context.Context) (release.Info, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, rel release.Info) (Candidate, error)
}

type Comparator interface {
	Equal(pathA, pathB string) (bool, error)
}

// Manager runs the check-and-install cycles. Cycles never overlap: Run and
// CheckAndInstall must be called from a single goroutine.
type Manager struct {
	cfg        Config
	source     ReleaseSource
	fetcher    Fetcher
	comparator Comparator
	target     target.Lifecycle
	notifier   notify.Notifier
	quit       *quit.Signal
	results    *ResultHandler

	lastApplied string

	onState func(State)
	now     func() time.Time
	rename  func(oldpath, newpath string) error
}

func NewManager(cfg Config, source ReleaseSource, fetcher Fetcher, comparator Comparator, lifecycle target.Lifecycle, notifier notify.Notifier, signal *quit.Signal) *Manager {
	return &Manager{
		cfg:        cfg,
		source:     source,
		fetcher:    fetcher,
		comparator: comparator,
		target:     lifecycle,
		notifier:   notifier,
		quit:       signal,
		now:        time.Now,
		rename:     os.Rename,
	}
}

// WithResultHandler records the outcome of every committed cutover
func (m *Manager) WithResultHandler(rh *ResultHandler) *Manager {
	m.results = rh
	return m
}

// WithStateObserver registers fn to be called on every cutover transition
func (m *Manager) WithStateObserver(fn func(State)) *Manager {
	m.onState = fn
	return m
}

// LastAppliedVersion is the tag of the last successful swap, empty until one
// happened in this process
func (m *Manager) LastAppliedVersion() string {
	return m.lastApplied
}

// Run checks for updates until the quit signal is set. ctx scopes the network
// calls of a cycle; it does not stop the loop.
func (m *Manager) Run(ctx context.Context) {
	log.Infof("update manager started (agent %s), artifact %s, interval %s",
		version.AgentVersion(), m.cfg.ArtifactPath, m.cfg.PollInterval)

	for !m.quit.IsSet() {
		m.runCycle(ctx)

		if m.quit.Wait(m.cfg.PollInterval, m.cfg.PollGranularity) {
			break
		}
	}

	log.Info("update manager stopped")
}

// runCycle runs one cycle and reports whatever it failed with
func (m *Manager) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("update cycle panicked: %v", r)
			m.notifier.Notify(errorTitle, fmt.Sprintf("Unexpected error: %v", r), notify.SeverityError)
		}
	}()

	if err := m.CheckAndInstall(ctx); err != nil {
		m.report(err)
	}
}

func (m *Manager) report(err error) {
	if errors.Is(err, ErrFatalSwap) {
		log.Errorf("update left no installed artifact: %v", err)
		m.notifier.Notify(fatalTitle,
			fmt.Sprintf("The update could not be installed and %s is missing. Restore the backup manually. %v", m.cfg.ArtifactPath, err),
			notify.SeverityError)
		return
	}

	log.Errorf("update cycle failed: %v", err)
	m.notifier.Notify(errorTitle, err.Error(), notify.SeverityError)
}

// CheckAndInstall runs a single cycle
func (m *Manager) CheckAndInstall(ctx context.Context) error {
	entry := log.WithField("cycle", xid.New().String())

	rel, err := m.source.Latest(ctx)
	if err != nil {
		return fmt.Errorf("check latest release: %w", err)
	}

	if rel.Tag == m.lastApplied {
		entry.Debugf("release %s is already installed", rel.Tag)
		return nil
	}

	if !rel.HasAsset() {
		entry.Infof("release %s has no usable asset, skipping", rel.Tag)
		return nil
	}

	if version.IsDowngrade(m.lastApplied, rel.Tag) {
		entry.Warnf("latest release %s is older than the applied %s", rel.Tag, m.lastApplied)
	}

	if m.quit.IsSet() {
		return nil
	}

	entry.Infof("fetching %s of release %s", rel.AssetName, rel.Tag)
	candidate, err := m.fetcher.Fetch(ctx, rel)
	if err != nil {
		return fmt.Errorf("fetch release %s: %w", rel.Tag, err)
	}

	if m.quit.IsSet() {
		return nil
	}

	equal, err := m.comparator.Equal(candidate.ArtifactPath, m.cfg.ArtifactPath)
	if err != nil {
		return fmt.Errorf("compare artifacts: %w", err)
	}
	if equal {
		// the tag is not recorded, so the same release is fetched again next cycle
		entry.Infof("release %s matches the installed artifact", rel.Tag)
		return nil
	}

	return m.cutover(ctx, entry, rel, candidate)
}
