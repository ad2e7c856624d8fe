package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/asarsync/asarsync/client/internal/notify"
	"github.com/asarsync/asarsync/client/internal/quit"
	"github.com/asarsync/asarsync/client/internal/target"
	"github.com/asarsync/asarsync/client/internal/updatemanager"
	"github.com/asarsync/asarsync/client/internal/updatemanager/downloader"
	"github.com/asarsync/asarsync/client/internal/updatemanager/extract"
	"github.com/asarsync/asarsync/client/internal/updatemanager/integrity"
	"github.com/asarsync/asarsync/client/internal/updatemanager/release"
	"github.com/asarsync/asarsync/client/ui"
	"github.com/asarsync/asarsync/util"
	"github.com/asarsync/asarsync/version"
)

const (
	trayTitle          = "asarsync"
	startupErrorTitle  = "asarsync - Cannot start"
	surfaceJoinTimeout = 5 * time.Second
)

var (
	// exitFn ends the process when the status surface does not stop in time
	exitFn = os.Exit

	// startupErrorLinger keeps the surface up long enough to show a fatal
	// startup notification before the process exits
	startupErrorLinger = 5 * time.Second
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "runs the update agent in the foreground (default command)",
	RunE:  runFunc,
}

func runFunc(cmd *cobra.Command, args []string) error {
	if err := loadFlags(cmd); err != nil {
		return err
	}

	if err := util.InitLog(logLevel, logFile); err != nil {
		return fmt.Errorf("failed initializing log %v", err)
	}

	signal := quit.NewSignal()

	sigCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetupCloseHandler(sigCtx, cancel)
	go func() {
		<-sigCtx.Done()
		signal.Set()
	}()

	return runAgent(cmd.Context(), signal, newSurface(signal))
}

func newSurface(signal *quit.Signal) ui.Surface {
	if noTray || !ui.TrayAvailable() {
		return ui.NewHeadless()
	}
	if tray := ui.NewTray(trayTitle, signal); tray != nil {
		return tray
	}
	return ui.NewHeadless()
}

// runAgent runs the status surface on the calling goroutine and the update
// pipeline next to it until signal is set. ctx scopes network calls only.
func runAgent(ctx context.Context, signal *quit.Signal, surface ui.Surface) error {
	notifier := notify.Multi{notify.LogNotifier{}, surface}

	manager, err := newManager(signal, notifier)
	if err != nil {
		if errors.Is(err, target.ErrResolution) {
			notifier.Notify(startupErrorTitle, err.Error(), notify.SeverityError)
			showBriefly(surface, startupErrorLinger)
		}
		return err
	}

	notifier.Notify(trayTitle, fmt.Sprintf("Found your %s. Running in the background.", targetName), notify.SeverityInfo)

	surface.SetStatus(fmt.Sprintf("Watching %s/%s", owner, repo))
	manager.WithStateObserver(func(s updatemanager.State) {
		surface.SetStatus(statusText(s, manager.LastAppliedVersion()))
	})

	pipelineDone := make(chan struct{})
	go func() {
		defer close(pipelineDone)

		manager.Run(ctx)

		surface.Close()
		select {
		case <-surface.Done():
		case <-time.After(surfaceJoinTimeout):
			log.Warnf("status surface did not stop within %s, exiting", surfaceJoinTimeout)
			exitFn(0)
		}
	}()

	surface.Run()
	// the surface may end on its own, the pipeline follows it
	signal.Set()
	<-pipelineDone

	log.Infof("asarsync %s stopped", version.AgentVersion())
	return nil
}

// showBriefly runs surface on the calling goroutine for at most d
func showBriefly(surface ui.Surface, d time.Duration) {
	timer := time.AfterFunc(d, surface.Close)
	defer timer.Stop()

	surface.Run()
}

func newManager(signal *quit.Signal, notifier notify.Notifier) (*updatemanager.Manager, error) {
	if pollInterval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", pollInterval)
	}
	if downloadTimeout <= 0 {
		return nil, fmt.Errorf("download timeout must be positive, got %s", downloadTimeout)
	}
	if gracePeriod < 0 || finalGracePeriod < 0 || settleDelay < 0 {
		return nil, errors.New("grace periods and settle delay must not be negative")
	}

	artifact, err := target.LocateArtifact(artifactPath)
	if err != nil {
		return nil, err
	}

	comparator, err := integrity.NewComparator(integrity.Algorithm(digestAlgorithm))
	if err != nil {
		return nil, err
	}

	source := release.NewGitHubSource(owner, repo).
		WithToken(githubToken).
		WithBaseURL(apiURL)

	extractor := extract.ByName{
		SevenZip: extract.NewSevenZip(sevenZipPath),
		Zip:      extract.Zip{},
	}
	fetcher := updatemanager.NewArtifactFetcher(downloader.New().WithTimeout(downloadTimeout), extractor, stagingDir, target.ArtifactName)

	executable := targetExecutable
	if executable == "" {
		executable = target.DefaultExecutable(artifact)
	}
	lifecycle := target.NewProcess(targetName, executable)

	cfg := updatemanager.DefaultConfig(artifact)
	cfg.PollInterval = pollInterval
	cfg.PollGranularity = pollGranularity
	cfg.GracePeriod = gracePeriod
	cfg.FinalGracePeriod = finalGracePeriod
	cfg.GraceGranularity = graceGranularity
	cfg.SettleDelay = settleDelay
	cfg.KeepBackups = keepBackups

	log.Infof("watching %s for %s, target %s (%s)", source.Repository(), artifact, targetName, executable)

	return updatemanager.NewManager(cfg, source, fetcher, comparator, lifecycle, notifier, signal).
		WithResultHandler(resultHandler()), nil
}

// resultHandler keeps the last update result next to the config file, so
// "status" run with the same --config finds what the agent wrote
func resultHandler() *updatemanager.ResultHandler {
	return updatemanager.NewResultHandler(filepath.Dir(configPath))
}

func statusText(s updatemanager.State, applied string) string {
	switch s {
	case updatemanager.StateAnnounced, updatemanager.StateGracePeriod1:
		return "Update pending"
	case updatemanager.StateGracePeriod2:
		return "Update imminent"
	case updatemanager.StateStopping, updatemanager.StateSwapping, updatemanager.StateRestarting:
		return "Applying update..."
	case updatemanager.StateDone:
		return "Installed " + applied
	case updatemanager.StateAborted:
		return "Update cancelled"
	default:
		return fmt.Sprintf("Watching %s/%s", owner, repo)
	}
}
