package updatemanager

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/asarsync/asarsync/client/internal/notify"
	"github.com/asarsync/asarsync/client/internal/updatemanager/release"
)

func (m *Manager) setState(entry *log.Entry, s State) {
	entry.Debugf("cutover state: %s", s)
	if m.onState != nil {
		m.onState(s)
	}
}

// cutover announces the release, waits out both grace periods and replaces
// the installed artifact. Cancellation is honored only during the waits.
func (m *Manager) cutover(ctx context.Context, entry *log.Entry, rel release.Info, candidate Candidate) error {
	m.setState(entry, StateIdle)

	m.notifier.Notify(notificationTitle,
		fmt.Sprintf("Version %s is available and ready for installation.\nUpdate will be applied in %s.",
			rel.Tag, formatDelay(m.cfg.GracePeriod+m.cfg.FinalGracePeriod)),
		notify.SeverityWarning)
	m.setState(entry, StateAnnounced)

	m.setState(entry, StateGracePeriod1)
	if m.quit.Wait(m.cfg.GracePeriod, m.cfg.GraceGranularity) {
		entry.Infof("update to %s cancelled", rel.Tag)
		m.setState(entry, StateAborted)
		return nil
	}

	m.notifier.Notify(notificationTitle,
		fmt.Sprintf("Update will be applied in %s.", formatDelay(m.cfg.FinalGracePeriod)),
		notify.SeverityWarning)
	m.setState(entry, StateGracePeriod2)
	if m.quit.Wait(m.cfg.FinalGracePeriod, m.cfg.GraceGranularity) {
		entry.Infof("update to %s cancelled", rel.Tag)
		m.setState(entry, StateAborted)
		return nil
	}

	m.notifier.Notify(notificationTitle, "Applying update...", notify.SeverityWarning)
	m.setState(entry, StateStopping)

	if err := m.target.Stop(ctx); err != nil {
		entry.Warnf("failed to stop target: %v", err)
	}
	time.Sleep(m.cfg.SettleDelay)

	m.setState(entry, StateSwapping)
	from := m.lastApplied
	backup, err := m.swap(candidate.ArtifactPath)
	if err != nil {
		m.writeResult(Result{
			FromTag:    from,
			ToTag:      rel.Tag,
			BackupPath: backup,
			Error:      err.Error(),
		})
		// a failed backup rename left the old artifact in place, bring it back up
		if backup == "" {
			if serr := m.target.Start(ctx); serr != nil {
				entry.Errorf("failed to restart target after aborted swap: %v", serr)
			}
		}
		return err
	}
	entry.Infof("installed %s, previous artifact kept at %s", rel.Tag, backup)

	m.setState(entry, StateRestarting)
	if err := m.target.Start(ctx); err != nil {
		entry.Errorf("failed to start target: %v", err)
		m.notifier.Notify(errorTitle, fmt.Sprintf("Failed to restart the application: %v", err), notify.SeverityError)
	}

	m.notifier.Notify(notificationTitle,
		fmt.Sprintf("Updated from %s to %s.", displayTag(from), rel.Tag),
		notify.SeverityInfo)
	m.lastApplied = rel.Tag
	m.setState(entry, StateDone)

	if removed, err := PruneBackups(m.cfg.ArtifactPath, m.cfg.KeepBackups); err != nil {
		entry.Warnf("failed to prune backups: %v", err)
	} else if len(removed) > 0 {
		entry.Infof("pruned %d old backups", len(removed))
	}

	m.writeResult(Result{
		Success:    true,
		FromTag:    from,
		ToTag:      rel.Tag,
		BackupPath: backup,
	})
	return nil
}

// swap moves the installed artifact to a timestamped backup and the candidate
// into its place. The returned backup path is empty when the installed
// artifact was not moved.
func (m *Manager) swap(candidate string) (string, error) {
	installed := m.cfg.ArtifactPath

	if _, err := os.Stat(candidate); err != nil {
		return "", fmt.Errorf("%w: candidate artifact: %v", ErrSwap, err)
	}

	backup, err := backupPath(installed, m.now())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSwap, err)
	}
	if err := m.rename(installed, backup); err != nil {
		return "", fmt.Errorf("%w: move %s to %s: %v", ErrSwap, installed, backup, err)
	}

	if err := m.rename(candidate, installed); err != nil {
		return backup, fmt.Errorf("%w: move %s to %s: %v; previous artifact is at %s",
			ErrFatalSwap, candidate, installed, err, backup)
	}

	return backup, nil
}

func (m *Manager) writeResult(r Result) {
	if m.results == nil {
		return
	}
	r.ExecutedAt = m.now()
	if err := m.results.Write(r); err != nil {
		log.Warnf("failed to write update result: %v", err)
	}
}

func displayTag(tag string) string {
	if tag == "" {
		return "unknown version"
	}
	return tag
}

// formatDelay renders d for notifications, e.g. "5 minutes" or "1 minute 30 seconds"
func formatDelay(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0 seconds"
	}

	minutes := int(d / time.Minute)
	seconds := int((d % time.Minute) / time.Second)

	var parts []string
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
