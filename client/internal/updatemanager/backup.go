package updatemanager

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	nberrors "github.com/asarsync/asarsync/client/errors"
)

// backupTimeLayout sorts lexically in chronological order
const backupTimeLayout = "2006-01-02 15_04_05"

var backupNameRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}_\d{2}_\d{2}(-\d+)?$`)

// backupPath returns a free sibling path of installed named after now. A
// numeric suffix is added when a backup of the same second already exists.
func backupPath(installed string, now time.Time) (string, error) {
	dir := filepath.Dir(installed)
	ext := filepath.Ext(installed)
	base := now.Format(backupTimeLayout)

	candidate := filepath.Join(dir, base+ext)
	for i := 1; ; i++ {
		_, err := os.Lstat(candidate)
		switch {
		case os.IsNotExist(err):
			return candidate, nil
		case err != nil:
			return "", fmt.Errorf("check backup path %s: %w", candidate, err)
		}
		candidate = filepath.Join(dir, base+"-"+strconv.Itoa(i)+ext)
	}
}

// isBackupName reports whether name was produced by backupPath for an
// artifact with the extension ext
func isBackupName(name, ext string) bool {
	if filepath.Ext(name) != ext {
		return false
	}
	return backupNameRegex.MatchString(name[:len(name)-len(ext)])
}

// ListBackups returns the backups kept next to installed, newest first
func ListBackups(installed string) ([]string, error) {
	dir := filepath.Dir(installed)
	ext := filepath.Ext(installed)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var backups []string
	for _, entry := range entries {
		if entry.IsDir() || !isBackupName(entry.Name(), ext) {
			continue
		}
		backups = append(backups, filepath.Join(dir, entry.Name()))
	}

	sort.Slice(backups, func(i, j int) bool {
		return backupSortKey(backups[i], ext) > backupSortKey(backups[j], ext)
	})
	return backups, nil
}

// backupSortKey pads the collision suffix so "x-2" sorts after "x-1" and "x"
func backupSortKey(p, ext string) string {
	name := filepath.Base(p)
	name = name[:len(name)-len(ext)]
	m := backupNameRegex.FindStringSubmatch(name)
	if m == nil || m[1] == "" {
		return name + "-000000"
	}
	n, _ := strconv.Atoi(m[1][1:])
	return name[:len(name)-len(m[1])] + fmt.Sprintf("-%06d", n)
}

// PruneBackups removes all but the newest keep backups. keep <= 0 keeps
// everything.
func PruneBackups(installed string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}

	backups, err := ListBackups(installed)
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var (
		merr    *multierror.Error
		removed []string
	)
	for _, b := range backups[keep:] {
		if err := os.Remove(b); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("remove backup %s: %w", b, err))
			continue
		}
		log.Infof("removed old backup %s", b)
		removed = append(removed, b)
	}

	return removed, nberrors.FormatErrorOrNil(merr)
}
