package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asarsync/asarsync/client/internal/notify"
	"github.com/asarsync/asarsync/client/internal/quit"
	"github.com/asarsync/asarsync/client/internal/target"
	"github.com/asarsync/asarsync/client/internal/updatemanager"
	"github.com/asarsync/asarsync/client/ui"
)

func TestInitCommands(t *testing.T) {
	helpFlag := "-h"
	commandArgs := [][]string{{"root", helpFlag}}
	for _, command := range rootCmd.Commands() {
		commandArgs = append(commandArgs, []string{command.Name(), command.Name(), helpFlag})
		for _, subcommand := range command.Commands() {
			commandArgs = append(commandArgs, []string{command.Name() + " " + subcommand.Name(), command.Name(), subcommand.Name(), helpFlag})
		}
	}

	for _, args := range commandArgs {
		t.Run(fmt.Sprintf("Testing Command %s", args[0]), func(t *testing.T) {
			defer func() {
				err := recover()
				if err != nil {
					t.Fatalf("got an panic error while running the command: %s -h. Error: %s", args[0], err)
				}
			}()

			rootCmd.SetArgs(args[1:])
			rootCmd.SetOut(io.Discard)
			if err := rootCmd.Execute(); err != nil {
				t.Errorf("expected no error while running %s command, got %v", args[0], err)
				return
			}
		})
	}
}

func newTestFlags() (*pflag.FlagSet, *string, *time.Duration, *int) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	var (
		repoValue string
		interval  time.Duration
		keep      int
		config    string
	)
	flags.StringVar(&config, configFlag, "", "")
	flags.StringVar(&repoValue, "repo", "default", "")
	flags.DurationVar(&interval, "poll-interval", time.Minute, "")
	flags.IntVar(&keep, "keep-backups", 0, "")
	return flags, &repoValue, &interval, &keep
}

func TestApplyConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"repo": "from-file",
		"poll-interval": "10m",
		"keep-backups": 3,
		"unknown": "ignored"
	}`), 0o600))

	flags, repoValue, interval, keep := newTestFlags()
	require.NoError(t, flags.Set("keep-backups", "5"))

	require.NoError(t, applyConfigFile(flags, file))

	assert.Equal(t, "from-file", *repoValue)
	assert.Equal(t, 10*time.Minute, *interval)
	// given on the command line
	assert.Equal(t, 5, *keep)
}

func TestApplyConfigFile_Missing(t *testing.T) {
	flags, repoValue, _, _ := newTestFlags()
	missing := filepath.Join(t.TempDir(), "config.json")

	require.NoError(t, applyConfigFile(flags, missing))
	assert.Equal(t, "default", *repoValue)

	require.NoError(t, flags.Set(configFlag, missing))
	assert.Error(t, applyConfigFile(flags, missing))
}

func TestApplyConfigFile_InvalidValue(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"poll-interval": "soon"}`), 0o600))

	flags, _, _, _ := newTestFlags()
	assert.Error(t, applyConfigFile(flags, file))
}

func TestConfigValues(t *testing.T) {
	flags, _, _, _ := newTestFlags()
	require.NoError(t, flags.Set("repo", "other"))
	require.NoError(t, flags.Set(configFlag, "/etc/asarsync.json"))

	assert.Equal(t, map[string]string{"repo": "other"}, configValues(flags))
}

func TestParseServiceEnvVars(t *testing.T) {
	env, err := parseServiceEnvVars([]string{"ASARSYNC_LOG_LEVEL=debug", "", " KEY = a=b "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ASARSYNC_LOG_LEVEL": "debug", "KEY": "a=b"}, env)

	_, err = parseServiceEnvVars([]string{"NOVALUE"})
	assert.Error(t, err)

	_, err = parseServiceEnvVars([]string{"=value"})
	assert.Error(t, err)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, updatemanager.Result{
		Success:    false,
		ToTag:      "v2.0.0",
		BackupPath: "/opt/Mattermost/resources/2024-03-05 09_07_02.asar",
		Error:      "installed artifact missing after failed swap",
		ExecutedAt: time.Now(),
	})

	out := buf.String()
	assert.Contains(t, out, "unknown version -> v2.0.0 failed")
	assert.Contains(t, out, "Backup: /opt/Mattermost/resources/2024-03-05 09_07_02.asar")
	assert.Contains(t, out, "Error: installed artifact missing")
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Installed v2.0.0", statusText(updatemanager.StateDone, "v2.0.0"))
	assert.Equal(t, "Update cancelled", statusText(updatemanager.StateAborted, ""))
	assert.Equal(t, "Applying update...", statusText(updatemanager.StateSwapping, ""))
}

// setAgentFlags points the agent flags at test values and restores them
func setAgentFlags(t *testing.T, artifact, api string) {
	t.Helper()

	origArtifact, origAPI, origConfig := artifactPath, apiURL, configPath
	origInterval, origGranularity := pollInterval, pollGranularity
	t.Cleanup(func() {
		artifactPath, apiURL, configPath = origArtifact, origAPI, origConfig
		pollInterval, pollGranularity = origInterval, origGranularity
	})

	artifactPath = artifact
	apiURL = api
	configPath = filepath.Join(t.TempDir(), "config.json")
	pollInterval = 10 * time.Millisecond
	pollGranularity = 5 * time.Millisecond
}

type delivered struct {
	title    string
	severity notify.Severity
}

// surfaceRecorder is a headless surface that remembers every notification
type surfaceRecorder struct {
	*ui.Headless

	mu    sync.Mutex
	items []delivered
	runs  atomic.Int32
}

func newSurfaceRecorder() *surfaceRecorder {
	return &surfaceRecorder{Headless: ui.NewHeadless()}
}

func (s *surfaceRecorder) Run() {
	s.runs.Add(1)
	s.Headless.Run()
}

func (s *surfaceRecorder) Notify(title, _ string, severity notify.Severity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, delivered{title: title, severity: severity})
}

func (s *surfaceRecorder) notifications() []delivered {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivered(nil), s.items...)
}

func TestRunAgent_ResolutionFailure(t *testing.T) {
	setAgentFlags(t, filepath.Join(t.TempDir(), "missing", "app.asar"), "http://127.0.0.1:1")

	origLinger := startupErrorLinger
	startupErrorLinger = 50 * time.Millisecond
	t.Cleanup(func() { startupErrorLinger = origLinger })

	surface := newSurfaceRecorder()
	err := runAgent(context.Background(), quit.NewSignal(), surface)
	assert.ErrorIs(t, err, target.ErrResolution)

	got := surface.notifications()
	require.Len(t, got, 1)
	assert.Equal(t, startupErrorTitle, got[0].title)
	assert.Equal(t, notify.SeverityError, got[0].severity)

	// the surface ran so the notification could be shown, and was closed again
	assert.Equal(t, int32(1), surface.runs.Load())
	select {
	case <-surface.Done():
	default:
		t.Fatal("surface was not closed")
	}
}

func TestRunAgent_StopsOnSignal(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tag_name": "v2.0.0", "assets": []}`))
	}))
	defer server.Close()

	resources := filepath.Join(t.TempDir(), "Mattermost", "resources")
	require.NoError(t, os.MkdirAll(resources, 0o755))
	artifact := filepath.Join(resources, "app.asar")
	require.NoError(t, os.WriteFile(artifact, []byte("installed"), 0o644))

	setAgentFlags(t, artifact, server.URL)

	signal := quit.NewSignal()
	surface := newSurfaceRecorder()
	done := make(chan error, 1)
	go func() {
		done <- runAgent(context.Background(), signal, surface)
	}()

	require.Eventually(t, func() bool { return requests.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
	signal.Set()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("agent did not stop after the quit signal")
	}

	got := surface.notifications()
	require.NotEmpty(t, got)
	assert.Equal(t, trayTitle, got[0].title)
	assert.Equal(t, notify.SeverityInfo, got[0].severity)
}
