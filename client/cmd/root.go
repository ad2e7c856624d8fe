package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/asarsync/asarsync/client/internal/target"
	"github.com/asarsync/asarsync/client/internal/updatemanager"
	"github.com/asarsync/asarsync/client/internal/updatemanager/downloader"
	"github.com/asarsync/asarsync/client/internal/updatemanager/extract"
	"github.com/asarsync/asarsync/client/internal/updatemanager/integrity"
	"github.com/asarsync/asarsync/client/internal/updatemanager/release"
	"github.com/asarsync/asarsync/util"
)

const (
	defaultOwner = "Lisoph"
	defaultRepo  = "mmottv"

	configFlag = "config"
	noTrayFlag = "no-tray"
)

var (
	dataDir           string
	configPath        string
	logLevel          string
	logFile           string
	owner             string
	repo              string
	githubToken       string
	apiURL            string
	artifactPath      string
	targetName        string
	targetExecutable  string
	sevenZipPath      string
	stagingDir        string
	digestAlgorithm   string
	pollInterval      time.Duration
	pollGranularity   time.Duration
	gracePeriod       time.Duration
	finalGracePeriod  time.Duration
	graceGranularity  time.Duration
	settleDelay       time.Duration
	keepBackups       int
	downloadTimeout   time.Duration
	noTray            bool
	defaultConfigPath string
	defaultLogFile    string
	rootCmd           = &cobra.Command{
		Use:   "asarsync",
		Short: "keeps the Mattermost desktop app.asar in sync with GitHub releases",
		Long: "asarsync polls the latest GitHub release of a repository, and when its app.asar differs " +
			"from the installed one, announces the update, stops the application, swaps the file and restarts it.",
		SilenceUsage: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	dataDir = defaultDataDir()
	defaultConfigPath = filepath.Join(dataDir, "config.json")
	defaultLogFile = filepath.Join(dataDir, "asarsync.log")

	// assigned here, runFunc reads rootCmd
	rootCmd.RunE = runFunc

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, configFlag, "c", defaultConfigPath, "asarsync config file location, flags not given on the command line are read from it")
	flags.StringVarP(&logLevel, "log-level", "l", "info", "sets asarsync log level")
	flags.StringVar(&logFile, "log-file", defaultLogFile, "sets asarsync log path. If console is specified the log will be output to stderr")
	flags.StringVar(&owner, "owner", defaultOwner, "GitHub owner of the release repository")
	flags.StringVar(&repo, "repo", defaultRepo, "GitHub release repository")
	flags.StringVar(&githubToken, "github-token", "", "GitHub token used for the release feed, raises the API rate limit")
	flags.StringVar(&apiURL, "api-url", release.DefaultBaseURL, "GitHub REST API base URL")
	flags.StringVar(&artifactPath, "artifact-path", "", "path of the installed app.asar (default: the platform install location)")
	flags.StringVar(&targetName, "target-name", target.DefaultTargetName, "process name of the application to stop and restart")
	flags.StringVar(&targetExecutable, "target-executable", "", "executable started after an update (default: derived from the artifact path)")
	flags.StringVar(&sevenZipPath, "sevenzip-path", extract.DefaultSevenZipBinary(), "7z binary used to unpack .7z assets")
	flags.StringVar(&stagingDir, "staging-dir", "", "directory for downloads, on the artifact filesystem to keep the swap a rename (default: the OS temp dir)")
	flags.StringVar(&digestAlgorithm, "digest", string(integrity.SHA256), "digest used to compare artifacts [sha256|blake2s]")
	flags.DurationVar(&pollInterval, "poll-interval", updatemanager.DefaultPollInterval, "time between release checks")
	flags.DurationVar(&pollGranularity, "poll-granularity", updatemanager.DefaultPollGranularity, "how often a shutdown request is checked while waiting for the next check")
	flags.DurationVar(&gracePeriod, "grace-period", updatemanager.DefaultGracePeriod, "wait after the update announcement")
	flags.DurationVar(&finalGracePeriod, "final-grace-period", updatemanager.DefaultFinalGracePeriod, "wait after the final warning before the application is stopped")
	flags.DurationVar(&graceGranularity, "grace-granularity", updatemanager.DefaultGraceGranularity, "how often a shutdown request is checked during the grace periods")
	flags.DurationVar(&settleDelay, "settle-delay", updatemanager.DefaultSettleDelay, "wait after stopping the application before the swap")
	flags.DurationVar(&downloadTimeout, "download-timeout", downloader.DefaultTimeout, "deadline for a single asset download attempt")
	flags.IntVar(&keepBackups, "keep-backups", 0, "number of artifact backups to keep, 0 keeps all")

	flags.BoolVar(&noTray, noTrayFlag, false, "run without the system tray icon")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(serviceRunCmd, startCmd, stopCmd, restartCmd) // service control commands are subcommands of service
	serviceCmd.AddCommand(installCmd, uninstallCmd)                     // service installer commands are subcommands of service
}

// defaultDataDir keeps config, logs and the last update result per user
func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "asarsync")
}

// SetupCloseHandler handles SIGTERM signal and exits with success
func SetupCloseHandler(ctx context.Context, cancel context.CancelFunc) {
	termCh := make(chan os.Signal, 1)
	signal.Notify(termCh, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(termCh)

		done := ctx.Done()
		select {
		case <-done:
		case <-termCh:
		}

		log.Info("shutdown signal received")
		cancel()
	}()
}

// loadFlags applies environment variables and the config file to every flag
// not given on the command line. Precedence: command line, environment,
// config file, default.
func loadFlags(cmd *cobra.Command) error {
	util.SetFlagsFromEnvVars(rootCmd)
	cmd.SetOut(cmd.OutOrStdout())

	return applyConfigFile(rootCmd.PersistentFlags(), configPath)
}

// applyConfigFile reads a JSON object of flag names to values. A missing file
// at the default location is not an error.
func applyConfigFile(flags *pflag.FlagSet, path string) error {
	if path == "" {
		return nil
	}
	if !util.FileExists(path) {
		if flags.Changed(configFlag) {
			return fmt.Errorf("config file %s not found", path)
		}
		return nil
	}

	values := map[string]interface{}{}
	if _, err := util.ReadJsonWithEnvSub(path, &values); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	for name, value := range values {
		f := flags.Lookup(name)
		if f == nil {
			log.Warnf("ignoring unknown setting %q in %s", name, path)
			continue
		}
		if f.Changed || name == configFlag {
			continue
		}
		if err := flags.Set(name, fmt.Sprint(value)); err != nil {
			return fmt.Errorf("invalid value for %q in %s: %w", name, path, err)
		}
	}
	return nil
}

// configValues are the flags persisted by "service install"
func configValues(flags *pflag.FlagSet) map[string]string {
	values := map[string]string{}
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Name == configFlag || !f.Changed {
			return
		}
		values[f.Name] = f.Value.String()
	})
	return values
}
