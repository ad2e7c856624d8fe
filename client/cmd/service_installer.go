package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/asarsync/asarsync/util"
)

// buildServiceArguments points the service at the config file written on install
func buildServiceArguments() []string {
	return []string{
		"service",
		"run",
		"--config",
		configPath,
		"--service",
		serviceName,
	}
}

// Configure platform-specific service settings
func configurePlatformSpecificSettings(svcConfig *service.Config) {
	if runtime.GOOS == "linux" {
		// Respected only by systemd systems
		svcConfig.Dependencies = []string{"After=network-online.target graphical-session.target"}

		if logFile != "" && logFile != util.ConsoleLog {
			dir := filepath.Dir(logFile)
			if err := os.MkdirAll(dir, 0o750); err == nil {
				svcConfig.Option["LogOutput"] = true
				svcConfig.Option["LogDirectory"] = dir
			}
		}
	}

	if runtime.GOOS == "windows" {
		svcConfig.Option["OnFailure"] = "restart"
	}
}

// Create fully configured service config for install
func createServiceConfigForInstall() (*service.Config, error) {
	svcConfig, err := newSVCConfig()
	if err != nil {
		return nil, fmt.Errorf("create service config: %w", err)
	}

	svcConfig.Arguments = buildServiceArguments()
	configurePlatformSpecificSettings(svcConfig)

	return svcConfig, nil
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "installs asarsync service, persisting the given flags to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupServiceCommand(cmd); err != nil {
			return err
		}

		// the service runs headless whatever the session has
		values := configValues(rootCmd.PersistentFlags())
		delete(values, noTrayFlag)
		if err := util.WriteJson(context.Background(), configPath, values); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}
		cmd.Printf("Settings written to %s\n", configPath)

		svcConfig, err := createServiceConfigForInstall()
		if err != nil {
			return err
		}

		s, err := newSVC(newProgram(), svcConfig)
		if err != nil {
			return err
		}

		if err := s.Install(); err != nil {
			return fmt.Errorf("install service: %w", err)
		}

		cmd.Println("asarsync service has been installed")
		return nil
	},
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "uninstalls asarsync service from system",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupServiceCommand(cmd); err != nil {
			return err
		}

		cfg, err := newSVCConfig()
		if err != nil {
			return fmt.Errorf("create service config: %w", err)
		}

		s, err := newSVC(newProgram(), cfg)
		if err != nil {
			return err
		}

		if err := s.Uninstall(); err != nil {
			return fmt.Errorf("uninstall service: %w", err)
		}

		cmd.Println("asarsync service has been uninstalled")
		return nil
	},
}
