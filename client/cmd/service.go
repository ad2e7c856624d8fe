package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/asarsync/asarsync/client/internal/quit"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the asarsync background service",
}

var (
	serviceName    string
	serviceEnvVars []string
	userService    bool
)

type program struct {
	signal *quit.Signal
	done   chan struct{}
}

func init() {
	serviceEnvDesc := `Sets extra environment variables for the service. ` +
		`You can specify a comma-separated list of KEY=VALUE pairs. ` +
		`E.g. --service-env ASARSYNC_LOG_LEVEL=debug,CUSTOM_VAR=value`

	serviceCmd.PersistentFlags().StringVarP(&serviceName, "service", "s", "asarsync", "asarsync service name")
	serviceCmd.PersistentFlags().BoolVar(&userService, "user-service", runtime.GOOS != "windows",
		"install as a service of the current user, needed to stop and start the desktop application of that user")
	installCmd.Flags().StringSliceVar(&serviceEnvVars, "service-env", nil, serviceEnvDesc)
}

func newProgram() *program {
	return &program{
		signal: quit.NewSignal(),
		done:   make(chan struct{}),
	}
}

func newSVCConfig() (*service.Config, error) {
	config := &service.Config{
		Name:        serviceName,
		DisplayName: "asarsync",
		Description: "Keeps the Mattermost desktop app.asar in sync with GitHub releases",
		Option:      make(service.KeyValue),
		EnvVars:     make(map[string]string),
	}

	if userService {
		config.Option["UserService"] = true
	}

	if len(serviceEnvVars) > 0 {
		extraEnvs, err := parseServiceEnvVars(serviceEnvVars)
		if err != nil {
			return nil, fmt.Errorf("parse service environment variables: %w", err)
		}
		config.EnvVars = extraEnvs
	}

	return config, nil
}

func newSVC(prg *program, conf *service.Config) (service.Service, error) {
	return service.New(prg, conf)
}

func parseServiceEnvVars(envVars []string) (map[string]string, error) {
	envMap := make(map[string]string)

	for _, env := range envVars {
		if env == "" {
			continue
		}

		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid environment variable format: %s (expected KEY=VALUE)", env)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if key == "" {
			return nil, fmt.Errorf("empty environment variable key in: %s", env)
		}

		envMap[key] = value
	}

	return envMap, nil
}
