package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kardianos/service"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/asarsync/asarsync/client/ui"
	"github.com/asarsync/asarsync/util"
)

// serviceStopTimeout covers a cutover that already stopped the application
// and still has to swap and restart it
const serviceStopTimeout = 30 * time.Second

func (p *program) Start(s service.Service) error {
	// Start should not block. Do the actual work async.
	log.Info("starting asarsync service") //nolint
	go func() {
		defer close(p.done)
		if err := runAgent(context.Background(), p.signal, ui.NewHeadless()); err != nil {
			log.Errorf("asarsync service failed: %v", err)
			exitFn(1)
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.signal.Set()

	select {
	case <-p.done:
	case <-time.After(serviceStopTimeout):
		log.Warnf("update pipeline did not stop within %s", serviceStopTimeout)
	}
	log.Info("stopped asarsync service") //nolint
	return nil
}

func setupServiceCommand(cmd *cobra.Command) error {
	if err := loadFlags(cmd); err != nil {
		return err
	}
	util.SetFlagsFromEnvVars(serviceCmd)
	return nil
}

var serviceRunCmd = &cobra.Command{
	Use:   "run",
	Short: "runs asarsync as service",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := setupServiceCommand(cmd); err != nil {
			return err
		}

		if err := util.InitLog(logLevel, logFile); err != nil {
			return fmt.Errorf("failed initializing log %v", err)
		}

		cfg, err := newSVCConfig()
		if err != nil {
			return fmt.Errorf("create service config: %w", err)
		}

		s, err := newSVC(newProgram(), cfg)
		if err != nil {
			return err
		}
		return s.Run()
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "starts asarsync service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlService(cmd, "started", service.Service.Start)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "stops asarsync service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlService(cmd, "stopped", service.Service.Stop)
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "restarts asarsync service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return controlService(cmd, "restarted", service.Service.Restart)
	},
}

func controlService(cmd *cobra.Command, done string, action func(service.Service) error) error {
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

	if err := action(s); err != nil {
		return err
	}

	cmd.Printf("asarsync service has been %s\n", done)
	return nil
}
