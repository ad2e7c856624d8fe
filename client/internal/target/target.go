package target

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/v3/process"
	log "github.com/sirupsen/logrus"

	nberrors "github.com/asarsync/asarsync/client/errors"
)

// Lifecycle stops and starts the application that owns the artifact
type Lifecycle interface {
	Stop(ctx context.Context) error
	Start(ctx context.Context) error
}

// Process controls the target application through the OS process table
type Process struct {
	name       string
	executable string

	// overridable in tests
	listProcesses func(ctx context.Context) ([]*process.Process, error)
	ownedByUser   func(p *process.Process) bool
}

// NewProcess returns a lifecycle for processes called name, restarted from
// executable
func NewProcess(name, executable string) *Process {
	return &Process{
		name:          name,
		executable:    executable,
		listProcesses: process.ProcessesWithContext,
		ownedByUser:   isProcessOwnedByCurrentUser,
	}
}

func (p *Process) Name() string {
	return p.name
}

func (p *Process) Executable() string {
	return p.executable
}

// Stop kills every running instance of the target owned by the current user.
// A failure on one instance does not stop the others; all failures are
// returned together.
func (p *Process) Stop(ctx context.Context) error {
	procs, err := p.listProcesses(ctx)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	var merr *multierror.Error
	killed := 0
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			// the process may have exited between listing and inspection
			continue
		}
		if !p.matches(name) || !p.ownedByUser(proc) {
			continue
		}

		if err := proc.KillWithContext(ctx); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("kill %s (pid %d): %w", name, proc.Pid, err))
			continue
		}
		killed++
		log.Debugf("killed %s (pid %d)", name, proc.Pid)
	}

	log.Infof("stopped %d instance(s) of %s", killed, p.name)
	return nberrors.FormatErrorOrNil(merr)
}

// Start launches the target executable detached from the agent
func (p *Process) Start(_ context.Context) error {
	cmd := exec.Command(p.executable)
	setDetachedProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", p.executable, err)
	}

	log.Infof("started %s with PID %d", p.executable, cmd.Process.Pid)

	if err := cmd.Process.Release(); err != nil {
		log.Warnf("failed to release process %s: %v", p.executable, err)
	}
	return nil
}

func (p *Process) matches(processName string) bool {
	trimmed := strings.TrimSuffix(strings.ToLower(processName), ".exe")
	return trimmed == strings.ToLower(p.name)
}
