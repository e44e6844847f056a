package engine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/tessro/muffle/internal/config"
)

// ControlStatus is what the engine process reports about itself.
type ControlStatus struct {
	Running   bool
	Ready     bool
	Available bool
}

// Control starts and inspects the local playback engine.
type Control interface {
	Status(ctx context.Context) (ControlStatus, error)
	Restart(ctx context.Context) error
	Auth(ctx context.Context, accessToken string) error
	// Ready is closed once the running engine has signed in.
	Ready() <-chan struct{}
}

// ProcessControl runs the engine binary as a child process.
type ProcessControl struct {
	mu          sync.Mutex
	binary      string
	args        []string
	name        string
	readyMarker string
	token       string

	cmd    *exec.Cmd
	exited chan struct{}
	ready  chan struct{}

	logger *zap.Logger
}

// NewProcessControl creates a control for cfg.Binary. Nothing is started
// until Restart or Auth.
func NewProcessControl(cfg config.EngineConfig, logger *zap.Logger) *ProcessControl {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessControl{
		binary:      cfg.Binary,
		args:        cfg.Args,
		name:        cfg.DeviceName,
		readyMarker: cfg.ReadyMarker,
		ready:       make(chan struct{}),
		logger:      logger,
	}
}

// Status reports binary availability, liveness of the child or of an
// engine started elsewhere, and readiness.
func (p *ProcessControl) Status(ctx context.Context) (ControlStatus, error) {
	_, lookErr := exec.LookPath(p.binary)

	p.mu.Lock()
	owned := p.cmd != nil && p.cmd.Process != nil
	var pid int32
	if owned {
		pid = int32(p.cmd.Process.Pid)
	}
	ready := isClosed(p.ready)
	p.mu.Unlock()

	st := ControlStatus{Available: lookErr == nil, Ready: ready}

	if owned {
		if proc, err := process.NewProcessWithContext(ctx, pid); err == nil {
			st.Running, _ = proc.IsRunningWithContext(ctx)
		}
		if !st.Running {
			st.Ready = false
		}
		return st, nil
	}

	external, err := p.findExternal(ctx)
	if err != nil {
		return st, err
	}
	if external {
		// Started outside muffle; assume it finished signing in.
		st.Running = true
		st.Ready = true
	}
	return st, nil
}

func (p *ProcessControl) findExternal(ctx context.Context) (bool, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list processes: %w", err)
	}
	want := filepath.Base(p.binary)
	for _, proc := range procs {
		name, err := proc.NameWithContext(ctx)
		if err == nil && name == want {
			return true, nil
		}
	}
	return false, nil
}

// Restart stops the child, if any, and starts a fresh one.
func (p *ProcessControl) Restart(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	args := append([]string{}, p.args...)
	if p.name != "" {
		args = append(args, "--name", p.name)
	}
	if p.token != "" {
		args = append(args, "--access-token", p.token)
	}

	// Not bound to ctx: the engine outlives the call that started it.
	cmd := exec.Command(p.binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to attach engine stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("failed to attach engine stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", p.binary, err)
	}

	p.cmd = cmd
	p.ready = make(chan struct{})
	p.exited = make(chan struct{})

	ready, exited := p.ready, p.exited
	var once sync.Once
	markReady := func() {
		once.Do(func() { close(ready) })
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go p.scan(stdout, markReady, &wg)
	go p.scan(stderr, markReady, &wg)
	go func() {
		wg.Wait()
		err := cmd.Wait()
		p.logger.Debug("engine exited", zap.Error(err))
		close(exited)
	}()

	p.logger.Info("engine started", zap.String("binary", p.binary), zap.Int("pid", cmd.Process.Pid))
	return nil
}

func (p *ProcessControl) scan(r io.Reader, markReady func(), wg *sync.WaitGroup) {
	defer wg.Done()
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		p.logger.Debug("engine", zap.String("line", line))
		if p.readyMarker != "" && strings.Contains(line, p.readyMarker) {
			markReady()
		}
	}
}

// Auth restarts the engine signed in with accessToken. An unchanged token
// is a no-op while the engine runs.
func (p *ProcessControl) Auth(ctx context.Context, accessToken string) error {
	p.mu.Lock()
	unchanged := accessToken == p.token && p.cmd != nil
	p.token = accessToken
	p.mu.Unlock()

	if unchanged {
		return nil
	}
	return p.Restart(ctx)
}

// Owned reports whether muffle started the running engine itself.
func (p *ProcessControl) Owned() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// Ready returns the readiness channel of the current child.
func (p *ProcessControl) Ready() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// Stop terminates the child and waits for it to exit.
func (p *ProcessControl) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *ProcessControl) stopLocked() {
	if p.cmd == nil || p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Kill()
	<-p.exited
	p.cmd = nil
	p.ready = make(chan struct{})
}

func isClosed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
