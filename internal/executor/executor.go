package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Runner runs an external command and hands back what it printed.
type Runner interface {
	Run(ctx context.Context, command *Cmd) (Output, error)
}

// Output holds the captured streams of a finished command. ExitCode is
// -1 when the process never started or was killed by a signal.
type Output struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

type Executor struct {
	logger log.FieldLogger
}

func NewExecutor(logger log.FieldLogger) *Executor {
	e := &Executor{logger: logger}
	return e
}

// Run executes the command and captures stdout and stderr separately.
// A non-zero exit is reported through Output.ExitCode, not as an error;
// the error is only set when the binary could not be run at all.
func (e *Executor) Run(ctx context.Context, command *Cmd) (Output, error) {
	entry := e.logger.WithField("cmd", command.String())
	entry.Debug("exec")

	start := time.Now()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command.Binary, command.args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = append(os.Environ(), command.envs...)
	err := cmd.Run()

	out := Output{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: cmd.ProcessState.ExitCode(),
	}
	entry = entry.WithFields(log.Fields{
		"took": time.Since(start).String(),
		"exit": out.ExitCode,
	})

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			entry.Debug("exec finished with non-zero exit")
			return out, nil
		}
		entry.WithError(err).Debug("exec failed")
		return out, err
	}

	entry.Debug("exec finished")
	return out, nil
}

type Cmd struct {
	Binary string
	args   []string
	envs   []string
}

func NewCmd(binary string, args ...string) *Cmd {
	return &Cmd{Binary: binary, args: args}
}

func (c *Cmd) Add(args ...string) {
	c.args = append(c.args, args...)
}

func (c *Cmd) Env(env string) {
	c.envs = append(c.envs, env)
}

func (c *Cmd) Command() []string {
	return c.args
}

func (c *Cmd) String() string {
	return strings.TrimSpace(c.Binary + " " + strings.Join(c.args, " "))
}
