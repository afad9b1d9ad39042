// Package execx wraps external process invocation behind a small
// interface so pipeline steps can be tested without spawning anything.
package execx

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
)

// Cmd describes a single external invocation.
type Cmd struct {
	Name  string
	Args  []string
	Env   []string
	Dir   string
	Stdin io.Reader
}

// Result carries the captured output and exit status of a finished
// invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner runs external commands. The local implementation shells out;
// tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// Local runs commands on the host through os/exec.
type Local struct{}

// NewLocal creates a new Local runner
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Run(ctx context.Context, cmd Cmd) (Result, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	err := c.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		return res, err
	}
	return res, nil
}
