package buildenv

import (
	"context"
	"fmt"
	"sort"

	"github.com/shipper-ci/shipper/internal/execx"
)

// Environment is the external build-environment contract: a named
// build image that can report the project version and run the build.
// Both operations run inside the image via the container runtime.
type Environment interface {
	// ReportVersion returns the single semantic-version-shaped string
	// the build environment derives for the current source tree.
	ReportVersion(ctx context.Context) (string, error)

	// Build compiles the project inside the image. env entries are
	// KEY=VALUE pairs exported into the build.
	Build(ctx context.Context, env map[string]string) error
}

// ContainerEnv runs the contract commands through a container runtime
// on the host.
type ContainerEnv struct {
	Image   string
	WorkDir string
	Runtime string
	Exec    execx.Runner
}

// NewContainerEnv creates a ContainerEnv using the docker CLI as the
// runtime.
func NewContainerEnv(image, workDir string, runner execx.Runner) *ContainerEnv {
	return &ContainerEnv{
		Image:   image,
		WorkDir: workDir,
		Runtime: "docker",
		Exec:    runner,
	}
}

func (e *ContainerEnv) ReportVersion(ctx context.Context) (string, error) {
	res, err := e.Exec.Run(ctx, execx.Cmd{
		Name: e.Runtime,
		Args: e.runArgs(nil, "report-version"),
		Dir:  e.WorkDir,
	})
	if err != nil {
		return "", fmt.Errorf("report-version exited %d: %w", res.ExitCode, err)
	}
	return res.Stdout, nil
}

func (e *ContainerEnv) Build(ctx context.Context, env map[string]string) error {
	res, err := e.Exec.Run(ctx, execx.Cmd{
		Name: e.Runtime,
		Args: e.runArgs(env, "build"),
		Dir:  e.WorkDir,
	})
	if err != nil {
		return fmt.Errorf("build exited %d: %w", res.ExitCode, err)
	}
	return nil
}

// runArgs assembles the container invocation: the source tree mounted
// at /workspace, env exported, then the contract command.
func (e *ContainerEnv) runArgs(env map[string]string, command string) []string {
	args := []string{"run", "--rm", "-v", e.WorkDir + ":/workspace", "-w", "/workspace"}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+env[k])
	}
	return append(args, e.Image, command)
}
