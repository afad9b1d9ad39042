package buildenv

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/shipper-ci/shipper/internal/execx"
	"github.com/shipper-ci/shipper/module/release/types"
	"github.com/shipper-ci/shipper/util/common/errors"
)

type scriptedRunner struct {
	commands []string
	failOn   string
}

func (r *scriptedRunner) Run(_ context.Context, cmd execx.Cmd) (execx.Result, error) {
	line := strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
	r.commands = append(r.commands, line)
	if r.failOn != "" && strings.Contains(line, r.failOn) {
		return execx.Result{ExitCode: 1, Stderr: "stage failed"}, fmt.Errorf("exit status 1")
	}
	return execx.Result{}, nil
}

func testProvider(runner execx.Runner) *Provider {
	return NewProvider(types.BuildImageSpec{
		Reference:        "registry.example.com/proxy/build",
		ToolchainVersion: "1.74.0",
		Recipe: &types.Recipe{
			Packages:         []string{"curl", "build-essential"},
			InstallerURL:     "https://toolchain.example.com/install.sh",
			Components:       []string{"rustfmt", "clippy"},
			SecondaryChannel: "nightly",
			Tools:            []string{"mdbook"},
		},
	}, nil, runner)
}

func TestProvisionRunsRecipeStagesInOrder(t *testing.T) {
	runner := &scriptedRunner{}
	p := testProvider(runner)

	if err := p.provision(context.Background()); err != nil {
		t.Fatalf("provision() unexpected error: %v", err)
	}

	wantPrefixes := []string{
		"apt-get install -y curl build-essential",
		"sh -c curl -sSf https://toolchain.example.com/install.sh",
		"rustup component add rustfmt",
		"rustup component add clippy",
		"rustup toolchain install nightly",
		"cargo install mdbook",
	}
	if len(runner.commands) != len(wantPrefixes) {
		t.Fatalf("commands = %v", runner.commands)
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(runner.commands[i], prefix) {
			t.Errorf("command[%d] = %q, want prefix %q", i, runner.commands[i], prefix)
		}
	}
}

func TestProvisionPinsToolchainVersion(t *testing.T) {
	runner := &scriptedRunner{}
	p := testProvider(runner)

	if err := p.provision(context.Background()); err != nil {
		t.Fatalf("provision() unexpected error: %v", err)
	}
	if !strings.Contains(runner.commands[1], "--default-toolchain 1.74.0") {
		t.Errorf("installer invocation %q does not pin the toolchain", runner.commands[1])
	}
}

func TestProvisionFailureAbortsWithStage(t *testing.T) {
	tests := []struct {
		name      string
		failOn    string
		wantStage string
		wantRuns  int
	}{
		{
			name:      "package install fails",
			failOn:    "apt-get",
			wantStage: "os-packages",
			wantRuns:  1,
		},
		{
			name:      "component add fails",
			failOn:    "component add clippy",
			wantStage: "component-clippy",
			wantRuns:  4,
		},
		{
			name:      "tool install fails",
			failOn:    "cargo install",
			wantStage: "tool-mdbook",
			wantRuns:  6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &scriptedRunner{failOn: tt.failOn}
			p := testProvider(runner)

			err := p.provision(context.Background())
			var provErr *errors.EnvironmentProvisioningError
			if !errors.As(err, &provErr) {
				t.Fatalf("provision() error = %v, want EnvironmentProvisioningError", err)
			}
			if provErr.Stage != tt.wantStage {
				t.Errorf("Stage = %q, want %q", provErr.Stage, tt.wantStage)
			}
			// No stage runs past the failure.
			if len(runner.commands) != tt.wantRuns {
				t.Errorf("commands ran = %v, want %d invocations", runner.commands, tt.wantRuns)
			}
		})
	}
}
