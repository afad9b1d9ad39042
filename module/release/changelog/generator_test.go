package changelog

import (
	"context"
	"strings"
	"testing"

	"github.com/shipper-ci/shipper/internal/execx"
	"github.com/shipper-ci/shipper/module/release/run"
	"github.com/shipper-ci/shipper/module/release/secret"
	"github.com/shipper-ci/shipper/module/release/types"
	"github.com/shipper-ci/shipper/util/common/errors"
)

type recordingRunner struct {
	last execx.Cmd
	err  error
}

func (r *recordingRunner) Run(_ context.Context, cmd execx.Cmd) (execx.Result, error) {
	r.last = cmd
	if r.err != nil {
		return execx.Result{ExitCode: 1}, r.err
	}
	return execx.Result{}, nil
}

type staticSecrets map[string]string

func (s staticSecrets) Lookup(_ context.Context, name string) (string, error) {
	v, ok := s[name]
	if !ok {
		return "", errors.ErrSecretNotFound
	}
	return v, nil
}

func testRunContext(t *testing.T, secrets secret.Source, runner execx.Runner) *run.Context {
	t.Helper()
	rc := run.New(run.Options{
		Desc:    &types.Description{Project: "proxy", VersionFile: "build/version.txt"},
		WorkDir: t.TempDir(),
		Secrets: secrets,
		Exec:    runner,
	})
	rc.SetVersion("1.4.0")
	return rc
}

func TestArgsNamesFutureRelease(t *testing.T) {
	g := NewGenerator("proxy", "release/1.4", "changelog-token", "CHANGELOG.md", nil)
	args := g.Args("1.4.0")
	joined := strings.Join(args, " ")

	if !strings.Contains(joined, "--future-release v1.4.0") {
		t.Errorf("args missing future release: %s", joined)
	}
	if !strings.Contains(joined, "--release-branch release/1.4") {
		t.Errorf("args missing release branch: %s", joined)
	}
	if !strings.Contains(joined, "--bug-labels kind/bug") ||
		!strings.Contains(joined, "--feature-labels kind/feature") ||
		!strings.Contains(joined, "--breaking-labels kind/breaking") ||
		!strings.Contains(joined, "--security-labels area/security") {
		t.Errorf("args missing category labels: %s", joined)
	}
	for _, label := range []string{"duplicate", "question", "invalid", "wontfix", "priority/wontfix"} {
		if !strings.Contains(joined, "--exclude-labels "+label) {
			t.Errorf("args missing excluded label %s: %s", label, joined)
		}
	}
}

func TestGenerateInvokesTool(t *testing.T) {
	runner := &recordingRunner{}
	rc := testRunContext(t, staticSecrets{"changelog-token": "tok123"}, runner)

	g := NewGenerator("proxy", "main", "changelog-token", "CHANGELOG.md", runner)
	if err := g.Generate(context.Background(), rc); err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}

	if runner.last.Name != DefaultTool {
		t.Errorf("tool = %q, want %q", runner.last.Name, DefaultTool)
	}
	args := strings.Join(runner.last.Args, " ")
	if strings.Contains(args, "tok123") {
		t.Error("token leaked into argv")
	}
	var tokenInEnv bool
	for _, e := range runner.last.Env {
		if e == "CHANGELOG_GITHUB_TOKEN=tok123" {
			tokenInEnv = true
		}
	}
	if !tokenInEnv {
		t.Error("token not passed through the environment")
	}
}

func TestGenerateMissingToken(t *testing.T) {
	runner := &recordingRunner{}
	rc := testRunContext(t, staticSecrets{}, runner)

	g := NewGenerator("proxy", "main", "changelog-token", "CHANGELOG.md", runner)
	err := g.Generate(context.Background(), rc)
	if err == nil {
		t.Fatal("Generate() expected error for missing token")
	}
	var clErr *errors.ChangelogGenerationError
	if !errors.As(err, &clErr) {
		t.Errorf("Generate() error = %v, want ChangelogGenerationError", err)
	}
	if runner.last.Name != "" {
		t.Error("tool was invoked despite missing token")
	}
}

func TestGenerateToolFailure(t *testing.T) {
	runner := &recordingRunner{err: errors.ErrInvalidArgument}
	rc := testRunContext(t, staticSecrets{"changelog-token": "tok123"}, runner)

	g := NewGenerator("proxy", "main", "changelog-token", "CHANGELOG.md", runner)
	err := g.Generate(context.Background(), rc)
	var clErr *errors.ChangelogGenerationError
	if !errors.As(err, &clErr) {
		t.Errorf("Generate() error = %v, want ChangelogGenerationError", err)
	}
}

func TestGenerateRequiresDerivedVersion(t *testing.T) {
	runner := &recordingRunner{}
	rc := run.New(run.Options{
		Desc:    &types.Description{Project: "proxy"},
		Secrets: staticSecrets{"changelog-token": "tok123"},
		Exec:    runner,
	})

	g := NewGenerator("proxy", "main", "changelog-token", "CHANGELOG.md", runner)
	if err := g.Generate(context.Background(), rc); err == nil {
		t.Error("Generate() without a derived version expected error")
	}
}
