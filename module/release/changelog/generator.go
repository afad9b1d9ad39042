// Package changelog drives the external changelog tool that documents
// all changes between the last published release and the derived
// version.
package changelog

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/shipper-ci/shipper/internal/execx"
	"github.com/shipper-ci/shipper/module/release/run"
	"github.com/shipper-ci/shipper/util/common/errors"
)

// DefaultTool is the changelog generator binary invoked on the path.
const DefaultTool = "github-changelog-generator"

// CategoryLabels maps changelog sections to the issue labels collected
// into them.
var CategoryLabels = map[string]string{
	"bug":      "kind/bug",
	"feature":  "kind/feature",
	"breaking": "kind/breaking",
	"security": "area/security",
}

// ExcludedLabels are never included in a generated changelog.
var ExcludedLabels = []string{
	"duplicate",
	"question",
	"invalid",
	"wontfix",
	"priority/wontfix",
}

// Generator assembles and runs the changelog tool invocation. The
// whole document is regenerated on every run, never appended to.
type Generator struct {
	Tool        string
	Project     string
	Branch      string
	TokenSecret string
	OutputPath  string
	Exec        execx.Runner
}

// NewGenerator creates a Generator with the default tool binary.
func NewGenerator(project, branch, tokenSecret, outputPath string, runner execx.Runner) *Generator {
	return &Generator{
		Tool:        DefaultTool,
		Project:     project,
		Branch:      branch,
		TokenSecret: tokenSecret,
		OutputPath:  outputPath,
		Exec:        runner,
	}
}

// Args builds the tool's argument list for the given version. The
// future (not-yet-tagged) release is named exactly "v<version>". The
// token is excluded: it travels in the environment, never in argv.
func (g *Generator) Args(version string) []string {
	args := []string{
		"--project", g.Project,
		"--release-branch", g.Branch,
		"--future-release", "v" + version,
		"--output", g.OutputPath,
	}

	categories := make([]string, 0, len(CategoryLabels))
	for category := range CategoryLabels {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		args = append(args, fmt.Sprintf("--%s-labels", category), CategoryLabels[category])
	}

	for _, label := range ExcludedLabels {
		args = append(args, "--exclude-labels", label)
	}
	return args
}

// Generate looks up the token and runs the tool. An absent or empty
// token fails before any invocation; so does a non-zero tool exit.
func (g *Generator) Generate(ctx context.Context, rc *run.Context) error {
	version, err := rc.Version()
	if err != nil {
		return errors.NewChangelogGenerationError("no derived version available", err)
	}

	token, err := rc.Secrets.Lookup(ctx, g.TokenSecret)
	if err != nil || token == "" {
		return errors.NewChangelogGenerationError(
			fmt.Sprintf("token secret %q unavailable", g.TokenSecret), err)
	}

	log.Info().
		Str("project", g.Project).
		Str("future_release", "v"+version).
		Str("branch", g.Branch).
		Msg("Generating changelog")

	res, err := g.Exec.Run(ctx, execx.Cmd{
		Name: g.Tool,
		Args: g.Args(version),
		Env:  []string{"CHANGELOG_GITHUB_TOKEN=" + token},
		Dir:  rc.WorkDir,
	})
	if err != nil {
		return errors.NewChangelogGenerationError(
			fmt.Sprintf("%s exited %d", g.Tool, res.ExitCode), err)
	}

	log.Info().Str("output", g.OutputPath).Msg("Changelog written")
	return nil
}
