// Package release holds the `shipper release` command group.
package release

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/shipper-ci/shipper/cmd/cmdutils"
	"github.com/shipper-ci/shipper/config"
	"github.com/shipper-ci/shipper/internal/terminal"
	"github.com/shipper-ci/shipper/module/release"
	"github.com/shipper-ci/shipper/module/release/run"
	"github.com/shipper-ci/shipper/module/release/types"
	"github.com/shipper-ci/shipper/util/common/progress"
	"github.com/shipper-ci/shipper/util/common/vcs"
)

// GetRootCmd returns the release command group.
func GetRootCmd(f *cmdutils.Factory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release pipeline commands",
		Long:  "Run the release-build pipeline, whole or step by step.",
	}

	cmd.AddCommand(newRunCmd(f))
	cmd.AddCommand(newResolveCmd(f))
	cmd.AddCommand(newLicensesCmd(f))
	cmd.AddCommand(newVersionCmd(f))
	cmd.AddCommand(newChangelogCmd(f))
	cmd.AddCommand(newPublishCmd(f))
	return cmd
}

// loadDescription reads the pipeline description named by the global
// flag and applies global overrides.
func loadDescription() (*types.Description, error) {
	path := config.Global.PipelineFile
	if path == "" {
		path = "shipper.yaml"
	}
	desc, err := types.Load(path)
	if err != nil {
		return nil, err
	}
	if config.Global.ProjectID != "" {
		desc.Project = config.Global.ProjectID
	}
	if config.Global.Timeout > 0 {
		desc.Timeout = types.Duration(config.Global.Timeout)
	}
	return desc, nil
}

// substitutionOverrides parses the repeatable --substitution KEY=VALUE
// flags.
func substitutionOverrides() (map[string]string, error) {
	overrides := map[string]string{}
	for _, raw := range config.Global.Substitutions {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("substitution %q is not KEY=VALUE", raw)
		}
		overrides[key] = value
	}
	return overrides, nil
}

// newRunContext builds the shared run context for a command.
func newRunContext(desc *types.Description, deps release.Deps) (*run.Context, error) {
	workDir := config.Global.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		workDir = wd
	}
	applyRepoMetadata(desc, workDir)
	return run.New(run.Options{
		Desc:     desc,
		WorkDir:  workDir,
		Secrets:  deps.Secrets,
		Exec:     deps.Exec,
		Reporter: progress.NewAutoReporter(terminal.Detect(config.Global.NoColor || terminal.IsCI())),
	}), nil
}

// applyRepoMetadata fills changelog defaults from the checked-out
// repository and records run provenance. Best effort: a missing or
// unreadable repository leaves the description untouched.
func applyRepoMetadata(desc *types.Description, workDir string) {
	repo, err := vcs.NewGitRepository(workDir)
	if err != nil {
		return
	}
	info, err := repo.Info()
	if err != nil {
		log.Debug().Err(err).Msg("could not read repository metadata")
		return
	}
	if desc.Changelog.Branch == "" {
		desc.Changelog.Branch = info.Branch
	}
	log.Info().
		Str("branch", info.Branch).
		Str("commit", info.Commit).
		Msg("run provenance")
}
