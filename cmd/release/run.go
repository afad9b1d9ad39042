package release

import (
	"github.com/spf13/cobra"

	"github.com/shipper-ci/shipper/cmd/cmdutils"
	"github.com/shipper-ci/shipper/module/release"
)

func newRunCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the whole release pipeline",
		Long: "Run every pipeline step in order: resolve parameters, provide the " +
			"build image, archive dependency licenses, derive the version, build, " +
			"generate the changelog and publish the artifact set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadDescription()
			if err != nil {
				return err
			}
			overrides, err := substitutionOverrides()
			if err != nil {
				return err
			}

			deps := f.Deps(true)
			rc, err := newRunContext(desc, deps)
			if err != nil {
				return err
			}

			rc.Reporter.Start("release pipeline for " + desc.Project)
			pipeline := release.New(desc, overrides, deps)
			return pipeline.Execute(cmd.Context(), rc)
		},
	}
}
