package release

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shipper-ci/shipper/cmd/cmdutils"
	"github.com/shipper-ci/shipper/module/release"
	"github.com/shipper-ci/shipper/module/release/buildenv"
	"github.com/shipper-ci/shipper/module/release/changelog"
	"github.com/shipper-ci/shipper/module/release/publish"
	"github.com/shipper-ci/shipper/module/release/run"
	"github.com/shipper-ci/shipper/module/release/types"
	"github.com/shipper-ci/shipper/module/release/version"
	"github.com/shipper-ci/shipper/util/common/printer"
)

func newResolveCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve and print pipeline parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := loadDescription()
			if err != nil {
				return err
			}
			overrides, err := substitutionOverrides()
			if err != nil {
				return err
			}
			pipeline := release.New(desc, overrides, f.Deps(false))
			cfg, err := pipeline.Resolve()
			if err != nil {
				return err
			}

			type paramRow struct {
				Name  string `json:"name"`
				Value string `json:"value"`
			}
			rows := make([]paramRow, 0, len(cfg))
			for _, name := range cfg.Names() {
				rows = append(rows, paramRow{Name: name, Value: cfg[name]})
			}
			return printer.PrintTable(rows, printer.ColumnMapping{
				{"name", "Parameter"},
				{"value", "Value"},
			})
		},
	}
}

func newLicensesCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "licenses",
		Short: "Archive dependency license sources",
		Long: "Bundle the cached sources of every listed copyleft dependency into " +
			"the compliance archive, replacing any archive from a previous run.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, desc, err := prepare(f, false)
			if err != nil {
				return err
			}
			archiver, err := release.LicenseArchiver(desc, rc)
			if err != nil {
				return err
			}
			summary, err := archiver.Run(cmd.Context())
			if err != nil {
				return err
			}
			for _, dep := range summary.Missing {
				rc.Reporter.Warn("license source missing for " + dep)
			}
			return nil
		},
	}
}

func newVersionCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Derive the release version",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, desc, err := prepare(f, false)
			if err != nil {
				return err
			}
			ref, err := rc.Params.Expand(desc.BuildImage.Reference)
			if err != nil {
				return err
			}
			env := buildenv.NewContainerEnv(ref, rc.WorkDir, f.Exec())
			v, err := version.NewDeriver(env).Derive(cmd.Context(), rc)
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, v)
			return nil
		},
	}
}

func newChangelogCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "changelog",
		Short: "Generate the changelog for the derived version",
		Long:  "Requires the version file produced by `shipper release version`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, desc, err := prepare(f, false)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(rc.VersionFile())
			if err != nil {
				return fmt.Errorf("read version file (run `shipper release version` first): %w", err)
			}
			rc.SetVersion(string(data))

			generator := changelog.NewGenerator(
				desc.Project,
				desc.Changelog.Branch,
				desc.Changelog.TokenSecret,
				rc.Abs(desc.Changelog.OutputPath),
				f.Exec(),
			)
			return generator.Generate(cmd.Context(), rc)
		},
	}
}

func newPublishCmd(f *cmdutils.Factory) *cobra.Command {
	return &cobra.Command{
		Use:   "publish",
		Short: "Upload artifacts and push release images",
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, desc, err := prepare(f, true)
			if err != nil {
				return err
			}
			if data, err := os.ReadFile(rc.VersionFile()); err == nil {
				rc.SetVersion(string(data))
			}

			spec := desc.Artifacts
			bucket, err := rc.Params.Expand(spec.Bucket)
			if err != nil {
				return err
			}
			spec.Bucket = bucket
			publisher := publish.NewPublisher(f.ObjectStore(), spec, f.Keychain())
			return publisher.Publish(cmd.Context(), rc)
		},
	}
}

// prepare loads the description, resolves parameters and builds the
// run context shared by the single-step commands.
func prepare(f *cmdutils.Factory, withStore bool) (*run.Context, *types.Description, error) {
	desc, err := loadDescription()
	if err != nil {
		return nil, nil, err
	}
	overrides, err := substitutionOverrides()
	if err != nil {
		return nil, nil, err
	}
	deps := f.Deps(withStore)
	rc, err := newRunContext(desc, deps)
	if err != nil {
		return nil, nil, err
	}
	pipeline := release.New(desc, overrides, deps)
	cfg, err := pipeline.Resolve()
	if err != nil {
		return nil, nil, err
	}
	rc.Params = cfg
	return rc, desc, nil
}
