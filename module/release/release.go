// Package release assembles the fixed step list of the build/release
// pipeline and runs it to completion or failure.
package release

import (
	"context"
	"path/filepath"

	"github.com/google/go-containerregistry/pkg/authn"

	"github.com/shipper-ci/shipper/internal/execx"
	"github.com/shipper-ci/shipper/internal/store"
	"github.com/shipper-ci/shipper/module/release/buildenv"
	"github.com/shipper-ci/shipper/module/release/buildexec"
	"github.com/shipper-ci/shipper/module/release/changelog"
	"github.com/shipper-ci/shipper/module/release/engine"
	"github.com/shipper-ci/shipper/module/release/licensing"
	"github.com/shipper-ci/shipper/module/release/params"
	"github.com/shipper-ci/shipper/module/release/publish"
	"github.com/shipper-ci/shipper/module/release/run"
	"github.com/shipper-ci/shipper/module/release/secret"
	"github.com/shipper-ci/shipper/module/release/types"
	"github.com/shipper-ci/shipper/module/release/version"
)

// Step names, referenced by the Needs declarations below.
const (
	StepResolve   = "resolve-parameters"
	StepBuildEnv  = "provide-build-image"
	StepLicenses  = "archive-licenses"
	StepVersion   = "derive-version"
	StepBuild     = "build"
	StepChangelog = "generate-changelog"
	StepPublish   = "publish"
)

// Deps are the external collaborators a pipeline needs. Tests provide
// fakes; commands wire the real ones.
type Deps struct {
	Store    store.ObjectStore
	Keychain authn.Keychain
	Exec     execx.Runner
	Secrets  secret.Source
}

// Pipeline is one configured release run.
type Pipeline struct {
	desc      *types.Description
	overrides map[string]string
	deps      Deps
	runner    *engine.Runner
}

// New builds the pipeline for a description. overrides are
// caller-supplied substitutions taking precedence over declared
// defaults.
func New(desc *types.Description, overrides map[string]string, deps Deps) *Pipeline {
	p := &Pipeline{
		desc:      desc,
		overrides: overrides,
		deps:      deps,
	}
	p.runner = engine.NewRunner(desc.Timeout.Std(), p.steps()...)
	return p
}

// Execute runs the pipeline under its timeout.
func (p *Pipeline) Execute(ctx context.Context, rc *run.Context) error {
	return p.runner.Execute(ctx, rc)
}

// Resolve runs only the parameter resolution against the pipeline's
// description and overrides.
func (p *Pipeline) Resolve() (params.Config, error) {
	return resolveParams(p.desc, p.overrides)
}

func resolveParams(desc *types.Description, overrides map[string]string) (params.Config, error) {
	merged := make(map[string]string, len(desc.Substitutions)+len(overrides))
	for k, v := range desc.Substitutions {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	seed := run.Seed()
	if _, ok := seed["PROJECT_ID"]; !ok {
		seed["PROJECT_ID"] = desc.Project
	}
	return params.Resolve(desc.Parameters, merged, seed)
}

func (p *Pipeline) steps() []engine.Step {
	desc := p.desc
	return []engine.Step{
		{
			Name: StepResolve,
			Run: func(_ context.Context, rc *run.Context) error {
				cfg, err := resolveParams(desc, p.overrides)
				if err != nil {
					return err
				}
				rc.Params = cfg
				return nil
			},
		},
		{
			Name:  StepBuildEnv,
			Needs: []string{StepResolve},
			Run: func(ctx context.Context, rc *run.Context) error {
				ref, err := rc.Params.Expand(desc.BuildImage.Reference)
				if err != nil {
					return err
				}
				spec := desc.BuildImage
				spec.Reference = ref
				provider := buildenv.NewProvider(spec, p.deps.Keychain, p.deps.Exec)
				ensured, err := provider.Ensure(ctx)
				if err != nil {
					return err
				}
				if _, ok := rc.Params["BUILD_IMAGE_TAG"]; !ok {
					rc.Params["BUILD_IMAGE_TAG"] = ensured
				}
				return nil
			},
		},
		{
			Name:  StepLicenses,
			Needs: []string{StepResolve},
			Run: func(ctx context.Context, rc *run.Context) error {
				archiver, err := LicenseArchiver(desc, rc)
				if err != nil {
					return err
				}
				summary, err := archiver.Run(ctx)
				if err != nil {
					return err
				}
				for _, dep := range summary.Missing {
					rc.Reporter.Warn("license source missing for " + dep)
				}
				return nil
			},
		},
		{
			Name:  StepVersion,
			Needs: []string{StepBuildEnv},
			Run: func(ctx context.Context, rc *run.Context) error {
				deriver := version.NewDeriver(p.environment(rc))
				_, err := deriver.Derive(ctx, rc)
				return err
			},
		},
		{
			Name:  StepBuild,
			Needs: []string{StepBuildEnv},
			Run: func(ctx context.Context, rc *run.Context) error {
				executor := buildexec.NewExecutor(p.environment(rc))
				return executor.Execute(ctx, rc)
			},
		},
		{
			Name:  StepChangelog,
			Needs: []string{StepVersion},
			Run: func(ctx context.Context, rc *run.Context) error {
				generator := changelog.NewGenerator(
					desc.Project,
					desc.Changelog.Branch,
					desc.Changelog.TokenSecret,
					rc.Abs(desc.Changelog.OutputPath),
					p.deps.Exec,
				)
				return generator.Generate(ctx, rc)
			},
		},
		{
			Name:  StepPublish,
			Needs: []string{StepLicenses, StepBuild, StepChangelog},
			Run: func(ctx context.Context, rc *run.Context) error {
				spec := desc.Artifacts
				bucket, err := rc.Params.Expand(spec.Bucket)
				if err != nil {
					return err
				}
				spec.Bucket = bucket
				publisher := publish.NewPublisher(p.deps.Store, spec, p.deps.Keychain)
				return publisher.Publish(ctx, rc)
			},
		},
	}
}

// LicenseArchiver builds the license archiver for a run, resolving
// the cache root from the environment-provided base when the
// description leaves it unset. Shared by the pipeline step and the
// single-step command.
func LicenseArchiver(desc *types.Description, rc *run.Context) (*licensing.Archiver, error) {
	spec := desc.Licenses
	cacheRoot := spec.CacheRoot
	if cacheRoot == "" {
		base, err := rc.Params.Get("CACHE_HOME")
		if err != nil {
			return nil, err
		}
		cacheRoot = filepath.Join(base, "registry", "src")
	} else {
		expanded, err := rc.Params.Expand(cacheRoot)
		if err != nil {
			return nil, err
		}
		cacheRoot = expanded
	}

	output := spec.OutputPath
	if output == "" {
		output = "build/dependencies-src.tar.gz"
	}
	return licensing.NewArchiver(spec.Dependencies, cacheRoot, rc.Abs(output)), nil
}

// environment is the build-environment handle shared by the version
// and build steps.
func (p *Pipeline) environment(rc *run.Context) buildenv.Environment {
	image := rc.Desc.BuildImage.Reference
	if tag, ok := rc.Params["BUILD_IMAGE_TAG"]; ok {
		image = tag
	}
	return buildenv.NewContainerEnv(image, rc.WorkDir, p.deps.Exec)
}
