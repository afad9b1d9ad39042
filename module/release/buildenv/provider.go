// Package buildenv ensures a usable build environment exists for the
// run: either a pre-built image pulled from the registry, or one
// constructed from the declarative recipe.
package buildenv

import (
	"context"
	"strings"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shipper-ci/shipper/internal/execx"
	"github.com/shipper-ci/shipper/module/release/types"
	"github.com/shipper-ci/shipper/util/common/errors"
)

// Provider resolves the build image for a run. Pull-if-present is an
// optimization; constructing from the recipe is the fallback. Either
// way the image is immutable for the run's duration.
type Provider struct {
	Reference        string
	ToolchainVersion string
	Recipe           *types.Recipe
	Keychain         authn.Keychain
	Exec             execx.Runner

	logger zerolog.Logger
}

// NewProvider creates a Provider.
func NewProvider(spec types.BuildImageSpec, keychain authn.Keychain, runner execx.Runner) *Provider {
	if keychain == nil {
		keychain = authn.DefaultKeychain
	}
	return &Provider{
		Reference:        spec.Reference,
		ToolchainVersion: spec.ToolchainVersion,
		Recipe:           spec.Recipe,
		Keychain:         keychain,
		Exec:             runner,
		logger:           log.With().Str("component", "buildenv").Logger(),
	}
}

// Ensure makes the build image available and returns its reference.
// If the registry has it, that copy is used; otherwise the recipe is
// applied. No image and no recipe is fatal.
func (p *Provider) Ensure(ctx context.Context) (string, error) {
	ref, err := name.ParseReference(p.Reference, name.WeakValidation)
	if err != nil {
		return "", errors.NewEnvironmentProvisioningError("parse-reference", err)
	}

	if _, err := remote.Head(ref, remote.WithContext(ctx), remote.WithAuthFromKeychain(p.Keychain)); err == nil {
		p.logger.Info().Str("image", p.Reference).Msg("Build image present in registry")
		return p.Reference, nil
	}

	if p.Recipe == nil {
		return "", errors.NewEnvironmentProvisioningError("lookup",
			errors.Wrap(errors.ErrInvalidArgument, "build image unavailable and no recipe configured"))
	}

	p.logger.Info().
		Str("image", p.Reference).
		Str("toolchain_version", p.ToolchainVersion).
		Msg("Build image not in registry, provisioning from recipe")
	if err := p.provision(ctx); err != nil {
		return "", err
	}
	return p.Reference, nil
}

// provision applies the recipe inside the environment being built:
// OS packages, the pinned toolchain installer, toolchain components,
// the secondary channel and auxiliary tools. Any failure aborts with
// no partial-environment fallback.
func (p *Provider) provision(ctx context.Context) error {
	r := p.Recipe

	if len(r.Packages) > 0 {
		args := append([]string{"install", "-y"}, r.Packages...)
		if err := p.runStage(ctx, "os-packages", "apt-get", args...); err != nil {
			return err
		}
	}

	if r.InstallerURL != "" {
		if err := p.runStage(ctx, "toolchain-installer", "sh", "-c",
			"curl -sSf "+r.InstallerURL+" | sh -s -- -y --default-toolchain "+p.ToolchainVersion); err != nil {
			return err
		}
	}

	for _, component := range r.Components {
		if err := p.runStage(ctx, "component-"+component, "rustup", "component", "add", component); err != nil {
			return err
		}
	}

	if r.SecondaryChannel != "" {
		if err := p.runStage(ctx, "secondary-channel", "rustup", "toolchain", "install", r.SecondaryChannel); err != nil {
			return err
		}
	}

	for _, tool := range r.Tools {
		if err := p.runStage(ctx, "tool-"+tool, "cargo", "install", tool); err != nil {
			return err
		}
	}

	p.logger.Info().Str("image", p.Reference).Msg("Build environment provisioned")
	return nil
}

func (p *Provider) runStage(ctx context.Context, stage, command string, args ...string) error {
	p.logger.Info().
		Str("stage", stage).
		Str("command", command+" "+strings.Join(args, " ")).
		Msg("Provisioning stage")
	res, err := p.Exec.Run(ctx, execx.Cmd{Name: command, Args: args})
	if err != nil {
		p.logger.Error().
			Str("stage", stage).
			Int("exit_code", res.ExitCode).
			Str("stderr", res.Stderr).
			Msg("Provisioning stage failed")
		return errors.NewEnvironmentProvisioningError(stage, err)
	}
	return nil
}
