// Package buildexec invokes compilation inside the build environment.
// The toolchain itself is a black box; this step's obligation is to
// pass the right parameters and propagate the exit status.
package buildexec

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/shipper-ci/shipper/module/release/buildenv"
	"github.com/shipper-ci/shipper/module/release/run"
	"github.com/shipper-ci/shipper/util/common/errors"
)

// Executor runs the build entry point. Artifact locations are the
// build environment's business; an incomplete artifact set simply
// never reaches the publisher because failure here aborts the run.
type Executor struct {
	Env buildenv.Environment
}

// NewExecutor creates an Executor.
func NewExecutor(env buildenv.Environment) *Executor {
	return &Executor{Env: env}
}

// Execute runs the build with the parameters the environment contract
// requires: the build image tag and any image build args from the
// resolved configuration.
func (e *Executor) Execute(ctx context.Context, rc *run.Context) error {
	imageTag, err := rc.Params.Get("BUILD_IMAGE_TAG")
	if err != nil {
		return err
	}

	env := map[string]string{
		"BUILD_IMAGE_TAG": imageTag,
	}
	if args, ok := rc.Params["BUILD_IMAGE_ARGS"]; ok && args != "" {
		env["BUILD_IMAGE_ARGS"] = args
	}

	log.Info().Str("build_image", imageTag).Msg("Starting build")
	if err := e.Env.Build(ctx, env); err != nil {
		return errors.NewBuildFailure(exitCode(err), err)
	}
	log.Info().Msg("Build completed")
	return nil
}

func exitCode(err error) int {
	type coder interface{ ExitCode() int }
	var c coder
	if errors.As(err, &c) {
		return c.ExitCode()
	}
	return 1
}
