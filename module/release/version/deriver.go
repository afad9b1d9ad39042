// Package version derives the release version from the build
// environment and persists it as the single-line version artifact.
package version

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/mod/semver"

	"github.com/shipper-ci/shipper/module/release/buildenv"
	"github.com/shipper-ci/shipper/module/release/run"
	"github.com/shipper-ci/shipper/util/common/errors"
	"github.com/shipper-ci/shipper/util/common/fileutil"
)

// Deriver queries the build environment for the version and writes it
// to the well-known version file. The derived value is immutable for
// the rest of the run: the changelog names the release after it and
// the publisher tags images with it.
type Deriver struct {
	Env buildenv.Environment
}

// NewDeriver creates a Deriver.
func NewDeriver(env buildenv.Environment) *Deriver {
	return &Deriver{Env: env}
}

// Derive runs the version query, validates the output and writes the
// version file (one line, single trailing newline). The version is
// also recorded on the run context.
func (d *Deriver) Derive(ctx context.Context, rc *run.Context) (string, error) {
	raw, err := d.Env.ReportVersion(ctx)
	if err != nil {
		return "", errors.NewVersionDerivationError("version query failed", err)
	}

	v := strings.TrimSpace(raw)
	if v == "" {
		return "", errors.NewVersionDerivationError("version query produced empty output", nil)
	}
	if strings.ContainsAny(v, "\n\r") {
		return "", errors.NewVersionDerivationError(
			fmt.Sprintf("version query produced multiple lines: %q", v), nil)
	}
	if !semver.IsValid("v" + v) {
		return "", errors.NewVersionDerivationError(
			fmt.Sprintf("%q is not a semantic version", v), nil)
	}

	path := rc.VersionFile()
	if err := fileutil.WriteFile(path, []byte(v+"\n")); err != nil {
		return "", errors.NewVersionDerivationError("write version file", err)
	}

	rc.SetVersion(v)
	log.Info().Str("version", v).Str("path", path).Msg("Derived release version")
	return v, nil
}
