// Package run carries the explicit per-run context handed to every
// pipeline step. Values read from the ambient environment are captured
// once here instead of being looked up ad hoc inside steps.
package run

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/shipper-ci/shipper/internal/execx"
	"github.com/shipper-ci/shipper/module/release/params"
	"github.com/shipper-ci/shipper/module/release/secret"
	"github.com/shipper-ci/shipper/module/release/types"
	"github.com/shipper-ci/shipper/util/common/errors"
	"github.com/shipper-ci/shipper/util/common/progress"
)

// EnvProjectID and EnvCacheHome are the ambient identifiers captured
// into a Context at construction time.
const (
	EnvProjectID = "SHIPPER_PROJECT_ID"
	EnvCacheHome = "SHIPPER_CACHE_HOME"
)

// Context is the shared state of one release run. Steps read resolved
// parameters and collaborate through it; the derived version is the
// only field written after construction.
type Context struct {
	Desc     *types.Description
	Params   params.Config
	WorkDir  string
	Secrets  secret.Source
	Exec     execx.Runner
	Reporter progress.Reporter

	version string
}

// Options collects the collaborators a Context needs.
type Options struct {
	Desc     *types.Description
	Params   params.Config
	WorkDir  string
	Secrets  secret.Source
	Exec     execx.Runner
	Reporter progress.Reporter
}

// New builds a run context. A nil reporter defaults to a no-op one.
func New(opts Options) *Context {
	reporter := opts.Reporter
	if reporter == nil {
		reporter = progress.NewNopReporter()
	}
	return &Context{
		Desc:     opts.Desc,
		Params:   opts.Params,
		WorkDir:  opts.WorkDir,
		Secrets:  opts.Secrets,
		Exec:     opts.Exec,
		Reporter: reporter,
	}
}

// Seed captures environment-provided identifiers once, for the
// parameter resolver.
func Seed() map[string]string {
	seed := map[string]string{}
	if v := os.Getenv(EnvProjectID); v != "" {
		seed["PROJECT_ID"] = v
	}
	if v := os.Getenv(EnvCacheHome); v != "" {
		seed["CACHE_HOME"] = v
	}
	return seed
}

// SetVersion records the derived version for later steps. Trailing
// whitespace is stripped so consumers always see the bare string.
func (c *Context) SetVersion(v string) {
	c.version = strings.TrimSpace(v)
}

// Version returns the derived version, failing when the version step
// has not run yet.
func (c *Context) Version() (string, error) {
	if c.version == "" {
		return "", errors.NewVersionDerivationError("version not derived yet", nil)
	}
	return c.version, nil
}

// VersionFile is the absolute path of the single-line version
// artifact.
func (c *Context) VersionFile() string {
	return c.Abs(c.Desc.VersionFile)
}

// Abs anchors a description-relative path at the run's working
// directory.
func (c *Context) Abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.WorkDir, path)
}
