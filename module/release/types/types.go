// Package types holds the pipeline description: the declarative input
// a CI trigger hands to a release run.
package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shipper-ci/shipper/util/common/errors"
)

// DefaultTimeout bounds a whole run when the description does not.
const DefaultTimeout = 2 * time.Hour

// Duration wraps time.Duration so descriptions can say "2h" or "90m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Parameter is a named substitution with an optional default
// expression. Expressions may reference other parameters as ${NAME}.
type Parameter struct {
	Name    string `yaml:"name"`
	Default string `yaml:"default"`
}

// Recipe declares how to construct the build image when it cannot be
// pulled: OS packages, a pinned toolchain installer, toolchain
// components and auxiliary tools.
type Recipe struct {
	Packages         []string `yaml:"packages"`
	InstallerURL     string   `yaml:"installerUrl"`
	Components       []string `yaml:"components"`
	SecondaryChannel string   `yaml:"secondaryChannel"`
	Tools            []string `yaml:"tools"`
}

// BuildImageSpec identifies the build environment.
type BuildImageSpec struct {
	Reference        string  `yaml:"reference"`
	ToolchainVersion string  `yaml:"toolchainVersion"`
	Recipe           *Recipe `yaml:"recipe"`
}

// LicenseSpec configures the dependency license archiver. The
// dependency list is maintained by hand: add an entry whenever a new
// copyleft-licensed dependency is introduced.
type LicenseSpec struct {
	Dependencies []string `yaml:"dependencies"`
	CacheRoot    string   `yaml:"cacheRoot"`
	OutputPath   string   `yaml:"outputPath"`
}

// ImagePromotion maps a locally built candidate image reference to its
// release reference. The destination may contain ${VERSION}.
type ImagePromotion struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ArtifactSpec configures the publisher. Patterns containing a "/"
// are matched against the work-directory-relative path; patterns
// without one match file names at any depth.
type ArtifactSpec struct {
	Patterns []string         `yaml:"patterns"`
	Bucket   string           `yaml:"bucket"`
	Prefix   string           `yaml:"prefix"`
	Images   []ImagePromotion `yaml:"images"`
}

// ChangelogSpec configures changelog generation. TokenSecret names the
// secret holding the authentication token; the value itself never
// appears in the description.
type ChangelogSpec struct {
	Branch      string `yaml:"branch"`
	TokenSecret string `yaml:"tokenSecret"`
	OutputPath  string `yaml:"outputPath"`
}

// Description is the full declarative input of one release run.
type Description struct {
	Project       string            `yaml:"project"`
	MachineClass  string            `yaml:"machineClass"`
	Timeout       Duration          `yaml:"timeout"`
	Parameters    []Parameter       `yaml:"parameters"`
	Substitutions map[string]string `yaml:"substitutions"`
	VersionFile   string            `yaml:"versionFile"`
	BuildImage    BuildImageSpec    `yaml:"buildImage"`
	Licenses      LicenseSpec       `yaml:"licenses"`
	Artifacts     ArtifactSpec      `yaml:"artifacts"`
	Changelog     ChangelogSpec     `yaml:"changelog"`
}

// Load reads and validates a pipeline description from a YAML file.
func Load(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError("", fmt.Sprintf("read pipeline description: %v", err))
	}
	return Parse(data)
}

// Parse decodes and validates a pipeline description.
func Parse(data []byte) (*Description, error) {
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, errors.NewConfigurationError("", fmt.Sprintf("parse pipeline description: %v", err))
	}
	desc.applyDefaults()
	if err := desc.validate(); err != nil {
		return nil, err
	}
	return &desc, nil
}

func (d *Description) applyDefaults() {
	if d.Timeout == 0 {
		d.Timeout = Duration(DefaultTimeout)
	}
	if d.VersionFile == "" {
		d.VersionFile = "build/version.txt"
	}
	if d.Changelog.OutputPath == "" {
		d.Changelog.OutputPath = "CHANGELOG.md"
	}
	if d.Substitutions == nil {
		d.Substitutions = map[string]string{}
	}
}

func (d *Description) validate() error {
	if d.Project == "" {
		return errors.NewConfigurationError("project", "project identifier is required")
	}
	if d.BuildImage.Reference == "" {
		return errors.NewConfigurationError("buildImage.reference", "build image reference is required")
	}
	if d.Artifacts.Bucket == "" {
		return errors.NewConfigurationError("artifacts.bucket", "destination bucket is required")
	}
	for i, img := range d.Artifacts.Images {
		if img.From == "" || img.To == "" {
			return errors.NewConfigurationError(
				fmt.Sprintf("artifacts.images[%d]", i),
				"image promotion requires both from and to references")
		}
	}
	return nil
}
