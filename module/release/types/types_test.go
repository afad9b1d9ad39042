package types

import (
	"testing"
	"time"

	"github.com/shipper-ci/shipper/util/common/errors"
)

const validDescription = `
project: proxy
timeout: 90m
machineClass: e2-highcpu-32
parameters:
  - name: BUILD_IMAGE_TAG
    default: registry.example.com/${PROJECT_ID}/build
substitutions:
  TOOLCHAIN_VERSION: "1.74.0"
buildImage:
  reference: registry.example.com/proxy/build
  toolchainVersion: "1.74.0"
  recipe:
    packages: [curl, build-essential]
    installerUrl: https://toolchain.example.com/install.sh
    components: [rustfmt, clippy]
    secondaryChannel: nightly
    tools: [mdbook]
licenses:
  dependencies: [slog-json, slog-term]
  outputPath: build/dependencies-src.tar.gz
artifacts:
  bucket: proxy-releases
  patterns: ["*.tar.gz", "license.html", "CHANGELOG.md"]
  images:
    - from: registry.example.com/proxy/candidate
      to: registry.example.com/proxy:${VERSION}
changelog:
  branch: main
  tokenSecret: changelog-token
`

func TestParse(t *testing.T) {
	desc, err := Parse([]byte(validDescription))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if desc.Project != "proxy" {
		t.Errorf("Project = %q", desc.Project)
	}
	if desc.Timeout.Std() != 90*time.Minute {
		t.Errorf("Timeout = %v, want 90m", desc.Timeout.Std())
	}
	if len(desc.Licenses.Dependencies) != 2 {
		t.Errorf("Dependencies = %v", desc.Licenses.Dependencies)
	}
	if desc.BuildImage.Recipe == nil || desc.BuildImage.Recipe.SecondaryChannel != "nightly" {
		t.Errorf("Recipe = %+v", desc.BuildImage.Recipe)
	}
	if desc.Substitutions["TOOLCHAIN_VERSION"] != "1.74.0" {
		t.Errorf("Substitutions = %v", desc.Substitutions)
	}
}

func TestParseDefaults(t *testing.T) {
	desc, err := Parse([]byte(`
project: proxy
buildImage:
  reference: registry.example.com/proxy/build
artifacts:
  bucket: proxy-releases
`))
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if desc.Timeout.Std() != DefaultTimeout {
		t.Errorf("Timeout default = %v", desc.Timeout.Std())
	}
	if desc.VersionFile != "build/version.txt" {
		t.Errorf("VersionFile default = %q", desc.VersionFile)
	}
	if desc.Changelog.OutputPath != "CHANGELOG.md" {
		t.Errorf("Changelog output default = %q", desc.Changelog.OutputPath)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "missing project",
			input: "buildImage:\n  reference: r\nartifacts:\n  bucket: b\n",
		},
		{
			name:  "missing build image",
			input: "project: p\nartifacts:\n  bucket: b\n",
		},
		{
			name:  "missing bucket",
			input: "project: p\nbuildImage:\n  reference: r\n",
		},
		{
			name:  "incomplete image promotion",
			input: "project: p\nbuildImage:\n  reference: r\nartifacts:\n  bucket: b\n  images:\n    - from: x\n",
		},
		{
			name:  "bad duration",
			input: "project: p\ntimeout: soon\nbuildImage:\n  reference: r\nartifacts:\n  bucket: b\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.input)); err == nil {
				t.Error("Parse() expected error")
			}
		})
	}
}

func TestParseValidationErrorType(t *testing.T) {
	_, err := Parse([]byte("buildImage:\n  reference: r\nartifacts:\n  bucket: b\n"))
	var cfgErr *errors.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("Parse() error = %v, want ConfigurationError", err)
	}
}
