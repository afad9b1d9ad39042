package terminal

import (
	"os"
	"testing"
)

func TestDetect_NoColorFlag(t *testing.T) {
	info := Detect(true)
	if info.ColorEnabled {
		t.Error("expected ColorEnabled=false when noColor=true")
	}
}

func TestDetect_NonTTY(t *testing.T) {
	// In test environments, stdout is not a terminal
	info := Detect(false)
	if info.IsTerminal {
		t.Skip("test stdout appears to be a TTY, skipping non-TTY test")
	}
	if info.ColorEnabled {
		t.Error("expected ColorEnabled=false when not a TTY")
	}
}

func TestDetect_NOCOLOREnv(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	info := Detect(false)
	if info.ColorEnabled {
		t.Error("expected ColorEnabled=false when NO_COLOR env is set")
	}
}

func TestIsDumb(t *testing.T) {
	t.Setenv("TERM", "dumb")
	if !IsDumb() {
		t.Error("expected IsDumb()=true when TERM=dumb")
	}

	t.Setenv("TERM", "xterm-256color")
	if IsDumb() {
		t.Error("expected IsDumb()=false when TERM=xterm-256color")
	}
}

func TestIsCI(t *testing.T) {
	ciVars := []string{"CI", "GITHUB_ACTIONS", "JENKINS_URL", "GITLAB_CI", "CIRCLECI", "TRAVIS"}
	for _, v := range ciVars {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	if IsCI() {
		t.Error("expected IsCI()=false when no CI env vars are set")
	}

	t.Setenv("CI", "true")
	if !IsCI() {
		t.Error("expected IsCI()=true when CI=true")
	}
}
