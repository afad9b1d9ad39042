// Package vcs reads repository metadata straight from the .git
// directory. The build environment does not always carry a git binary,
// so branch and commit are resolved without shelling out.
package vcs

import (
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/shipper-ci/shipper/util/common/errors"
	"github.com/shipper-ci/shipper/util/common/fileutil"
)

// Info represents repository metadata captured at the start of a run.
type Info struct {
	Branch string `json:"branch,omitempty"`
	Commit string `json:"commit,omitempty"`
	Remote string `json:"remote,omitempty"`
}

// GitRepository reads metadata from a checked-out Git work tree.
type GitRepository struct {
	path string
}

// NewGitRepository opens the repository at path. Returns
// ErrNotRepository when path has no .git directory.
func NewGitRepository(path string) (*GitRepository, error) {
	if !IsGitRepository(path) {
		return nil, errors.Wrap(errors.ErrNotRepository, path)
	}
	return &GitRepository{path: path}, nil
}

// IsGitRepository checks if the given path is a Git repository
func IsGitRepository(path string) bool {
	return fileutil.IsDir(filepath.Join(path, ".git"))
}

// Info returns branch, commit and remote for the repository. Branch is
// empty on a detached HEAD, remote is empty when origin is not
// configured.
func (g *GitRepository) Info() (*Info, error) {
	branch, err := g.CurrentBranch()
	if err != nil {
		return nil, err
	}
	commit, err := g.CommitHash()
	if err != nil {
		return nil, err
	}
	remote, _ := g.RemoteURL()
	return &Info{Branch: branch, Commit: commit, Remote: remote}, nil
}

// CurrentBranch returns the checked-out branch name, or an empty string
// when HEAD is detached.
func (g *GitRepository) CurrentBranch() (string, error) {
	head, err := g.readHead()
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(head, "ref: refs/heads/") {
		return strings.TrimPrefix(head, "ref: refs/heads/"), nil
	}
	return "", nil
}

// CommitHash returns the commit hash HEAD resolves to.
func (g *GitRepository) CommitHash() (string, error) {
	head, err := g.readHead()
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(head, "ref: ") {
		ref := strings.TrimPrefix(head, "ref: ")
		shaBytes, err := fileutil.ReadFile(filepath.Join(g.path, ".git", ref))
		if err != nil {
			return "", errors.Wrap(err, "read ref")
		}
		hash := strings.TrimSpace(string(shaBytes))
		if !isValidSHA(hash) {
			return "", errors.Wrap(errors.ErrInvalidArgument, "malformed commit hash")
		}
		return hash, nil
	}
	if !isValidSHA(head) {
		return "", errors.Wrap(errors.ErrInvalidArgument, "malformed detached HEAD")
	}
	return head, nil
}

// RemoteURL returns the URL of the origin remote.
func (g *GitRepository) RemoteURL() (string, error) {
	configPath := filepath.Join(g.path, ".git", "config")
	if !fileutil.IsFile(configPath) {
		return "", errors.Wrap(errors.ErrNotRepository, "missing .git/config")
	}
	cfg, err := ini.Load(configPath)
	if err != nil {
		return "", errors.Wrap(err, "read .git/config")
	}
	return cfg.Section(`remote "origin"`).Key("url").String(), nil
}

func (g *GitRepository) readHead() (string, error) {
	headBytes, err := fileutil.ReadFile(filepath.Join(g.path, ".git", "HEAD"))
	if err != nil {
		return "", errors.Wrap(err, "read HEAD")
	}
	head := strings.TrimSpace(string(headBytes))
	if head == "" {
		return "", errors.Wrap(errors.ErrNotRepository, "empty HEAD")
	}
	return head, nil
}

// isValidSHA checks if a string is a valid Git SHA-1 hash.
func isValidSHA(hash string) bool {
	if len(hash) != 40 {
		return false
	}
	for _, c := range hash {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return false
		}
	}
	return true
}
