// Package licensing bundles the extracted sources of copyleft-licensed
// dependencies into a single archive for redistribution compliance.
package licensing

import (
	"archive/tar"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shipper-ci/shipper/util/common/errors"
	"github.com/shipper-ci/shipper/util/common/fileutil"
)

// Archiver collects every cached source directory matching the fixed
// dependency list into one tar.gz at OutputPath. The list is
// maintained by hand and reviewed before each release.
type Archiver struct {
	Dependencies []string
	CacheRoot    string
	OutputPath   string

	logger zerolog.Logger
}

// Summary records what a run archived and, more importantly for
// compliance, what it could not find.
type Summary struct {
	// Matched maps each dependency to the cache-relative paths
	// archived for it. Multiple entries mean multiple vendored
	// versions, all of them bundled.
	Matched map[string][]string

	// Missing lists dependencies that matched no directory. Absence
	// is non-fatal but observable: each entry was logged as a warning.
	Missing []string
}

// crateManifest is the subset of a Cargo.toml we report for the audit
// trail.
type crateManifest struct {
	Package struct {
		Name    string `toml:"name"`
		Version string `toml:"version"`
		License string `toml:"license"`
	} `toml:"package"`
}

// NewArchiver creates an Archiver.
func NewArchiver(dependencies []string, cacheRoot, outputPath string) *Archiver {
	return &Archiver{
		Dependencies: dependencies,
		CacheRoot:    cacheRoot,
		OutputPath:   outputPath,
		logger:       log.With().Str("component", "license-archiver").Logger(),
	}
}

// Run rebuilds the license archive from scratch. A stale archive at
// the output path is deleted first; on success exactly one archive
// file exists there, holding the full tree of every matched directory
// with paths relative to the cache root. Missing dependencies are
// warned about and reported in the summary, not failed on.
func (a *Archiver) Run(ctx context.Context) (*Summary, error) {
	if err := fileutil.RemoveIfExists(a.OutputPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(a.CacheRoot)
	if err != nil {
		return nil, errors.NewArchivalError("stat", a.CacheRoot, err)
	}
	if !info.IsDir() {
		return nil, errors.NewArchivalError("stat", a.CacheRoot, errors.ErrInvalidArgument)
	}

	candidates, err := a.sourceDirs()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Matched: map[string][]string{}}
	var toArchive []string
	for _, dep := range a.Dependencies {
		var matched []string
		for _, rel := range candidates {
			if Matches(dep, filepath.Base(rel)) {
				matched = append(matched, rel)
			}
		}
		if len(matched) == 0 {
			a.logger.Warn().
				Str("dependency", dep).
				Str("cache_root", a.CacheRoot).
				Msg("No cached source found for dependency, its license source will be missing from the archive")
			summary.Missing = append(summary.Missing, dep)
			continue
		}
		for _, rel := range matched {
			a.logger.Info().
				Str("dependency", dep).
				Str("path", rel).
				Msg("Archiving dependency source")
			a.logManifest(rel)
		}
		summary.Matched[dep] = matched
		toArchive = append(toArchive, matched...)
	}
	// Overlapping dependency names can match the same directory; each
	// tree goes into the archive once.
	sort.Strings(toArchive)
	toArchive = slices.Compact(toArchive)

	if err := a.writeArchive(ctx, toArchive); err != nil {
		return nil, err
	}
	a.logger.Info().
		Int("directories", len(toArchive)).
		Int("missing", len(summary.Missing)).
		Str("output", a.OutputPath).
		Msg("License archive written")
	return summary, nil
}

// sourceDirs lists directory entries under the cache root, relative to
// it, deep enough to find registry layouts that nest extracted sources
// one or two levels down.
func (a *Archiver) sourceDirs() ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(a.CacheRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() || path == a.CacheRoot {
			return nil
		}
		rel, err := filepath.Rel(a.CacheRoot, path)
		if err != nil {
			return err
		}
		dirs = append(dirs, rel)
		// A matched directory's own subtree is archived wholesale;
		// never descend into one looking for more candidates.
		base := filepath.Base(rel)
		for _, dep := range a.Dependencies {
			if Matches(dep, base) {
				return fs.SkipDir
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.NewArchivalError("walk", a.CacheRoot, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// writeArchive streams the matched directory trees into a tar.gz.
// Timestamps and ownership are zeroed so identical inputs produce
// byte-identical archives.
func (a *Archiver) writeArchive(ctx context.Context, relDirs []string) error {
	if err := os.MkdirAll(filepath.Dir(a.OutputPath), 0755); err != nil {
		return errors.NewArchivalError("mkdir", filepath.Dir(a.OutputPath), err)
	}
	out, err := os.Create(a.OutputPath)
	if err != nil {
		return errors.NewArchivalError("create", a.OutputPath, err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	for _, rel := range relDirs {
		if err := ctx.Err(); err != nil {
			return errors.NewArchivalError("archive", a.OutputPath, err)
		}
		if err := a.addTree(tw, rel); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return errors.NewArchivalError("close", a.OutputPath, err)
	}
	if err := gz.Close(); err != nil {
		return errors.NewArchivalError("close", a.OutputPath, err)
	}
	return out.Sync()
}

func (a *Archiver) addTree(tw *tar.Writer, relDir string) error {
	root := filepath.Join(a.CacheRoot, relDir)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.NewArchivalError("walk", path, err)
		}
		rel, err := filepath.Rel(a.CacheRoot, path)
		if err != nil {
			return errors.NewArchivalError("rel", path, err)
		}
		info, err := d.Info()
		if err != nil {
			return errors.NewArchivalError("stat", path, err)
		}

		name := filepath.ToSlash(rel)
		hdr := &tar.Header{
			Name: name,
			Mode: int64(info.Mode().Perm()),
		}
		switch {
		case d.IsDir():
			hdr.Typeflag = tar.TypeDir
			hdr.Name += "/"
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return errors.NewArchivalError("readlink", path, err)
			}
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = target
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = info.Size()
		}

		if err := tw.WriteHeader(hdr); err != nil {
			return errors.NewArchivalError("header", path, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return errors.NewArchivalError("open", path, err)
		}
		defer f.Close()
		if _, err := io.Copy(tw, f); err != nil {
			return errors.NewArchivalError("copy", path, err)
		}
		return nil
	})
}

// logManifest reports the crate manifest of a matched directory for
// the audit trail. Manifests are best-effort: a cache entry without a
// parseable Cargo.toml is still archived.
func (a *Archiver) logManifest(relDir string) {
	manifestPath := filepath.Join(a.CacheRoot, relDir, "Cargo.toml")
	var manifest crateManifest
	if _, err := toml.DecodeFile(manifestPath, &manifest); err != nil {
		a.logger.Debug().Str("path", manifestPath).Err(err).Msg("No readable crate manifest")
		return
	}
	a.logger.Info().
		Str("package", manifest.Package.Name).
		Str("version", manifest.Package.Version).
		Str("license", manifest.Package.License).
		Msg("Crate manifest")
}
