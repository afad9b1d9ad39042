// Package publish uploads matched artifacts to object storage and
// promotes tagged container images to their release references.
package publish

import (
	"context"
	errs "errors"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/crane"
	"github.com/inhies/go-bytesize"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shipper-ci/shipper/internal/store"
	"github.com/shipper-ci/shipper/module/release/run"
	"github.com/shipper-ci/shipper/module/release/types"
	"github.com/shipper-ci/shipper/util/common/errors"
)

// Publisher materializes the published artifact set: every local file
// matching any pattern goes to the bucket, every image promotion is
// pushed. Transfers are independent: one failure never blocks the
// rest, but any failure marks the whole run failed.
type Publisher struct {
	Store    store.ObjectStore
	Bucket   string
	Prefix   string
	Patterns []string
	Images   []types.ImagePromotion
	Keychain authn.Keychain

	logger zerolog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(objStore store.ObjectStore, spec types.ArtifactSpec, keychain authn.Keychain) *Publisher {
	if keychain == nil {
		keychain = authn.DefaultKeychain
	}
	return &Publisher{
		Store:    objStore,
		Bucket:   spec.Bucket,
		Prefix:   spec.Prefix,
		Patterns: spec.Patterns,
		Images:   spec.Images,
		Keychain: keychain,
		logger:   log.With().Str("component", "publisher").Logger(),
	}
}

// artifactGlob is one compiled pattern. Patterns containing a
// separator are anchored at the work directory; separator-free
// patterns match file names at any depth.
type artifactGlob struct {
	g        glob.Glob
	anchored bool
}

// CollectArtifacts walks the work directory and returns the relative
// paths of files matching any pattern, sorted. Patterns matching
// nothing are not an error.
func CollectArtifacts(workDir string, patterns []string) ([]string, error) {
	globs := make([]artifactGlob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.NewConfigurationError("artifacts.patterns",
				"invalid pattern "+pattern+": "+err.Error())
		}
		globs = append(globs, artifactGlob{g: g, anchored: strings.Contains(pattern, "/")})
	}

	var matched []string
	err := filepath.WalkDir(workDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(workDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, ag := range globs {
			target := path.Base(rel)
			if ag.anchored {
				target = rel
			}
			if ag.g.Match(target) {
				matched = append(matched, rel)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matched)
	return matched, nil
}

// Publish uploads all matched artifacts and pushes all images,
// attempting every transfer and joining any failures into one
// aggregate error.
func (p *Publisher) Publish(ctx context.Context, rc *run.Context) error {
	artifacts, err := CollectArtifacts(rc.WorkDir, p.Patterns)
	if err != nil {
		return errors.NewPublicationError("artifact collection", err)
	}

	if err := p.Store.EnsureBucket(ctx, p.Bucket); err != nil {
		return errors.NewPublicationError("bucket "+p.Bucket, err)
	}

	var failures []error
	for _, rel := range artifacts {
		object := rel
		if p.Prefix != "" {
			object = path.Join(p.Prefix, rel)
		}
		size, err := p.Store.Upload(ctx, p.Bucket, object, filepath.Join(rc.WorkDir, filepath.FromSlash(rel)))
		if err != nil {
			p.logger.Error().Err(err).Str("object", object).Msg("Upload failed")
			failures = append(failures, errors.NewPublicationError(object, err))
			continue
		}
		p.logger.Info().
			Str("object", object).
			Str("bucket", p.Bucket).
			Str("size", bytesize.New(float64(size)).String()).
			Msg("Uploaded artifact")
	}

	version, err := rc.Version()
	if err != nil && len(p.Images) > 0 {
		return errs.Join(append(failures, errors.NewPublicationError("image promotion", err))...)
	}
	for _, promotion := range p.Images {
		dst := strings.ReplaceAll(promotion.To, "${VERSION}", version)
		if err := crane.Copy(promotion.From, dst,
			crane.WithContext(ctx),
			crane.WithAuthFromKeychain(p.Keychain)); err != nil {
			p.logger.Error().Err(err).Str("image", dst).Msg("Image push failed")
			failures = append(failures, errors.NewPublicationError(dst, err))
			continue
		}
		p.logger.Info().Str("from", promotion.From).Str("to", dst).Msg("Pushed release image")
	}

	if len(failures) > 0 {
		return errs.Join(failures...)
	}
	return nil
}
