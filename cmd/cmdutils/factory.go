package cmdutils

import (
	"os"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/rs/zerolog/log"

	"github.com/shipper-ci/shipper/config"
	"github.com/shipper-ci/shipper/internal/execx"
	"github.com/shipper-ci/shipper/internal/store"
	"github.com/shipper-ci/shipper/module/release"
	"github.com/shipper-ci/shipper/module/release/secret"
)

// Factory builds the external collaborators commands hand to the
// pipeline. Construction is lazy so commands that never touch storage
// do not need credentials.
type Factory struct {
	ObjectStore func() store.ObjectStore
	Keychain    func() authn.Keychain
	Exec        func() execx.Runner
	Secrets     func() secret.Source
}

// NewFactory creates a Factory wired to the real backends.
func NewFactory() *Factory {
	return &Factory{
		ObjectStore: func() store.ObjectStore {
			cfg, err := store.LoadCredentials(config.Global.CredentialsPath, config.Global.CredentialsProfile)
			if err != nil {
				log.Fatal().Err(err).Msg("Loading storage credentials failed")
			}
			s, err := store.NewMinioStore(cfg)
			if err != nil {
				log.Fatal().Err(err).Msg("Creating object store client failed")
			}
			return s
		},
		Keychain: func() authn.Keychain {
			return authn.DefaultKeychain
		},
		Exec: func() execx.Runner {
			return execx.NewLocal()
		},
		Secrets: func() secret.Source {
			if endpoint := os.Getenv("SHIPPER_SECRETS_ENDPOINT"); endpoint != "" {
				return secret.NewHTTPSource(endpoint, os.Getenv("SHIPPER_SECRETS_TOKEN"))
			}
			return secret.NewEnvSource()
		},
	}
}

// Deps assembles the pipeline dependency set from the factory.
func (f *Factory) Deps(withStore bool) release.Deps {
	deps := release.Deps{
		Keychain: f.Keychain(),
		Exec:     f.Exec(),
		Secrets:  f.Secrets(),
	}
	if withStore {
		deps.Store = f.ObjectStore()
	}
	return deps
}
