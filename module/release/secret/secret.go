// Package secret provides the scoped secret-lookup contract. A run
// retrieves each secret once; values must never reach logs or
// artifacts.
package secret

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/shipper-ci/shipper/util/common/errors"
)

// Source looks up a named secret scoped to the current run.
type Source interface {
	Lookup(ctx context.Context, name string) (string, error)
}

// EnvSource reads secrets from the process environment. A secret named
// "changelog-token" is looked up as SHIPPER_SECRET_CHANGELOG_TOKEN.
type EnvSource struct {
	Prefix string
}

// NewEnvSource creates an EnvSource with the default prefix.
func NewEnvSource() *EnvSource {
	return &EnvSource{Prefix: "SHIPPER_SECRET_"}
}

func (s *EnvSource) Lookup(_ context.Context, name string) (string, error) {
	key := s.Prefix + envKey(name)
	value := os.Getenv(key)
	if value == "" {
		return "", errors.Wrap(errors.ErrSecretNotFound, fmt.Sprintf("environment variable %s", key))
	}
	return value, nil
}

func envKey(name string) string {
	upper := strings.ToUpper(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, upper)
}

// HTTPSource fetches secrets from a secret-manager endpoint. Transport
// retries are delegated to retryablehttp; a 404 maps to
// ErrSecretNotFound.
type HTTPSource struct {
	BaseURL   string
	AuthToken string
	client    *retryablehttp.Client
}

// NewHTTPSource creates an HTTPSource for the given endpoint.
func NewHTTPSource(baseURL, authToken string) *HTTPSource {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &HTTPSource{
		BaseURL:   strings.TrimSuffix(baseURL, "/"),
		AuthToken: authToken,
		client:    client,
	}
}

func (s *HTTPSource) Lookup(ctx context.Context, name string) (string, error) {
	url := fmt.Sprintf("%s/v1/secrets/%s", s.BaseURL, name)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "build secret request")
	}
	if s.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.AuthToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetch secret")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errors.Wrap(errors.ErrSecretNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("secret lookup for %s returned status %d", name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Wrap(err, "read secret response")
	}
	var payload struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Wrap(err, "decode secret response")
	}
	if payload.Value == "" {
		return "", errors.Wrap(errors.ErrSecretNotFound, name)
	}
	return payload.Value, nil
}
