package store

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// LoadCredentials reads an ini credentials profile of the usual shape:
//
//	[release]
//	endpoint   = storage.example.com
//	access_key = AKIA...
//	secret_key = ...
//	region     = us-east-1
//	use_ssl    = true
func LoadCredentials(path, profile string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Config{}, fmt.Errorf("load credentials file %s: %w", path, err)
	}

	section, err := file.GetSection(profile)
	if err != nil {
		return Config{}, fmt.Errorf("credentials profile %q not found in %s: %w", profile, path, err)
	}

	cfg := Config{
		Endpoint:  section.Key("endpoint").String(),
		AccessKey: section.Key("access_key").String(),
		SecretKey: section.Key("secret_key").String(),
		Region:    section.Key("region").String(),
		UseSSL:    section.Key("use_ssl").MustBool(true),
	}
	if cfg.Endpoint == "" {
		return Config{}, fmt.Errorf("credentials profile %q has no endpoint", profile)
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("credentials profile %q is missing keys", profile)
	}
	return cfg, nil
}
