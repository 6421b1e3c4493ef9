// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package config loads the password hook's Config from the environment and an optional YAML file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"go.pinniped.dev/passwordhook/internal/plog"
)

const (
	DefaultPort           = 8080
	DefaultDialTimeout    = 10 * time.Second
	DefaultRequestTimeout = 30 * time.Second
)

// Config is read once at startup and must be treated as immutable afterwards.
type Config struct {
	LDAP   LDAP         `json:"ldap"`
	Auth   Auth         `json:"auth"`
	Server Server       `json:"server"`
	Log    plog.LogSpec `json:"log"`
}

type LDAP struct {
	// URL is ldap://host[:port], ldaps://host[:port] or a bare host[:port].
	URL          string `json:"url" validate:"required,ldapurl"`
	BaseDN       string `json:"baseDN" validate:"required"`
	BindDN       string `json:"bindDN" validate:"required"`
	BindPassword string `json:"bindPassword" validate:"required"`

	// CABundlePath is a PEM file used to verify the directory's certificate.  The host's roots are used when unset.
	CABundlePath string `json:"caBundlePath" validate:"omitempty,file"`
	// StartTLS upgrades ldap:// connections before binding.
	StartTLS bool `json:"startTLS"`

	DialTimeout    time.Duration `json:"dialTimeout" validate:"gt=0"`
	RequestTimeout time.Duration `json:"requestTimeout" validate:"gt=0"`
}

type Auth struct {
	// Secret is compared against the Authorization header of every request.
	Secret string `json:"secret" validate:"required"`
}

type Server struct {
	Port           int  `json:"port" validate:"min=1,max=65535"`
	MetricsEnabled bool `json:"metricsEnabled"`
}

// envKeys maps each supported environment variable to its config key.
var envKeys = []struct{ env, key string }{ //nolint:gochecknoglobals
	{"LDAP_URL", "ldap.url"},
	{"LDAP_BASE_DN", "ldap.baseDN"},
	{"LDAP_BIND_DN", "ldap.bindDN"},
	{"LDAP_BIND_PASSWORD", "ldap.bindPassword"},
	{"LDAP_CA_BUNDLE_PATH", "ldap.caBundlePath"},
	{"LDAP_START_TLS", "ldap.startTLS"},
	{"LDAP_DIAL_TIMEOUT", "ldap.dialTimeout"},
	{"LDAP_REQUEST_TIMEOUT", "ldap.requestTimeout"},
	{"AUTH_SECRET", "auth.secret"},
	{"PORT", "server.port"},
	{"METRICS_ENABLED", "server.metricsEnabled"},
	{"LOG_LEVEL", "log.level"},
	{"LOG_FORMAT", "log.format"},
}

// Load reads the YAML file at path (if path is not empty), overlays the environment,
// inserts defaults and validates the result.
func Load(path string) (*Config, error) {
	return load(path, os.Environ)
}

func load(path string, environ func() []string) (*Config, error) {
	k := koanf.New(".")

	for key, value := range map[string]any{
		"ldap.dialTimeout":      DefaultDialTimeout,
		"ldap.requestTimeout":   DefaultRequestTimeout,
		"server.port":           DefaultPort,
		"server.metricsEnabled": true,
		"log.level":             string(plog.LevelInfo),
		"log.format":            string(plog.FormatJSON),
	} {
		if err := k.Set(key, value); err != nil {
			return nil, errors.Wrapf(err, "set default %s", key)
		}
	}

	if len(path) > 0 {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		EnvironFunc: environ,
		TransformFunc: func(k, v string) (string, any) {
			for _, e := range envKeys {
				if e.env == k {
					return e.key, v
				}
			}
			return "", nil // unrelated variables are skipped
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables")
	}

	var config Config
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &config,
			TagName:          "json",
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.TextUnmarshallerHookFunc(),
			),
		},
	}); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}

	if err := validate(&config); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}

	return &config, nil
}

func validate(config *Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		return strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	})
	if err := v.RegisterValidation("ldapurl", validateLDAPURL); err != nil {
		return err
	}

	err := v.Struct(config)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	var missing, invalid []string
	for _, fieldErr := range fieldErrs {
		// namespace looks like Config.ldap.url, strip the struct name
		name := settingName(strings.SplitN(fieldErr.Namespace(), ".", 2)[1])
		if fieldErr.Tag() == "required" {
			missing = append(missing, name)
			continue
		}
		invalid = append(invalid, fmt.Sprintf("%s (%s)", name, describe(fieldErr)))
	}

	var msgs []string
	if len(missing) > 0 {
		msgs = append(msgs, "missing required settings: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		msgs = append(msgs, "invalid settings: "+strings.Join(invalid, ", "))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// settingName returns the environment variable name for a config key.
func settingName(key string) string {
	for _, e := range envKeys {
		if e.key == key {
			return e.env
		}
	}
	return key
}

func describe(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "ldapurl":
		return "must be ldap://host[:port], ldaps://host[:port] or host[:port]"
	case "file":
		return "file does not exist"
	case "gt":
		return "must be greater than " + fieldErr.Param()
	case "min", "max":
		return "must be between 1 and 65535"
	default:
		return "failed " + fieldErr.Tag() + " check"
	}
}

func validateLDAPURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if !strings.Contains(raw, "://") {
		raw = "ldap://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch u.Scheme {
	case "ldap", "ldaps":
	default:
		return false
	}
	return len(u.Hostname()) > 0 && (u.Path == "" || u.Path == "/")
}
