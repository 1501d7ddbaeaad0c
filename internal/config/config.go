// Package config loads this module's ambient runtime configuration: struct
// defaults overlaid by a YAML file whose path is read from the
// VC_CONFIG_YAML environment variable, grounded in the teacher's
// pkg/configuration/config.go loader. Environment variables select the file
// only; they do not override individual fields.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/oid4vc/vclib/internal/logger"
)

// Cfg is the root configuration a cmd/ binary loads to construct this
// module's agents. The core library itself takes explicit Go values;
// this type is scaffolding around it.
type Cfg struct {
	Revocation RevocationConfig `yaml:"revocation"`
	Signing    SigningConfig    `yaml:"signing"`
	Siop       SiopConfig       `yaml:"siop"`
	LogPath    string           `yaml:"log_path,omitempty" envconfig:"VC_LOG_PATH"`
	Production bool             `yaml:"production,omitempty" envconfig:"VC_PRODUCTION"`
}

// RevocationConfig controls RevocationList2020 bitstring sizing.
type RevocationConfig struct {
	// ListSize is the bitstring length in bits.
	ListSize int `yaml:"list_size,omitempty" default:"131072" validate:"min=1"`
	// RotationPeriod is how often an issuer should publish a fresh
	// revocation list.
	RotationPeriod time.Duration `yaml:"rotation_period,omitempty" default:"24h"`
}

// SigningConfig controls the JWS algorithm this module's agents sign with.
type SigningConfig struct {
	// Algorithm is the JWS "alg" header value. ES256 is the only algorithm
	// internal/jws currently verifies.
	Algorithm string `yaml:"algorithm,omitempty" default:"ES256" validate:"eq=ES256"`
}

// SiopConfig controls the SIOPv2/OID4VP exchange's defaults.
type SiopConfig struct {
	// ResponseMode is the default response_mode a Verifier builds request
	// URLs with when the caller does not override it.
	ResponseMode string `yaml:"response_mode,omitempty" default:"fragment" validate:"oneof=fragment query post direct_post"`
	// StateTTL is a lifetime for pending state/nonce exchanges. siop.Verifier
	// does not take this value: its server-side cache always uses
	// siop.DefaultStateTTL.
	StateTTL time.Duration `yaml:"state_ttl,omitempty" default:"10m"`
}

type envVars struct {
	ConfigYAML string `envconfig:"VC_CONFIG_YAML" required:"true"`
}

// Load reads the path named by the VC_CONFIG_YAML environment variable,
// applies struct defaults, unmarshals the YAML over them, and validates the
// result.
func Load() (*Cfg, error) {
	log := logger.NewSimple("config")
	log.Info("reading environment variable VC_CONFIG_YAML")

	env := envVars{}
	if err := envconfig.Process("", &env); err != nil {
		return nil, err
	}

	return LoadFile(env.ConfigYAML)
}

// LoadFile reads and validates configuration from path directly, bypassing
// the environment-variable indirection Load uses. Exposed for tests and for
// callers that already know their config path.
func LoadFile(path string) (*Cfg, error) {
	cfg := &Cfg{}
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("config: path is a directory")
	}

	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Cfg) error {
	return validator.New().Struct(cfg)
}
