package config

import (
	"fmt"
	nethttp "net/http"

	"github.com/mitchellh/mapstructure"

	"github.com/d70-t/preffs/backend"
	preffshttp "github.com/d70-t/preffs/backend/http"
	"github.com/d70-t/preffs/backend/minio"
	"github.com/d70-t/preffs/backend/oci"
	"github.com/d70-t/preffs/backend/s3"
)

// S3 drivers.
const (
	DriverAWS   = "aws"
	DriverMinio = "minio"
)

// s3Section is the decoded backends.s3 section.
type s3Section struct {
	Driver          string `mapstructure:"driver" validate:"omitempty,oneof=aws minio"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
	MaxRetries      int    `mapstructure:"max_retries" validate:"gte=0"`
}

// ociSection is the decoded backends.oci section.
type ociSection struct {
	PlainHTTP    bool   `mapstructure:"plain_http"`
	Anonymous    bool   `mapstructure:"anonymous"`
	UserAgent    string `mapstructure:"user_agent"`
	DockerConfig bool   `mapstructure:"docker_config"`
}

func decodeSection(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

func decodeS3(raw map[string]any) (s3Section, error) {
	var sec s3Section
	if err := decodeSection(raw, &sec); err != nil {
		return sec, fmt.Errorf("invalid s3 config: %w", err)
	}
	if sec.Driver == "" {
		sec.Driver = DefaultS3Driver
	}
	if err := validate.Struct(sec); err != nil {
		return sec, formatValidationError(err)
	}
	if sec.Driver == DriverMinio && sec.Endpoint == "" {
		return sec, fmt.Errorf("driver %q requires an endpoint", DriverMinio)
	}
	return sec, nil
}

func decodeOCI(raw map[string]any) (ociSection, error) {
	var sec ociSection
	if err := decodeSection(raw, &sec); err != nil {
		return sec, fmt.Errorf("invalid oci config: %w", err)
	}
	return sec, nil
}

// s3Factory builds the s3:// factory for the configured driver.
func s3Factory(sec s3Section) backend.Factory {
	if sec.Driver == DriverMinio {
		return minio.Factory(minio.Config{
			Endpoint:        sec.Endpoint,
			Region:          sec.Region,
			AccessKeyID:     sec.AccessKeyID,
			SecretAccessKey: sec.SecretAccessKey,
			UseSSL:          sec.UseSSL,
		})
	}
	return s3.Factory(s3.Config{
		Region:          sec.Region,
		Endpoint:        sec.Endpoint,
		AccessKeyID:     sec.AccessKeyID,
		SecretAccessKey: sec.SecretAccessKey,
		ForcePathStyle:  sec.ForcePathStyle,
		MaxRetries:      sec.MaxRetries,
	})
}

func ociFactory(sec ociSection) backend.Factory {
	var opts []oci.Option
	if sec.PlainHTTP {
		opts = append(opts, oci.WithPlainHTTP(true))
	}
	if sec.UserAgent != "" {
		opts = append(opts, oci.WithUserAgent(sec.UserAgent))
	}
	switch {
	case sec.Anonymous:
		opts = append(opts, oci.WithAnonymous())
	case sec.DockerConfig:
		opts = append(opts, oci.WithDockerConfig())
	}
	return oci.Factory(opts...)
}

func httpFactory(cfg HTTPConfig) backend.Factory {
	var opts []preffshttp.Option
	if cfg.Timeout > 0 {
		opts = append(opts, preffshttp.WithTimeout(cfg.Timeout))
	}
	if len(cfg.Headers) > 0 {
		h := make(nethttp.Header, len(cfg.Headers))
		for k, v := range cfg.Headers {
			h.Set(k, v)
		}
		opts = append(opts, preffshttp.WithHeaders(h))
	}
	return preffshttp.Factory(opts...)
}

// Registry returns registry options wiring a factory for every configured
// remote scheme: http, https, s3 and oci. Backends are only constructed
// when a manifest first references their scheme.
func Registry(cfg *Config) ([]backend.RegistryOption, error) {
	s3sec, err := decodeS3(cfg.Backends.S3)
	if err != nil {
		return nil, fmt.Errorf("backends.s3: %w", err)
	}
	ocisec, err := decodeOCI(cfg.Backends.OCI)
	if err != nil {
		return nil, fmt.Errorf("backends.oci: %w", err)
	}

	hf := httpFactory(cfg.Backends.HTTP)
	return []backend.RegistryOption{
		backend.WithFactory(preffshttp.SchemeHTTP, hf),
		backend.WithFactory(preffshttp.SchemeHTTPS, hf),
		backend.WithFactory(s3.Scheme, s3Factory(s3sec)),
		backend.WithFactory(oci.Scheme, ociFactory(ocisec)),
	}, nil
}
