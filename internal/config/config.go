// Package config implements component I: parsing an operator-supplied
// YAML document into the location table, server bind addresses, CORS
// policy and service-info extras the rest of the server wires up.
package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ServerConfig names the bind address for one of the two HTTP listeners
// (ticket server and data server, per the teacher's split), plus the
// optional TLS cert/key pair the teacher's original `-secure`,
// `-https_cert` and `-https_key` flags exposed.
type ServerConfig struct {
	BindAddress string     `yaml:"bindAddress"`
	TLS         *TLSConfig `yaml:"tls"`
}

// TLSConfig names a certificate/key pair for a listener to serve HTTPS.
type TLSConfig struct {
	CertPath string `yaml:"certPath"`
	KeyPath  string `yaml:"keyPath"`
}

// FileBackendConfig configures a Location's File storage backend.
type FileBackendConfig struct {
	Root      string `yaml:"root"`
	Scheme    string `yaml:"scheme"`
	Authority string `yaml:"authority"`
	URLPrefix string `yaml:"urlPrefix"`
}

// S3BackendConfig configures a Location's S3 storage backend.
type S3BackendConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"pathStyle"`
}

// URLBackendConfig configures a Location's generic HTTP-origin backend.
type URLBackendConfig struct {
	FetchURL     string   `yaml:"fetchUrl"`
	ResponseURL  string   `yaml:"responseUrl"`
	ForwardAllow []string `yaml:"forwardAllow"`
	ForwardDeny  []string `yaml:"forwardDeny"`
}

// GCSBackendConfig configures a Location's Google Cloud Storage backend.
type GCSBackendConfig struct {
	Bucket         string `yaml:"bucket"`
	SignBy         string `yaml:"signBy"`
	PrivateKeyPath string `yaml:"privateKeyPath"`
	SignExpiryMins int    `yaml:"signExpiryMins"`
}

// C4GHConfig marks a Location's objects as Crypt4GH-encrypted and names
// the key material needed to unseal and re-seal their headers. The key
// pair is loaded either from local files (PrivateKeyPath/
// RecipientPublicKeyPath) or, exclusively, from two AWS Secrets Manager
// secret IDs (PrivateKeySecretID/RecipientPublicKeySecretID), mirroring
// the two key sources the original htsget-config's c4gh storage config
// supports.
type C4GHConfig struct {
	PrivateKeyPath         string `yaml:"privateKeyPath"`
	RecipientPublicKeyPath string `yaml:"publicKeyPath"`

	PrivateKeySecretID         string `yaml:"privateKeySecretId"`
	RecipientPublicKeySecretID string `yaml:"publicKeySecretId"`
}

// GuardConfig restricts which queries a Location serves (the optional
// per-location `guard` block).
type GuardConfig struct {
	Formats            []string `yaml:"formats"`
	Classes            []string `yaml:"classes"`
	ReferenceNameRegex string   `yaml:"referenceNameRegex"`
	Fields             []string `yaml:"fields"`
	Tags               []string `yaml:"tags"`
}

// LocationConfig is one entry of the `locations` list. Exactly one of
// File, S3, URL or GCS must be set; the config is invalid otherwise.
type LocationConfig struct {
	Regex        string             `yaml:"regex"`
	Substitution string             `yaml:"substitution"`
	File         *FileBackendConfig `yaml:"file"`
	S3           *S3BackendConfig   `yaml:"s3"`
	URL          *URLBackendConfig  `yaml:"url"`
	GCS          *GCSBackendConfig  `yaml:"gcs"`
	C4GH         *C4GHConfig        `yaml:"c4gh"`
	Guard        *GuardConfig       `yaml:"guard"`
}

// CORSConfig configures the OPTIONS * preflight response.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// AnalyticsConfig enables and configures component K.
type AnalyticsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	PropertyID string `yaml:"propertyId"`
}

// Config is the root of the YAML document (SPEC_FULL.md §4.I).
type Config struct {
	HtsgetTicketServer ServerConfig           `yaml:"htsgetTicketServer"`
	DataServer         ServerConfig           `yaml:"dataServer"`
	Locations          []LocationConfig       `yaml:"locations"`
	CORS               CORSConfig             `yaml:"cors"`
	ServiceInfo        map[string]interface{} `yaml:"serviceInfo"`
	Analytics          AnalyticsConfig        `yaml:"analytics"`
}

// Load parses a YAML document from r into a Config and validates that
// every location names exactly one backend.
func Load(r io.Reader) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %v", err)
	}
	for i, loc := range cfg.Locations {
		if err := loc.validate(); err != nil {
			return nil, fmt.Errorf("location %d: %v", i, err)
		}
	}
	return &cfg, nil
}

func (l LocationConfig) validate() error {
	count := 0
	for _, set := range []bool{l.File != nil, l.S3 != nil, l.URL != nil, l.GCS != nil} {
		if set {
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("must set exactly one of file, s3, url, gcs backends (got %d)", count)
	}
	if l.Regex == "" {
		return fmt.Errorf("missing regex")
	}
	if l.C4GH != nil {
		fromFile := l.C4GH.PrivateKeyPath != "" || l.C4GH.RecipientPublicKeyPath != ""
		fromSecretsManager := l.C4GH.PrivateKeySecretID != "" || l.C4GH.RecipientPublicKeySecretID != ""
		if fromFile == fromSecretsManager {
			return fmt.Errorf("c4gh: must set exactly one of privateKeyPath/publicKeyPath or privateKeySecretId/publicKeySecretId")
		}
	}
	return nil
}
