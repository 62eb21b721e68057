package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	gcsapi "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/ga4gh/htsget-ticket-server/internal/crypt4gh"
	"github.com/ga4gh/htsget-ticket-server/internal/genomics"
	"github.com/ga4gh/htsget-ticket-server/internal/location"
	"github.com/ga4gh/htsget-ticket-server/internal/storage"
)

// Clients carries the cloud SDK clients the backends need. Credential
// discovery (environment, instance profile, ADC) is the caller's
// responsibility — cmd/htsget-server builds these once at startup and
// passes them in, so this package builds no clients itself. It does call
// Secrets Manager, through the given client, for secret-sourced C4GH keys.
type Clients struct {
	S3             *s3.Client
	GCS            *gcsapi.Client
	SecretsManager *secretsmanager.Client
}

// BuildLocations turns a parsed Config into the location.Table the
// resolver uses, constructing one storage.Storage per location and
// loading any Crypt4GH key material from disk or Secrets Manager.
func BuildLocations(ctx context.Context, cfg *Config, clients Clients) (location.Table, error) {
	table := make(location.Table, 0, len(cfg.Locations))
	for i, lc := range cfg.Locations {
		loc, err := buildLocation(ctx, lc, clients)
		if err != nil {
			return nil, fmt.Errorf("location %d: %v", i, err)
		}
		table = append(table, loc)
	}
	return table, nil
}

func buildLocation(ctx context.Context, lc LocationConfig, clients Clients) (*location.Location, error) {
	pattern, err := regexp.Compile(lc.Regex)
	if err != nil {
		return nil, fmt.Errorf("compiling regex: %v", err)
	}

	loc := &location.Location{
		Pattern:      pattern,
		Substitution: lc.Substitution,
	}

	switch {
	case lc.File != nil:
		loc.Backend = location.FileBackend
		loc.BackendRef = storage.NewFile(storage.FileConfig{
			Root:      lc.File.Root,
			Scheme:    lc.File.Scheme,
			Authority: lc.File.Authority,
			URLPrefix: lc.File.URLPrefix,
		})
	case lc.S3 != nil:
		loc.Backend = location.S3Backend
		loc.BackendRef = storage.NewS3(storage.S3Config{
			Bucket:        lc.S3.Bucket,
			Endpoint:      lc.S3.Endpoint,
			PathStyle:     lc.S3.PathStyle,
			PresignExpiry: 15 * time.Minute,
		}, clients.S3)
	case lc.URL != nil:
		loc.Backend = location.URLBackend
		loc.BackendRef = storage.NewURL(storage.URLConfig{
			FetchURL:     lc.URL.FetchURL,
			ResponseURL:  lc.URL.ResponseURL,
			ForwardAllow: toSet(lc.URL.ForwardAllow),
			ForwardDeny:  toSet(lc.URL.ForwardDeny),
		}, nil)
	case lc.GCS != nil:
		loc.Backend = location.GCSBackend
		privateKey, err := os.ReadFile(lc.GCS.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("reading GCS private key: %v", err)
		}
		loc.BackendRef = storage.NewGCS(storage.GCSConfig{
			Bucket:         lc.GCS.Bucket,
			SignBy:         lc.GCS.SignBy,
			PrivateKeyPEM:  privateKey,
			SignExpiryMins: lc.GCS.SignExpiryMins,
		}, clients.GCS)
	default:
		return nil, fmt.Errorf("no backend configured")
	}

	if lc.C4GH != nil {
		keys, err := loadC4GHKeys(ctx, *lc.C4GH, clients.SecretsManager)
		if err != nil {
			return nil, fmt.Errorf("loading c4gh keys: %v", err)
		}
		loc.ObjectKind = location.Crypt4GH
		loc.C4GHKeys = keys
	}

	if lc.Guard != nil {
		guard, err := buildGuard(*lc.Guard)
		if err != nil {
			return nil, fmt.Errorf("building guard: %v", err)
		}
		loc.Guard = guard
	}

	return loc, nil
}

// loadC4GHKeys loads the server's own private key and the recipient's
// public key, each a raw 32-byte X25519 key, either from local files or
// from two AWS Secrets Manager secrets, mirroring the original
// htsget-config's file-based and C4GHSecretsManager-based key sources.
func loadC4GHKeys(ctx context.Context, c C4GHConfig, sm *secretsmanager.Client) (crypt4gh.LocationKeys, error) {
	if c.PrivateKeySecretID != "" {
		return loadC4GHKeysFromSecretsManager(ctx, c, sm)
	}
	return loadC4GHKeysFromFiles(c)
}

func loadC4GHKeysFromFiles(c C4GHConfig) (crypt4gh.LocationKeys, error) {
	var keys crypt4gh.LocationKeys

	private, err := os.ReadFile(c.PrivateKeyPath)
	if err != nil {
		return keys, fmt.Errorf("reading private key: %v", err)
	}
	if len(private) != 32 {
		return keys, fmt.Errorf("private key %q must be 32 raw bytes, got %d", c.PrivateKeyPath, len(private))
	}
	copy(keys.Owner.Private[:], private)

	public, err := os.ReadFile(c.RecipientPublicKeyPath)
	if err != nil {
		return keys, fmt.Errorf("reading recipient public key: %v", err)
	}
	if len(public) != 32 {
		return keys, fmt.Errorf("public key %q must be 32 raw bytes, got %d", c.RecipientPublicKeyPath, len(public))
	}
	copy(keys.RecipientPublic[:], public)

	return keys, nil
}

// loadC4GHKeysFromSecretsManager fetches each key as its own secret,
// binary or string, the same two shapes the original's get_secret
// accepts.
func loadC4GHKeysFromSecretsManager(ctx context.Context, c C4GHConfig, sm *secretsmanager.Client) (crypt4gh.LocationKeys, error) {
	var keys crypt4gh.LocationKeys
	if sm == nil {
		return keys, fmt.Errorf("c4gh keys configured from secrets manager but no secrets manager client was built")
	}

	private, err := fetchSecretBytes(ctx, sm, c.PrivateKeySecretID)
	if err != nil {
		return keys, fmt.Errorf("fetching private key secret %q: %v", c.PrivateKeySecretID, err)
	}
	if len(private) != 32 {
		return keys, fmt.Errorf("private key secret %q must be 32 raw bytes, got %d", c.PrivateKeySecretID, len(private))
	}
	copy(keys.Owner.Private[:], private)

	public, err := fetchSecretBytes(ctx, sm, c.RecipientPublicKeySecretID)
	if err != nil {
		return keys, fmt.Errorf("fetching recipient public key secret %q: %v", c.RecipientPublicKeySecretID, err)
	}
	if len(public) != 32 {
		return keys, fmt.Errorf("public key secret %q must be 32 raw bytes, got %d", c.RecipientPublicKeySecretID, len(public))
	}
	copy(keys.RecipientPublic[:], public)

	return keys, nil
}

func fetchSecretBytes(ctx context.Context, sm *secretsmanager.Client, secretID string) ([]byte, error) {
	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &secretID})
	if err != nil {
		return nil, err
	}
	if out.SecretBinary != nil {
		return out.SecretBinary, nil
	}
	if out.SecretString != nil {
		return []byte(*out.SecretString), nil
	}
	return nil, fmt.Errorf("secret has neither a binary nor a string value")
}

func buildGuard(gc GuardConfig) (*location.Guard, error) {
	guard := &location.Guard{}

	if len(gc.Formats) > 0 {
		guard.AllowedFormats = make(map[genomics.Format]bool, len(gc.Formats))
		for _, name := range gc.Formats {
			f, err := genomics.ParseFormat(name)
			if err != nil {
				return nil, err
			}
			guard.AllowedFormats[f] = true
		}
	}
	if len(gc.Classes) > 0 {
		guard.AllowedClasses = make(map[genomics.Class]bool, len(gc.Classes))
		for _, name := range gc.Classes {
			c, err := genomics.ParseClass(name)
			if err != nil {
				return nil, err
			}
			guard.AllowedClasses[c] = true
		}
	}
	if gc.ReferenceNameRegex != "" {
		re, err := regexp.Compile(gc.ReferenceNameRegex)
		if err != nil {
			return nil, fmt.Errorf("compiling referenceNameRegex: %v", err)
		}
		guard.ReferenceNameRe = re
	}
	if len(gc.Fields) > 0 {
		guard.AllowedFields = toSet(gc.Fields)
	}
	if len(gc.Tags) > 0 {
		guard.AllowedTags = toSet(gc.Tags)
	}
	return guard, nil
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
