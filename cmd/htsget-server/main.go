// This binary serves htsget tickets for a set of configured locations,
// backed by local files, S3, GCS or a generic HTTP origin, optionally
// re-wrapping Crypt4GH-encrypted objects per recipient.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	gcsapi "cloud.google.com/go/storage"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/ga4gh/htsget-ticket-server/internal/analytics"
	"github.com/ga4gh/htsget-ticket-server/internal/config"
	"github.com/ga4gh/htsget-ticket-server/internal/httpapi"
	"github.com/ga4gh/htsget-ticket-server/internal/resolver"
)

var (
	configPath = flag.String("config", "htsget.yaml", "path to the server configuration file")
	bindAddr   = flag.String("bind_address", "", "HTTP bind address, overrides htsgetTicketServer.bindAddress from the config file")

	// gcsBearerToken mirrors the teacher's secure mode: rather than the
	// server's own application-default credentials, GCS calls are made
	// using a single bearer token passed on the command line (for
	// example a short-lived token minted by an operator's CI system).
	// Leaving it unset falls back to application-default credentials.
	gcsBearerToken = flag.String("gcs_bearer_token", "", "if set, GCS API calls authenticate with this bearer token instead of application-default credentials")
)

func main() {
	flag.Parse()

	f, err := os.Open(*configPath)
	if err != nil {
		log.Fatalf("Failed to open config file: %v", err)
	}
	defer f.Close()

	cfg, err := config.Load(f)
	if err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}

	ctx := context.Background()
	clients, err := buildClients(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to build storage clients: %v", err)
	}

	locations, err := config.BuildLocations(ctx, cfg, clients)
	if err != nil {
		log.Fatalf("Failed to build location table: %v", err)
	}

	server := httpapi.New(resolver.New(locations))
	server.AllowedOrigins = cfg.CORS.AllowedOrigins
	server.ServiceInfoExtras = cfg.ServiceInfo
	server.Log = logrus.StandardLogger()
	if cfg.Analytics.Enabled {
		server.Tracker = analytics.NewClient(cfg.Analytics.PropertyID)
	}

	address := cfg.HtsgetTicketServer.BindAddress
	if *bindAddr != "" {
		address = *bindAddr
	}
	if address == "" {
		address = ":3000"
	}

	log.Printf("Listening on %s", address)
	if tls := cfg.HtsgetTicketServer.TLS; tls != nil {
		err = server.Router().RunTLS(address, tls.CertPath, tls.KeyPath)
	} else {
		err = server.Router().Run(address)
	}
	if err != nil {
		log.Fatalf("HTTP server returned an error: %v", err)
	}
}

// buildClients constructs the cloud SDK clients BuildLocations needs,
// only when the config actually uses the corresponding backend.
func buildClients(ctx context.Context, cfg *config.Config) (config.Clients, error) {
	var clients config.Clients
	var needsS3, needsGCS, needsSecretsManager bool
	for _, lc := range cfg.Locations {
		if lc.S3 != nil {
			needsS3 = true
		}
		if lc.GCS != nil {
			needsGCS = true
		}
		if lc.C4GH != nil && lc.C4GH.PrivateKeySecretID != "" {
			needsSecretsManager = true
		}
	}

	if needsS3 || needsSecretsManager {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return clients, err
		}
		if needsS3 {
			clients.S3 = s3.NewFromConfig(awsCfg)
		}
		if needsSecretsManager {
			clients.SecretsManager = secretsmanager.NewFromConfig(awsCfg)
		}
	}
	if needsGCS {
		var opts []option.ClientOption
		if *gcsBearerToken != "" {
			source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: *gcsBearerToken})
			opts = append(opts, option.WithTokenSource(source))
		}
		gcsClient, err := gcsapi.NewClient(ctx, opts...)
		if err != nil {
			return clients, err
		}
		clients.GCS = gcsClient
	}
	return clients, nil
}
