package db

import (
	"context"
	"os"
	"strings"
	"time"

	"backend-tourguide/internal/config"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	firestoreDialTimeout = 10 * time.Second
	envEmulatorHost      = "FIRESTORE_EMULATOR_HOST"
	envGoogleProjectID   = "GOOGLE_CLOUD_PROJECT"
)

var newFirestoreFn = firestore.NewClient

// ConnectFirestore opens a Firestore client, pointing it at the emulator
// when FIRESTORE_EMULATOR_HOST is configured.
func ConnectFirestore(ctx context.Context, cfg config.Config) (*firestore.Client, error) {
	projectID := strings.TrimSpace(cfg.FirestoreProjectID)
	if projectID == "" {
		projectID = strings.TrimSpace(os.Getenv(envGoogleProjectID))
	}
	if projectID == "" {
		return nil, errors.New("firestore: project id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, firestoreDialTimeout)
	defer cancel()

	client, err := newFirestoreFn(ctx, projectID, firestoreOptions(cfg)...)
	if err != nil {
		return nil, errors.Wrap(err, "firestore: create client")
	}
	return client, nil
}

func firestoreOptions(cfg config.Config) []option.ClientOption {
	host := strings.TrimSpace(cfg.FirestoreEmulatorHost)
	if host == "" {
		return nil
	}
	if os.Getenv(envEmulatorHost) == "" {
		_ = os.Setenv(envEmulatorHost, host)
	}
	return []option.ClientOption{
		option.WithoutAuthentication(),
		option.WithEndpoint(host),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	}
}
