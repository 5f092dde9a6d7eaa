package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcpfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/angelmondragon/acertamais-backend/pkg/config"
	"github.com/angelmondragon/acertamais-backend/pkg/logger"
)

// Client wraps the Firestore client used for the legacy catalog collections.
type Client struct {
	client    *gcpfirestore.Client
	projectID string
}

// ClientOptions builds the Google API options shared by Firestore and Firebase.
// An empty credentials file falls back to Application Default Credentials.
func ClientOptions(gcp config.GCPConfig) []option.ClientOption {
	if path := strings.TrimSpace(gcp.CredentialsFile); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// New connects to Firestore for the configured project.
func New(ctx context.Context, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required")
	}

	fs, err := gcpfirestore.NewClient(ctx, projectID, ClientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	if logg != nil {
		logg.Info(logg.WithField(ctx, "project_id", projectID), "firestore client initialized")
	}
	return &Client{client: fs, projectID: projectID}, nil
}

// Collection returns a reference to the named top-level collection.
func (c *Client) Collection(name string) *gcpfirestore.CollectionRef {
	return c.client.Collection(name)
}

// Ping lists at most one collection; Firestore has no dedicated health call.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("firestore client not initialized")
	}
	it := c.client.Collections(ctx)
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("firestore ping: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
