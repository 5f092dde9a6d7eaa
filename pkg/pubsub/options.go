package pubsub

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/acertamais-backend/pkg/config"
)

func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if path := strings.TrimSpace(gcp.CredentialsFile); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}
