package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/acertamais-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	require.Equal(t, "projects/p1/topics/events", topicResourceName("p1", "events"))
	require.Equal(t, "projects/other/topics/x", topicResourceName("p1", "projects/other/topics/x"))
	require.Empty(t, topicResourceName("", "events"))
	require.Empty(t, topicResourceName("p1", "  "))
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{RequestsTopic: "t"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	require.Nil(t, c.Publisher("t"))
	require.Error(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())
}
