package pubsub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cookerz-backend/pkg/config"
)

func TestResourceName(t *testing.T) {
	c := &Client{projectID: "cookerz-prod"}

	assert.Equal(t, "projects/cookerz-prod/topics/changes", c.resourceName(kindTopic, " changes "))
	assert.Equal(t, "projects/other/topics/changes", c.resourceName(kindTopic, "projects/other/topics/changes"))
	assert.Equal(t, "", c.resourceName(kindTopic, ""))

	assert.Equal(t, "projects/cookerz-prod/subscriptions/realtime", c.resourceName(kindSubscription, "realtime"))
	assert.Equal(t, "projects/x/subscriptions/y", c.resourceName(kindSubscription, "projects/x/subscriptions/y"))
	// A topic path is not a subscription path.
	assert.Equal(t, "projects/cookerz-prod/subscriptions/projects/x/topics/y",
		c.resourceName(kindSubscription, "projects/x/topics/y"))

	assert.Equal(t, "", (&Client{}).resourceName(kindTopic, "changes"))
	var nilClient *Client
	assert.Equal(t, "", nilClient.resourceName(kindSubscription, "realtime"))
}

func TestSubscriptionNames(t *testing.T) {
	names := subscriptionNames(config.PubSubConfig{RealtimeSubscription: "realtime", AnalyticsSubscription: "  "})
	assert.Equal(t, []string{"realtime"}, names)
	assert.Empty(t, subscriptionNames(config.PubSubConfig{}))
}

func TestNilClientHandles(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("changes"))
	assert.Nil(t, c.Subscription("realtime"))
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(t.Context()), errNotInitialized)
}

func TestNewClientRequiresProject(t *testing.T) {
	_, err := NewClient(t.Context(), config.GCPConfig{}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)
}
