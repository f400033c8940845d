package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/option"

	"github.com/angelmondragon/cookerz-backend/pkg/config"
)

func TestClientOptions(t *testing.T) {
	assert.Empty(t, ClientOptions(config.GCPConfig{}))
	assert.Len(t, ClientOptions(config.GCPConfig{CredentialsJSON: "{}", ApplicationCredentials: "/creds.json"}), 1)
	assert.Len(t, ClientOptions(config.GCPConfig{ApplicationCredentials: " /creds.json "}, option.WithScopes("x")), 2)
	assert.Len(t, ClientOptions(config.GCPConfig{CredentialsJSON: "  "}, option.WithoutAuthentication()), 1)
}
