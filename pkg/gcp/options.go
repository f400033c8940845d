// Package gcp builds the client options shared by the Google Cloud clients.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/cookerz-backend/pkg/config"
)

// ClientOptions returns credential options for cfg followed by extra. Inline
// JSON wins over a credentials file; with neither set the clients fall back
// to application default credentials.
func ClientOptions(cfg config.GCPConfig, extra ...option.ClientOption) []option.ClientOption {
	var opts []option.ClientOption
	if js := strings.TrimSpace(cfg.CredentialsJSON); js != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(js)))
	} else if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	return append(opts, extra...)
}
