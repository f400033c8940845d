// Package instance names the running process for locks and log lines.
package instance

import "os"

// EnvWorkerID overrides the detected instance name.
const EnvWorkerID = "COOKERZ_WORKER_ID"

// GetID returns COOKERZ_WORKER_ID, falling back to the hostname and then "worker-0".
func GetID() string {
	if id := os.Getenv(EnvWorkerID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
