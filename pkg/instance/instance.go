package instance

import (
	"os"

	"github.com/angelmondragon/orderbridge/pkg/env"
)

// ID names the running process for logs. It prefers an explicit
// ORDERBRIDGE_INSTANCE_ID, then the platform dyno name, then the hostname.
func ID(fallback string) string {
	if id := env.First("", "ORDERBRIDGE_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
