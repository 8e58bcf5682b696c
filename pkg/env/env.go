// Package env reads raw process environment variables for the few knobs
// needed before the envconfig-backed configuration is loaded, such as the
// bootstrap logger format and the platform-injected PORT.
package env

import "os"

// Get returns the environment variable value, or fallback when it is unset
// or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
