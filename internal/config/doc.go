// Package config defines the application's configuration structure and
// loading. Configuration comes from environment variables (LINGOSHOP_
// prefix) layered over an optional config.yaml, and is validated before
// the application starts.
package config
