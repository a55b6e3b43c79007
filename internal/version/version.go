// Package version identifies the service in logs and telemetry.
package version

// Name is the service name reported to telemetry backends.
const Name = "huddle-api"

// Version is overridden at build time via -ldflags.
var Version = "dev"
