//go:build integration

// Package integration exercises the remote backends against real services.
//
// These tests require Docker and start an OCI registry and a MinIO server
// using testcontainers. Set SKIP_DOCKER_TESTS=1 to skip them.
// Run with: go test -tags=integration ./integration/...
package integration
