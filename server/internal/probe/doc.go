// Package probe publishes launchdash readiness over the standard gRPC health
// protocol (grpc.health.v1.Health). The overall service and the named
// Service report SERVING while the live store holds at least one record.
package probe
