package probe

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/launchdash/launchdash/server/internal/store"
)

// Service is the health service name clients can query explicitly.
const Service = "launchdash.Dashboard"

// Probe keeps a gRPC health server in step with the live store.
type Probe struct {
	hs   *health.Server
	live *store.Live
}

// New creates a Probe and sets the initial status from live.
func New(live *store.Live) *Probe {
	p := &Probe{hs: health.NewServer(), live: live}
	p.Update()
	return p
}

// Register mounts the health service on srv.
func (p *Probe) Register(srv *grpc.Server) {
	healthpb.RegisterHealthServer(srv, p.hs)
}

// Health returns the underlying health server.
func (p *Probe) Health() healthpb.HealthServer { return p.hs }

// Update recomputes the serving status from the current store.
func (p *Probe) Update() {
	status := healthpb.HealthCheckResponse_SERVING
	if p.live.Current().Len() == 0 {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	p.hs.SetServingStatus("", status)
	p.hs.SetServingStatus(Service, status)
	slog.Debug("probe: status updated", "status", status.String())
}

// Run updates the status after every store reload. On ctx cancellation it
// marks everything NOT_SERVING so in-flight Watch streams learn about the
// shutdown. Run blocks until ctx is cancelled.
func (p *Probe) Run(ctx context.Context) {
	reloaded := p.live.Subscribe()
	for {
		select {
		case <-ctx.Done():
			p.hs.Shutdown()
			return
		case <-reloaded:
			p.Update()
		}
	}
}
