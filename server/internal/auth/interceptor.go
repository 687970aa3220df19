package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Guard checks API keys for one configured header.
//
// When mode != "apikey" or key == "", every request is allowed, which keeps
// local development friction-free. Otherwise the presented value must equal
// key exactly.
type Guard struct {
	enabled bool
	header  string
	key     []byte
}

// New returns a Guard for the given auth mode, header name and expected key.
func New(mode, header, key string) *Guard {
	return &Guard{
		enabled: mode == "apikey" && key != "",
		header:  header,
		key:     []byte(key),
	}
}

// Enabled reports whether requests are actually checked.
func (g *Guard) Enabled() bool { return g.enabled }

func (g *Guard) allow(presented string) bool {
	return subtle.ConstantTimeCompare([]byte(presented), g.key) == 1
}

// fromMetadata validates the key carried in incoming gRPC metadata.
// gRPC lowercases metadata keys, and metadata.MD.Get does the same.
func (g *Guard) fromMetadata(ctx context.Context) error {
	if !g.enabled {
		return nil
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return status.Error(codes.Unauthenticated, "missing metadata")
	}
	vals := md.Get(g.header)
	if len(vals) == 0 || !g.allow(vals[0]) {
		return status.Error(codes.Unauthenticated, "invalid api key")
	}
	return nil
}

// UnaryInterceptor enforces the key on every unary gRPC call.
func (g *Guard) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if err := g.fromMetadata(ctx); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamInterceptor enforces the key when a gRPC stream opens.
func (g *Guard) StreamInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := g.fromMetadata(ss.Context()); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// Middleware enforces the key on HTTP requests, answering 401 with a JSON
// error body when it is missing or wrong.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	if !g.enabled {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.allow(r.Header.Get(g.header)) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"}) //nolint:errcheck
			return
		}
		next.ServeHTTP(w, r)
	})
}
