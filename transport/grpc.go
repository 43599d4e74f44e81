package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/vietddude/objstore/metrics"
)

// Invoker maps a Request onto a gRPC call. Object storage APIs ship
// generated clients rather than a generic Call, so the mapping is supplied
// by the resource layer (or a test fake) instead of being hardcoded here.
type Invoker func(ctx context.Context, conn *grpc.ClientConn, req *Request) (*Response, error)

// GRPCTransport adapts a gRPC connection to the Transport interface.
type GRPCTransport struct {
	name   string
	conn   *grpc.ClientConn
	invoke Invoker

	monitor *Monitor
}

// DialGRPC connects to a gRPC endpoint, choosing TLS by scheme.
func DialGRPC(ctx context.Context, name, endpoint string, invoke Invoker) (*GRPCTransport, error) {
	target := endpoint
	var opts []grpc.DialOption

	if strings.HasPrefix(endpoint, "https://") || strings.HasSuffix(endpoint, ":443") {
		creds := credentials.NewTLS(&tls.Config{})
		opts = append(opts, grpc.WithTransportCredentials(creds))
		target = strings.TrimPrefix(target, "https://")
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		target = strings.TrimPrefix(target, "http://")
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(dialCtx, target, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial grpc endpoint %s: %w", target, err)
	}

	return &GRPCTransport{
		name:    name,
		conn:    conn,
		invoke:  invoke,
		monitor: NewMonitor(),
	}, nil
}

// Conn returns the underlying connection for use with generated clients.
func (t *GRPCTransport) Conn() *grpc.ClientConn {
	return t.conn
}

// RoundTrip issues one attempt through the configured Invoker. gRPC status
// errors come back as *Error so the retry predicate can classify them.
func (t *GRPCTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	metrics.RequestsTotal.WithLabelValues(t.name, req.Method).Inc()

	if req.InvocationID != "" {
		ctx = metadata.AppendToOutgoingContext(ctx,
			"x-invocation-id", req.InvocationID,
			"x-invocation-attempt", fmt.Sprintf("%d", req.Attempt),
		)
	}

	resp, err := t.invoke(ctx, t.conn, req)
	if err != nil {
		t.monitor.RecordFailure()
		metrics.RequestErrorsTotal.WithLabelValues(t.name, req.Method, "grpc").Inc()
		return nil, FromStatus(err)
	}

	latency := time.Since(start)
	t.monitor.RecordSuccess(latency)
	metrics.RequestLatency.WithLabelValues(t.name, req.Method).Observe(latency.Seconds())
	return resp, nil
}

// Health exposes the transport's health snapshot.
func (t *GRPCTransport) Health() HealthStatus {
	return t.monitor.Health()
}

// Close cleans up the connection.
func (t *GRPCTransport) Close() error {
	return t.conn.Close()
}
