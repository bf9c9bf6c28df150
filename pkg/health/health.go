package health

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mikekulinski/jobmonitor/pkg/metrics"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	// ServiceName is the health service name reported alongside the overall "" status.
	ServiceName = "jobmonitor"

	DefaultPollInterval = 2 * time.Second
)

// Checker reports whether the backing store is reachable.
type Checker interface {
	Connected() bool
}

// Server publishes the store's connection state through the standard gRPC health service.
type Server struct {
	hs       *grpchealth.Server
	checker  Checker
	interval time.Duration
	logger   zerolog.Logger
	serving  bool
}

type Option func(*Server)

func WithPollInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

func NewServer(checker Checker, opts ...Option) *Server {
	s := &Server{
		hs:       grpchealth.NewServer(),
		checker:  checker,
		interval: DefaultPollInterval,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Update()
	return s
}

// Register attaches the health service to g.
func (s *Server) Register(g *grpc.Server) {
	healthpb.RegisterHealthServer(g, s.hs)
}

// Update polls the checker once and publishes the result.
func (s *Server) Update() {
	connected := s.checker.Connected()
	metrics.SetSessionConnected(connected)

	st := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		st = healthpb.HealthCheckResponse_SERVING
	}
	if connected != s.serving {
		s.logger.Info().Str("status", st.String()).Msg("Health status changed")
	}
	s.serving = connected
	s.hs.SetServingStatus("", st)
	s.hs.SetServingStatus(ServiceName, st)
}

// Run polls the checker until ctx is done, then marks every service NOT_SERVING.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.hs.Shutdown()
			return nil
		case <-ticker.C:
			s.Update()
		}
	}
}

// Check asks the health service at addr for the status of service.
func Check(ctx context.Context, addr, service, clientID string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	target := addr
	if !strings.Contains(target, "://") {
		// Plain host:port, including ":port", is dialed as is.
		target = "passthrough:///" + target
	}
	conn, err := grpc.NewClient(target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(clientIDUnaryInterceptor(clientID)),
	)
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("dialing [%s]: %w", addr, err)
	}
	defer conn.Close()
	return check(ctx, healthpb.NewHealthClient(conn), service)
}

func check(ctx context.Context, c healthpb.HealthClient, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("checking health of [%s]: %w", service, err)
	}
	return resp.GetStatus(), nil
}
