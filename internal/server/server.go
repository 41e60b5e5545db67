package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"breachwatch/internal/audit"
	"breachwatch/internal/common"
	"breachwatch/internal/config"
	"breachwatch/internal/darkweb"
	"breachwatch/internal/logging"
	"breachwatch/internal/password"
	"breachwatch/internal/reputation"
)

const shutdownTimeout = 10 * time.Second

// Checks is the check surface the server exposes.
type Checks interface {
	CheckPassword(ctx context.Context, secret string) (password.BreachVerdict, error)
	CheckIP(ctx context.Context, ip string) (reputation.Verdict, error)
	SearchDarkWeb(ctx context.Context, target, typ string) (darkweb.Verdict, error)
	MonitorEmail(ctx context.Context, email string) (darkweb.Monitoring, error)
	MonitorDomain(ctx context.Context, domain string) (darkweb.Monitoring, error)
	Recent(ctx context.Context, kind common.CheckKind, limit int) ([]audit.Record, error)
}

// Server wraps the HTTP, gRPC and metrics listeners.
type Server struct {
	checks  Checks
	gen     *password.Generator
	cfg     config.ServerConfig
	router  *mux.Router
	grpcSrv *grpc.Server
	health  *health.Server
	log     *slog.Logger
}

func New(checks Checks, cfg config.ServerConfig, log *slog.Logger) *Server {
	s := &Server{
		checks: checks,
		gen:    password.NewGenerator(),
		cfg:    cfg,
		router: mux.NewRouter(),
		health: health.NewServer(),
		log:    logging.OrDiscard(log),
	}
	s.routes()

	s.grpcSrv = grpc.NewServer()
	registerIntel(s.grpcSrv, &intelService{checks: checks})
	healthpb.RegisterHealthServer(s.grpcSrv, s.health)
	s.health.SetServingStatus(intelServiceName, healthpb.HealthCheckResponse_SERVING)
	return s
}

func (s *Server) Router() http.Handler { return s.router }

// GRPC exposes the gRPC server for in-process listeners.
func (s *Server) GRPC() *grpc.Server { return s.grpcSrv }

// MetricsHandler serves the Prometheus registry at /metrics.
func MetricsHandler() http.Handler {
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	return m
}

// Run serves HTTP, gRPC and metrics until ctx is cancelled or a listener
// fails, then shuts all of them down.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{Addr: s.cfg.HTTPAddr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	metricsSrv := &http.Server{Addr: s.cfg.MetricsAddr, Handler: MetricsHandler(), ReadHeaderTimeout: 10 * time.Second}

	ln, err := net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errc := make(chan error, 3)
	go func() {
		s.log.Info("listening", "addr", s.cfg.HTTPAddr, "proto", "http")
		errc <- httpSrv.ListenAndServe()
	}()
	go func() {
		s.log.Info("listening", "addr", s.cfg.MetricsAddr, "proto", "metrics")
		errc <- metricsSrv.ListenAndServe()
	}()
	go func() {
		s.log.Info("listening", "addr", s.cfg.GRPCAddr, "proto", "grpc")
		errc <- s.grpcSrv.Serve(ln)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
		if errors.Is(runErr, http.ErrServerClosed) {
			runErr = nil
		}
		if runErr != nil {
			s.log.Error("server error", "err", runErr)
		}
	}

	s.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("http shutdown", "err", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		s.log.Error("metrics shutdown", "err", err)
	}
	s.grpcSrv.GracefulStop()
	return runErr
}
