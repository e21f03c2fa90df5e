package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap/zapcore"

	"github.com/granada-os/personalization/internal/config"
	"github.com/granada-os/personalization/internal/platform/logging"
)

// Telemetry owns the process-wide tracing, profiling and debug endpoints.
// The zero value is a valid, fully disabled Telemetry.
type Telemetry struct {
	logger    *logging.Logger
	tracing   func(context.Context) error
	logCore   zapcore.Core
	profiler  *pyroscope.Profiler
	debugSrv  *http.Server
	debugAddr string
}

// StartTelemetry brings up every enabled component. On error the already
// started components are stopped before returning.
func StartTelemetry(cfg config.Config, logger *logging.Logger) (*Telemetry, error) {
	if logger == nil {
		logger = logging.Default()
	}
	t := &Telemetry{logger: logger}

	t.tracing = startTracing(cfg, logger)
	if t.tracing != nil {
		t.logCore = newUptraceLogCore(cfg.ServiceVersion, max(cfg.LogLevel, logging.LevelInfo))
	}

	profiler, err := startProfiling(cfg, logger)
	if err != nil {
		_ = t.Shutdown(context.Background())
		return nil, err
	}
	t.profiler = profiler

	if err := t.startDebugServer(cfg); err != nil {
		_ = t.Shutdown(context.Background())
		return nil, err
	}

	return t, nil
}

// MirrorLogs tees logger into Uptrace logs when tracing is on. Debug entries,
// such as health check request logs, stay local.
func (t *Telemetry) MirrorLogs(logger *logging.Logger) *logging.Logger {
	if t == nil || t.logCore == nil {
		return logger
	}
	return logger.Tee(t.logCore)
}

// DebugAddr is the bound pprof address, empty when pprof is off.
func (t *Telemetry) DebugAddr() string {
	if t == nil {
		return ""
	}
	return t.debugAddr
}

// Shutdown stops the debug server first and the trace exporter last so spans
// from in-flight debug requests still flush.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}

	var errs []error
	if t.debugSrv != nil {
		if err := t.debugSrv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		} else {
			t.logger.Info("pprof server stopped")
		}
		t.debugSrv = nil
	}
	if t.profiler != nil {
		if err := t.profiler.Stop(); err != nil {
			errs = append(errs, err)
		}
		t.profiler = nil
	}
	if t.tracing != nil {
		if err := t.tracing(ctx); err != nil {
			errs = append(errs, err)
		}
		t.tracing = nil
	}
	return errors.Join(errs...)
}

func startTracing(cfg config.Config, logger *logging.Logger) func(context.Context) error {
	if !cfg.UptraceEnabled {
		logger.Info("uptrace disabled", "reason", "UPTRACE_ENABLED=false")
		return nil
	}
	if strings.TrimSpace(cfg.UptraceDSN) == "" {
		logger.Info("uptrace disabled", "reason", "UPTRACE_DSN empty")
		return nil
	}

	uptrace.ConfigureOpentelemetry(
		uptrace.WithDSN(cfg.UptraceDSN),
		uptrace.WithServiceName(cfg.ServiceName),
		uptrace.WithServiceVersion(cfg.ServiceVersion),
		uptrace.WithDeploymentEnvironment(cfg.AppEnv),
		uptrace.WithResourceAttributes(
			attribute.String("granada.storage_driver", cfg.StorageDriver),
			attribute.Bool("granada.geoip_enabled", cfg.GeoIPEnabled),
			attribute.Bool("granada.content_ai_enabled", cfg.ContentAIEnabled),
		),
	)
	logger.Info("uptrace enabled",
		"service_name", cfg.ServiceName,
		"service_version", cfg.ServiceVersion,
		"environment", cfg.AppEnv,
	)

	return uptrace.Shutdown
}

func startProfiling(cfg config.Config, logger *logging.Logger) (*pyroscope.Profiler, error) {
	if !cfg.PyroscopeEnabled {
		logger.Info("pyroscope disabled", "reason", "PYROSCOPE_ENABLED=false")
		return nil, nil
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   cfg.PyroscopeAppName,
		ServerAddress:     cfg.PyroscopeServerAddress,
		AuthToken:         cfg.PyroscopeAuthToken,
		BasicAuthUser:     cfg.PyroscopeBasicAuthUser,
		BasicAuthPassword: cfg.PyroscopeBasicAuthPassword,
		UploadRate:        cfg.PyroscopeUploadRate,
		Tags:              profileTags(cfg),
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		return nil, err
	}

	logger.Info("pyroscope enabled",
		"server_address", cfg.PyroscopeServerAddress,
		"application", cfg.PyroscopeAppName,
	)
	return profiler, nil
}

func profileTags(cfg config.Config) map[string]string {
	return map[string]string{
		"env":     cfg.AppEnv,
		"service": cfg.ServiceName,
		"version": cfg.ServiceVersion,
		"storage": cfg.StorageDriver,
	}
}

func (t *Telemetry) startDebugServer(cfg config.Config) error {
	if !cfg.PprofEnabled {
		t.logger.Info("pprof disabled", "reason", "PPROF_ENABLED=false")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	ln, err := net.Listen("tcp", cfg.PprofAddr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	t.debugSrv = srv
	t.debugAddr = ln.Addr().String()

	logger := t.logger
	go func() {
		logger.Info("pprof server starting", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("pprof server failed", "error", err)
		}
	}()
	return nil
}
