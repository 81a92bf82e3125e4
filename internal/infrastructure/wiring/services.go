package wiring

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/config"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/logger"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/sse"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/storage"
	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/analysis"
	infraGeo "github.com/felixgeelhaar/buraco/pkg/geo"
)

// SessionTTL is how long an idle wizard session is kept.
const SessionTTL = 30 * time.Minute

// AppServices exposes the application layer wired to its adapters.
type AppServices struct {
	Config    *config.Config
	Logger    *logger.Logger
	Sessions  *storage.MemorySessionStore
	Analyzer  *analysis.Client
	Pipeline  *application.Pipeline
	Intake    *application.IntakeService
	Dispatch  *application.DispatchService
	Addresses *infraGeo.CachedAddressLookup
	Geocoder  *infraGeo.CachedGeocoder
	Events    *sse.Broker
	// Audit is nil unless cfg.Audit.Path is set.
	Audit *storage.AuditLog
	// Credentials resolved once from cfg.
	Credentials application.Credentials

	closers []func() error
}

// BuildAppServices constructs every service for one process. Close
// releases the cache connection, if any.
func BuildAppServices(ctx context.Context, cfg *config.Config, log *logger.Logger) (*AppServices, error) {
	if log == nil {
		log = logger.Nop()
	}
	analyzer, err := LoadAnalyzer(cfg)
	if err != nil {
		return nil, err
	}

	svc := &AppServices{
		Config:      cfg,
		Logger:      log,
		Sessions:    storage.NewMemorySessionStore(SessionTTL),
		Analyzer:    analyzer,
		Events:      sse.NewBroker(),
		Credentials: application.Credentials{AIKey: aiKey(cfg), MapsKey: cfg.Maps.APIKey},
	}

	cache := svc.buildCache(ctx)
	geoLog := log.With("component", "geo")
	svc.Addresses = infraGeo.NewCachedAddressLookup(infraGeo.NewViaCEP(), cache, geoLog)
	svc.Geocoder = infraGeo.NewCachedGeocoder(infraGeo.NewGoogleGeocoder(), cache, geoLog)

	svc.Pipeline = application.NewPipeline(analyzer, application.WithPipelineLogger(log.With("component", "pipeline")))
	intakeLog := log.With("component", "intake")
	opts := []application.IntakeOption{
		application.WithIntakeLogger(intakeLog),
		application.WithGeocoder(svc.Geocoder),
		application.WithEventPublisher(svc.Events),
	}
	if cfg.Audit.Path != "" {
		svc.Audit = storage.NewAuditLog(cfg.Audit.Path, storage.WithAuditErrorHandler(func(err error) {
			intakeLog.Warn("audit write failed", "error", err.Error())
		}))
		opts = append(opts, application.WithEventPublisher(svc.Audit))
	}
	svc.Intake = application.NewIntakeService(svc.Sessions, svc.Pipeline, svc.Addresses, svc.Credentials, opts...)

	sinks, err := BuildSinks(ctx, cfg)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	svc.Dispatch = application.NewDispatchService(log.With("component", "dispatch"), sinks...)

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}
	return svc, nil
}

// RunSweeper evicts idle sessions until ctx is done.
func (s *AppServices) RunSweeper(ctx context.Context) {
	s.Sessions.RunSweeper(ctx, SessionTTL/6)
}

// buildCache prefers Redis when configured and falls back to memory when
// it cannot be reached.
func (s *AppServices) buildCache(ctx context.Context) infraGeo.Cache {
	cfg := s.Config
	if cfg.Cache.RedisAddr != "" {
		rc, err := infraGeo.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.CacheTTL())
		if err == nil {
			s.closers = append(s.closers, rc.Close)
			s.Logger.Info("lookup cache backed by redis", "addr", cfg.Cache.RedisAddr)
			return rc
		}
		s.Logger.Warn("redis unavailable, using in-memory lookup cache", "addr", cfg.Cache.RedisAddr, "error", err.Error())
	}
	return infraGeo.NewMemoryCache(cfg.Cache.Size, cfg.CacheTTL())
}

func (s *AppServices) Close() error {
	s.Events.Close()
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	s.closers = nil
	return errors.Join(errs...)
}
