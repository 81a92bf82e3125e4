// Package httpapi exposes the intake wizard as a JSON API.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/felixgeelhaar/buraco/internal/infrastructure/logger"
	"github.com/felixgeelhaar/buraco/internal/infrastructure/sse"
	"github.com/felixgeelhaar/buraco/pkg/application"
)

type RouterConfig struct {
	Log       *logger.Logger
	Intake    *application.IntakeService
	Dispatch  *application.DispatchService
	Addresses application.AddressLookup
	Events    *sse.Broker
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.Dispatch == nil {
		cfg.Dispatch = application.NewDispatchService(cfg.Log)
	}
	if cfg.Events == nil {
		cfg.Events = sse.NewBroker()
	}

	router := gin.New()
	router.MaxMultipartMemory = MaxPhotoBytes
	router.Use(gin.Recovery(), RequestLogger(cfg.Log.With("component", "http")))

	router.GET("/healthcheck", HealthCheck)

	sessions := NewSessionHandler(cfg.Log, cfg.Intake, cfg.Dispatch, cfg.Events)
	lookups := NewLookupHandler(cfg.Addresses)

	api := router.Group("/api")
	{
		api.POST("/sessions", sessions.Create)
		api.GET("/sessions/:id", sessions.Get)
		api.DELETE("/sessions/:id", sessions.Delete)
		api.POST("/sessions/:id/advance", sessions.Advance)
		api.POST("/sessions/:id/retreat", sessions.Retreat)
		api.POST("/sessions/:id/restart", sessions.Restart)
		api.POST("/sessions/:id/address", sessions.SetAddress)
		api.POST("/sessions/:id/photo", sessions.SubmitPhoto)
		api.POST("/sessions/:id/photo/confirm", sessions.ConfirmPhoto)
		api.GET("/sessions/:id/report", sessions.Report)
		api.POST("/sessions/:id/dispatch", sessions.Dispatch)
		api.GET("/sessions/:id/events", sessions.Events)
		api.GET("/lookup/cep/:cep", lookups.CEP)
	}
	return router
}

// Serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully. onShutdown hooks run when shutdown starts.
func Serve(ctx context.Context, addr string, handler http.Handler, log *logger.Logger, onShutdown ...func()) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	for _, f := range onShutdown {
		srv.RegisterOnShutdown(f)
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("http api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
