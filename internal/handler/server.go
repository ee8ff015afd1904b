package handler

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Health liveness and readiness probes
type Health interface {
	LivenessHandler(w http.ResponseWriter, r *http.Request)
	ReadinessHandler(w http.ResponseWriter, r *http.Request)
}

// Server http api server
type Server struct {
	httpServer *http.Server
}

// NewRouter registers every route, hub, metrics and health may be nil
func NewRouter(trading *Trading, hub *Hub, metrics http.Handler, health Health) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/accounts", trading.CreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}/balance", trading.GetBalance)
	mux.HandleFunc("POST /api/accounts/{id}/deposit", trading.Deposit)
	mux.HandleFunc("POST /api/accounts/{id}/withdraw", trading.Withdraw)
	mux.HandleFunc("GET /api/accounts/{id}/stats", trading.Stats)
	mux.HandleFunc("POST /api/accounts/{id}/positions", trading.OpenPosition)
	mux.HandleFunc("GET /api/accounts/{id}/positions", trading.ListOpen)
	mux.HandleFunc("GET /api/accounts/{id}/history", trading.History)
	mux.HandleFunc("GET /api/accounts/{id}/mark", trading.MarkToMarket)
	mux.HandleFunc("GET /api/positions/{id}", trading.GetPosition)
	mux.HandleFunc("POST /api/positions/{id}/close", trading.ClosePosition)

	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
	if health != nil {
		mux.HandleFunc("GET /healthz", health.LivenessHandler)
		mux.HandleFunc("GET /readyz", health.ReadinessHandler)
	}
	return logging(mux)
}

// NewServer constructor
func NewServer(host, port string, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}}
}

// Run serves until ctx is done, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("addr", s.httpServer.Addr).Info("server - Run: listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server - Run - ListenAndServe: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server - Run - Shutdown: %w", err)
	}
	return <-errCh
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack required by the websocket upgrade
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("server - Hijack: %T is not a hijacker", w.ResponseWriter)
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   sw.status,
			"duration": time.Since(start).String(),
		}).Debug("http request")
	})
}
