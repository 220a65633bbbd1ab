package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Options tunes the listener. Zero values fall back to the defaults below.
type Options struct {
	Port              int
	ReadHeaderTimeout time.Duration
	// WriteTimeout must cover a whole upload run, which compresses and uploads inside one request.
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
)

// Server serves the journal API until its context ends.
type Server struct {
	inner           *http.Server
	shutdownTimeout time.Duration
	hooks           []func(context.Context) error
}

// New constructs a server for handler.
func New(handler http.Handler, opts Options) *Server {
	return &Server{
		inner: &http.Server{
			Addr:              fmt.Sprintf(":%d", opts.Port),
			Handler:           handler,
			ReadHeaderTimeout: orDefault(opts.ReadHeaderTimeout, defaultReadHeaderTimeout),
			WriteTimeout:      orDefault(opts.WriteTimeout, defaultWriteTimeout),
		},
		shutdownTimeout: orDefault(opts.ShutdownTimeout, defaultShutdownTimeout),
	}
}

// OnShutdown registers a hook that runs, within the shutdown deadline, after the listener stops.
func (s *Server) OnShutdown(hook func(context.Context) error) {
	s.hooks = append(s.hooks, hook)
}

// Serve blocks until ctx is done or the listener fails, then drains in-flight requests
// and runs the shutdown hooks. A clean shutdown returns nil.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.inner.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	errs := []error{s.inner.Shutdown(shutdownCtx)}
	for _, hook := range s.hooks {
		errs = append(errs, hook(shutdownCtx))
	}
	return errors.Join(errs...)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
