// Package xhttp implements the http plumbing of the serve command.
package xhttp

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"
	"oss.terrastruct.com/xcontext"
)

func NewServer(log *log.Logger, h http.Handler) *http.Server {
	return &http.Server{
		MaxHeaderBytes: 1 << 18, // 262,144B
		ReadTimeout:    time.Minute,
		IdleTimeout:    time.Hour,
		ErrorLog:       log,
		// Snapshots posted by a surface can be large.
		Handler: http.MaxBytesHandler(h, 8<<20),
	}
}

// Listen listens on host:port accepting at most maxConns connections at once.
// maxConns <= 0 means unlimited.
func Listen(host, port string, maxConns int) (net.Listener, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		l = netutil.LimitListener(l, maxConns)
	}
	return l, nil
}

// Serve serves s on l until ctx is done, then shuts down within
// shutdownTimeout.
func Serve(ctx context.Context, shutdownTimeout time.Duration, s *http.Server, l net.Listener) error {
	s.BaseContext = func(net.Listener) context.Context {
		return ctx
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(l)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		ctx = xcontext.WithoutCancel(ctx)
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return s.Shutdown(ctx)
	}
}
