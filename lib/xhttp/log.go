package xhttp

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"golang.org/x/text/message"

	"oss.terrastruct.com/cmdlog"
)

type ResponseWriter interface {
	http.ResponseWriter
	http.Hijacker
	http.Flusher
	writtenResponseWriter
}

var _ ResponseWriter = &responseWriter{}

// responseWriter records the status and length of a response. Websocket
// upgrades hijack it and are logged when the hijack happens.
type responseWriter struct {
	rw http.ResponseWriter

	written  bool
	hijacked bool
	status   int
	length   int

	onHijack func()
}

func (rw *responseWriter) Header() http.Header {
	return rw.rw.Header()
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.written = true
		rw.status = statusCode
	}
	rw.rw.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	if !rw.written && len(p) > 0 {
		rw.written = true
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
	}
	rw.length += len(p)
	return rw.rw.Write(p)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.rw.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying response writer does not implement http.Hijacker: %T", rw.rw)
	}
	conn, brw, err := hj.Hijack()
	if err == nil {
		rw.hijacked = true
		rw.written = true
		if rw.onHijack != nil {
			rw.onHijack()
		}
	}
	return conn, brw, err
}

func (rw *responseWriter) Flush() {
	f, ok := rw.rw.(http.Flusher)
	if !ok {
		return
	}
	f.Flush()
}

func (rw *responseWriter) Written() bool {
	return rw.written
}

// Log logs every request with its status, size and duration and turns panics
// into 500s.
func Log(clog *cmdlog.Logger, next http.Handler) http.Handler {
	englishPrinter := message.NewPrinter(message.MatchLanguage("en"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{
			rw: w,
			onHijack: func() {
				clog.Success.Printf("%s %s %v: upgraded", r.Method, r.URL, time.Since(start))
			},
		}

		defer func() {
			rec := recover()
			if rec != nil {
				clog.Error.Printf("caught panic: %#v\n%s", rec, debug.Stack())
				if !rw.hijacked {
					JSON(clog, rw, http.StatusInternalServerError, nil)
				}
			}
		}()

		next.ServeHTTP(rw, r)
		dur := time.Since(start)

		if rw.hijacked {
			return
		}
		if !rw.Written() {
			_, err := rw.Write(nil)
			if errors.Is(err, http.ErrHijacked) {
				return
			}
			clog.Warn.Printf("%s %s %v: no response written", r.Method, r.URL, dur)
			return
		}

		var statusLogger *log.Logger
		switch {
		case 300 <= rw.status && rw.status <= 399:
			statusLogger = clog.Info
		case 400 <= rw.status && rw.status <= 499:
			statusLogger = clog.Warn
		case 500 <= rw.status:
			statusLogger = clog.Error
		default:
			statusLogger = clog.Success
		}
		statusLogger.Printf("%s %s %d %sB %v", r.Method, r.URL, rw.status, englishPrinter.Sprint(rw.length), dur)
	})
}
