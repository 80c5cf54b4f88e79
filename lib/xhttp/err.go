package xhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"oss.terrastruct.com/cmdlog"
)

// Error is an error with the status code and body to answer it with.
type Error struct {
	Code int
	Resp interface{}
	Err  error
}

var _ interface {
	Is(error) bool
	Unwrap() error
} = Error{}

// Errorf returns an Error for code. A nil resp becomes the status text.
func Errorf(code int, resp interface{}, msg string, v ...interface{}) error {
	return ErrorWrap(code, resp, fmt.Errorf(msg, v...))
}

func ErrorWrap(code int, resp interface{}, err error) error {
	if resp == nil {
		resp = http.StatusText(code)
	}
	return Error{code, resp, err}
}

func (e Error) Unwrap() error {
	return e.Err
}

func (e Error) Is(err error) bool {
	e2, ok := err.(Error)
	if !ok {
		return false
	}
	return e.Code == e2.Code && e.Resp == e2.Resp && errors.Is(e.Err, e2.Err)
}

func (e Error) Error() string {
	return fmt.Sprintf("http error with code %v and resp %#v: %v", e.Code, e.Resp, e.Err)
}

// HandlerFunc is an http.HandlerFunc that may fail.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// HandlerFuncAdapter serves a HandlerFunc, logging its error and answering it
// as JSON. 4xx errors log as warnings and everything else as errors with a
// 500 unless the code was set through Errorf or ErrorWrap.
type HandlerFuncAdapter struct {
	Log  *cmdlog.Logger
	Func HandlerFunc
}

func (a HandlerFuncAdapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := a.Func(w, r); err != nil {
		handleError(a.Log, w, r, err)
	}
}

func handleError(clog *cmdlog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	var herr Error
	if !errors.As(err, &herr) {
		herr = ErrorWrap(http.StatusInternalServerError, nil, err).(Error)
	}

	var logger *log.Logger
	switch {
	case 400 <= herr.Code && herr.Code < 500:
		logger = clog.Warn
	case 500 <= herr.Code && herr.Code < 600:
		logger = clog.Error
	default:
		logger = clog.Error
		clog.Error.Printf("unexpected non error http status code %d with resp: %#v", herr.Code, herr.Resp)
		herr.Code = http.StatusInternalServerError
		herr.Resp = http.StatusText(herr.Code)
	}
	logger.Printf("error handling %s %s: %v", r.Method, r.URL, err)

	if ww, ok := w.(writtenResponseWriter); ok && ww.Written() {
		return
	}
	JSON(clog, w, herr.Code, map[string]interface{}{
		"error": herr.Resp,
	})
}

type writtenResponseWriter interface {
	Written() bool
}

// JSON writes v as the response body with code. A nil v writes the status
// text.
func JSON(clog *cmdlog.Logger, w http.ResponseWriter, code int, v interface{}) {
	if v == nil {
		v = map[string]interface{}{
			"status": http.StatusText(code),
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		clog.Error.Printf("json marshal error: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}
