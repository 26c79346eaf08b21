package gemini

import (
	"fmt"
	"sync"
)

// Error pairs an underlying error with the Gemini status code a server
// should report for it.
type Error struct {
	Err    error
	Status StatusCode
}

func (e Error) Error() string {
	return fmt.Sprintf("status %d: %v", e.Status, e.Err)
}

func (e Error) Unwrap() error {
	return e.Err
}

// RedirectError is returned when a redirect chain exceeds the client's
// MaxRedirects bound. Response holds the last redirect response
// received, so the caller can inspect its target.
type RedirectError struct {
	Response *Response
}

func (e *RedirectError) Error() string {
	return fmt.Sprintf("too many redirects, stopped at %q", e.Response.Meta)
}

// errorRegister stores the most recent failure of a Client or Server
// for callers that poll for errors instead of consuming return values,
// such as foreign-language bindings. Each instance carries its own
// register, so concurrent instances never clobber each other. Go
// callers should use the returned errors directly.
type errorRegister struct {
	errMu   sync.Mutex
	lastErr error
}

func (r *errorRegister) saveError(err error) {
	r.errMu.Lock()
	r.lastErr = err
	r.errMu.Unlock()
}

// HasError reports whether a failure is waiting to be consumed with
// TakeError.
func (r *errorRegister) HasError() bool {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.lastErr != nil
}

// TakeError returns the most recent failure and clears the register.
// It returns nil if no operation has failed since the last call.
func (r *errorRegister) TakeError() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	err := r.lastErr
	r.lastErr = nil
	return err
}
