package gemini

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"net"
	"net/url"
	"sync"
	"time"
)

// DefaultReadTimeout bounds reading the request line on an accepted
// connection when Server.ReadTimeout is zero, so a silent client can
// never hold a worker forever.
const DefaultReadTimeout = 30 * time.Second

// Request carries one decoded client request into a Handler.
type Request struct {
	// URL is the validated request target.
	URL *url.URL
	// Cert classifies the client certificate, if one was presented.
	Cert CertificateInfo
	// RemoteAddr is the peer's network address.
	RemoteAddr net.Addr
}

// Handler responds to a single Gemini request. Returning nil is
// reported to the client as a temporary failure.
type Handler interface {
	Handle(r Request) *Response
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(r Request) *Response

// Handle calls f(r).
func (f HandlerFunc) Handle(r Request) *Response {
	return f(r)
}

// Server accepts Gemini connections and dispatches one request per
// connection to its Handler, each connection in its own goroutine.
type Server struct {
	// Addr is the TCP address to listen on, ":1965" if empty.
	Addr string
	// ReuseAddr and ReusePort set SO_REUSEADDR and SO_REUSEPORT on the
	// listening socket before bind.
	ReuseAddr bool
	ReusePort bool
	// CertFile and KeyFile name the PEM server certificate pair.
	CertFile string
	KeyFile  string
	// SessionID labels the TLS session-ticket cache. Listeners that
	// share a SessionID issue tickets under the same key, so a client
	// can resume a session with any of them without a full handshake.
	// Empty means a random per-listener key.
	SessionID string
	// Handler receives decoded requests.
	Handler Handler
	// ReadTimeout bounds reading the request line. Zero means
	// DefaultReadTimeout.
	ReadTimeout time.Duration
	// ErrorLog logs per-connection failures. The log package default
	// is used when nil.
	ErrorLog *log.Logger

	errorRegister

	lnMu     sync.Mutex
	listener net.Listener
}

// NewServer returns a Server with the given socket-reuse options,
// certificate pair and session cache label. Addr and Handler are set
// by the caller before ListenAndServe.
func NewServer(reuseAddr, reusePort bool, certFile, keyFile, sessionID string) *Server {
	return &Server{
		ReuseAddr: reuseAddr,
		ReusePort: reusePort,
		CertFile:  certFile,
		KeyFile:   keyFile,
		SessionID: sessionID,
	}
}

// ListenAndServe listens on s.Addr and serves connections until the
// listener is closed.
func (s *Server) ListenAndServe() error {
	addr := s.Addr
	if addr == "" {
		addr = ":1965"
	}
	ln, err := s.listen(addr)
	if err != nil {
		s.saveError(err)
		return err
	}
	s.lnMu.Lock()
	s.listener = ln
	s.lnMu.Unlock()
	return s.Serve(ln)
}

// listen binds with the requested socket-reuse options and wraps the
// listener with the server-side TLS configuration.
func (s *Server) listen(addr string) (net.Listener, error) {
	cer, err := tls.LoadX509KeyPair(s.CertFile, s.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificates: %w", err)
	}

	config := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cer},
		ClientAuth:   tls.RequestClientCert,
	}
	if s.SessionID != "" {
		key := sha256.Sum256([]byte(s.SessionID))
		config.SetSessionTicketKeys([][32]byte{key})
	}

	lc := net.ListenConfig{Control: controlSocket(s.ReuseAddr, s.ReusePort)}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	return tls.NewListener(ln, config), nil
}

// Serve accepts connections on ln. A failed handshake or a malformed
// request on one connection is isolated to that connection and never
// stops the listener. Serve returns nil once ln is closed.
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logf("gemini: accept: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// Close stops the listener started by ListenAndServe. Connections
// already being handled run to completion.
func (s *Server) Close() error {
	s.lnMu.Lock()
	defer s.lnMu.Unlock()
	if s.listener == nil {
		return nil
	}
	err := s.listener.Close()
	s.listener = nil
	return err
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	timeout := s.ReadTimeout
	if timeout == 0 {
		timeout = DefaultReadTimeout
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))

	var clientCert CertificateInfo
	if tlsConn, ok := conn.(*tls.Conn); ok {
		if err := tlsConn.Handshake(); err != nil {
			s.logf("gemini: handshake with %v: %v", conn.RemoteAddr(), err)
			return
		}
		state := tlsConn.ConnectionState()
		clientCert = classifyCertificates(state.PeerCertificates, "", time.Now(), nil)
	}

	rawURL, err := readRequestLine(conn)
	if err != nil {
		if errors.Is(err, ErrRequestTooLong) {
			_ = writeResponseHeader(conn, StatusMalformedRequest, "request exceeds 1024 bytes")
		} else {
			s.logf("gemini: read request from %v: %v", conn.RemoteAddr(), err)
		}
		return
	}
	u, err := ParseURL(rawURL)
	if err != nil {
		_ = writeResponseHeader(conn, StatusMalformedRequest, "malformed request")
		return
	}

	res := s.dispatch(Request{URL: u, Cert: clientCert, RemoteAddr: conn.RemoteAddr()})
	if res.Body != nil {
		defer res.Body.Close()
	}
	if err := writeResponse(conn, res); err != nil {
		s.logf("gemini: write to %v: %v", conn.RemoteAddr(), err)
	}
}

// dispatch runs the handler, converting panics and nil responses into
// a temporary-failure status at the boundary so one bad request can't
// bring the listener down.
func (s *Server) dispatch(r Request) (res *Response) {
	defer func() {
		if p := recover(); p != nil {
			s.logf("gemini: handler panic serving %v: %v", r.URL, p)
			res = &Response{Status: StatusTempError, Meta: "internal server error"}
		}
	}()
	if s.Handler == nil {
		return &Response{Status: StatusNotFound, Meta: "no handler configured"}
	}
	res = s.Handler.Handle(r)
	if res == nil {
		res = &Response{Status: StatusTempError, Meta: "empty response from handler"}
	}
	return res
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.ErrorLog != nil {
		s.ErrorLog.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// ErrorResponse creates a response from the given error with the error
// text as the Meta field. If the error is of type gemini.Error the
// status is taken from its Status field, otherwise it defaults to
// StatusTempError. A nil error panics.
func ErrorResponse(err error) *Response {
	if err == nil {
		panic("nil error is not a valid parameter")
	}
	var ge Error
	if errors.As(err, &ge) {
		return &Response{Status: ge.Status, Meta: ge.Error()}
	}
	return &Response{Status: StatusTempError, Meta: err.Error()}
}

// ListenAndServe creates a Gemini server on the specified address and
// passes new connections to the given handler, each in its own
// goroutine.
func ListenAndServe(addr, certFile, keyFile string, handler Handler) error {
	s := NewServer(false, false, certFile, keyFile, "")
	s.Addr = addr
	s.Handler = handler
	return s.ListenAndServe()
}
