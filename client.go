package gemini

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"sync"
	"time"
)

// DefaultTimeout is the time a Client allows for DNS resolution, the
// TCP connect and the TLS handshake when its Timeout field is zero.
const DefaultTimeout = 15 * time.Second

// Response represents the response from a Gemini server. Status and
// Meta are fixed once the header has been parsed and never change
// afterwards.
type Response struct {
	Status StatusCode
	Meta   string
	// Body holds the bytes that follow the header. On the client side
	// it is non-nil only for success responses and streams from the
	// connection until the server closes it; the caller must close it.
	Body io.ReadCloser
	// Cert classifies the certificate received in the handshake. If
	// you are the client, it describes the server certificate, and
	// vice versa.
	Cert CertificateInfo
}

// Client issues Gemini requests. The zero value is usable; NewClient
// fills in the defaults matching DefaultClient.
type Client struct {
	// MaxRedirects is how many redirect responses Fetch follows before
	// giving up with a RedirectError. Zero means a single request with
	// no redirect following.
	MaxRedirects int
	// CertFile and KeyFile name a PEM certificate/key pair offered as
	// the client certificate during the handshake. Both must be set
	// for a certificate to be offered.
	CertFile string
	KeyFile  string
	// Timeout is equivalent to the Timeout field in net.Dialer: the
	// time to form the connection, handshake included. Zero means
	// DefaultTimeout.
	Timeout time.Duration
	// ReadTimeout is a deadline applied to the connection for reading
	// the header and body. Zero means no deadline: a silent server
	// holds the request until the caller closes the connection.
	ReadTimeout time.Duration
	// AllowInvalidStatuses means Fetch won't return an error for a
	// status code that is outside the documented set.
	AllowInvalidStatuses bool

	errorRegister

	connMu sync.Mutex
	conn   net.Conn
}

// DefaultClient follows up to 5 redirects and offers no client
// certificate.
var DefaultClient = &Client{MaxRedirects: 5, Timeout: DefaultTimeout}

// NewClient returns a Client following at most maxRedirects redirects
// and offering the certFile/keyFile pair when both are non-empty.
func NewClient(maxRedirects int, certFile, keyFile string) *Client {
	return &Client{
		MaxRedirects: maxRedirects,
		CertFile:     certFile,
		KeyFile:      keyFile,
		Timeout:      DefaultTimeout,
	}
}

// Fetch requests rawURL, following up to MaxRedirects redirect
// responses, and returns the first non-redirect response. It assumes
// port 1965 if no port is specified.
//
// When the redirect bound is exhausted the error is a *RedirectError
// carrying the last redirect response, and no request is issued for
// that response's target. Redirect targets are always absolute URLs
// and replace the current target entirely. Requests in the chain are
// strictly sequential.
func (c *Client) Fetch(rawURL string) (*Response, error) {
	res, err := c.fetch(rawURL)
	if err != nil {
		c.saveError(err)
	}
	return res, err
}

func (c *Client) fetch(rawURL string) (*Response, error) {
	target := rawURL
	visited := 0
	for {
		u, err := ParseURL(target)
		if err != nil {
			return nil, err
		}
		res, err := c.roundTrip(getHost(u), u)
		if err != nil {
			return nil, err
		}
		if res.Status.Class() != ClassRedirect {
			if !c.AllowInvalidStatuses && !res.Status.Valid() {
				c.Close()
				return nil, fmt.Errorf("invalid status code: %d", res.Status)
			}
			return res, nil
		}
		visited++
		if visited > c.MaxRedirects {
			return res, &RedirectError{Response: res}
		}
		target = res.Meta
	}
}

// FetchWithHost issues a single request for rawURL against the given
// host, so the URL host and the actual server don't have to match.
// This is how proxied requests with non-gemini schemes are made; the
// URL is deliberately not validated beyond parsing and the length
// limit, and redirects are not followed. The host is assumed to use
// port 1965 if no port number is provided.
func (c *Client) FetchWithHost(host, rawURL string) (*Response, error) {
	res, err := c.fetchWithHost(host, rawURL)
	if err != nil {
		c.saveError(err)
	}
	return res, err
}

func (c *Client) fetchWithHost(host, rawURL string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		// Error likely means there's no port in the host
		host = net.JoinHostPort(host, defaultPort)
	}
	return c.roundTrip(host, u)
}

// Fetch a resource from a Gemini server with the default client.
func Fetch(url string) (*Response, error) {
	return DefaultClient.Fetch(url)
}

// FetchWithHost fetches a resource at the given host with the default
// client.
func FetchWithHost(host, url string) (*Response, error) {
	return DefaultClient.FetchWithHost(host, url)
}

// roundTrip owns one connection: dial, send the request line, parse
// the header. For a success response the connection lives on as the
// response body; otherwise it is closed before returning, since no
// body is expected on other classes.
func (c *Client) roundTrip(host string, u *url.URL) (*Response, error) {
	conn, err := c.connect(host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the server: %w", err)
	}
	c.track(conn)

	if c.ReadTimeout != 0 {
		_ = conn.SetReadDeadline(time.Now().Add(c.ReadTimeout))
	}

	if err := writeRequest(conn, u.String()); err != nil {
		c.Close()
		return nil, err
	}
	h, err := readHeader(conn)
	if err != nil {
		c.Close()
		return nil, err
	}

	hostname, _, _ := net.SplitHostPort(host)
	res := &Response{
		Status: h.status,
		Meta:   h.meta,
		Cert:   classifyCertificates(conn.ConnectionState().PeerCertificates, hostname, time.Now(), nil),
	}
	if res.Status.Class() == ClassSuccess {
		res.Body = conn
	} else {
		c.Close()
	}
	return res, nil
}

// connect performs the TCP connect and the TLS handshake. Verification
// never aborts the handshake; the connection state is classified
// afterwards so unverifiable peers still produce a response.
func (c *Client) connect(host string) (*tls.Conn, error) {
	conf := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, // This must be set to allow self-signed certs
	}
	if c.CertFile != "" && c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		conf.Certificates = []tls.Certificate{cert}
	}

	keylogfile := os.Getenv("SSLKEYLOGFILE")
	if keylogfile != "" {
		w, err := os.OpenFile(keylogfile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0600)
		if err == nil {
			conf.KeyLogWriter = w
			defer w.Close()
		}
	}

	timeout := c.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return tls.DialWithDialer(&net.Dialer{Timeout: timeout}, "tcp", host, conf)
}

// track records conn as the connection owned by the request in flight,
// closing any connection left over from a previous response.
func (c *Client) track(conn net.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
}

// Close releases the connection owned by the most recent request, if
// any. Use it to discard a response without reading its body; reading
// the body to EOF and closing it has the same effect.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
