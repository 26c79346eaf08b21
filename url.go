package gemini

import (
	"fmt"
	"net"
	"net/url"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

const defaultPort = "1965"

// ParseURL parses and validates rawURL as a Gemini URL. The scheme
// must be gemini (Client.FetchWithHost can be used for proxied
// requests with other schemes), the host must be non-empty, and the
// serialized request line, CRLF included, must fit in 1024 bytes.
// Unicode hostnames are converted to punycode. Percent-encoding is
// preserved as-is, and an empty path is normalized to "/".
func ParseURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("URL %q is missing a scheme", rawURL)
	}
	if u.Scheme != "gemini" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL %q is missing a host", rawURL)
	}

	host, err := punycodeHost(u.Hostname())
	if err != nil {
		return nil, fmt.Errorf("failed to convert host %q to punycode: %w", u.Hostname(), err)
	}
	if host != u.Hostname() {
		if u.Port() != "" {
			u.Host = net.JoinHostPort(host, u.Port())
		} else {
			u.Host = host
		}
	}

	if u.Path == "" {
		u.Path = "/"
	}
	if len(u.String())+2 > maxLineLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrRequestTooLong, len(u.String())+2)
	}
	return u, nil
}

// punycodeHost converts a Unicode hostname to its ASCII form. IP
// literals and hostnames that are already ASCII pass through untouched.
func punycodeHost(hostname string) (string, error) {
	if net.ParseIP(hostname) != nil {
		return hostname, nil
	}
	for i := 0; i < len(hostname); i++ {
		if hostname[i] >= utf8.RuneSelf {
			return idna.ToASCII(hostname)
		}
	}
	return hostname, nil
}

// getHost returns the host:port to dial for u, assuming port 1965 when
// the URL doesn't name one.
func getHost(u *url.URL) string {
	if u.Port() == "" {
		return net.JoinHostPort(u.Hostname(), defaultPort)
	}
	return u.Host
}
