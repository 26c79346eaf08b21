package gemini

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

// maxLineLength is the limit, in bytes and including the CRLF
// terminator, on the request line and the response header line.
const maxLineLength = 1024

var (
	// ErrRequestTooLong means the serialized request line exceeds 1024
	// bytes. It is detected locally, before any bytes are written.
	ErrRequestTooLong = errors.New("gemini: request line exceeds 1024 bytes")

	// ErrMalformedResponse means the response header broke the protocol
	// grammar: no CRLF within the size ceiling, a status that is not two
	// ASCII digits, or a missing space separator.
	ErrMalformedResponse = errors.New("gemini: malformed response header")

	errLineTooLong = errors.New("line exceeds 1024 bytes")
)

type header struct {
	status StatusCode
	meta   string
}

// writeRequest sends the single request line for requestURL. The
// length limit is enforced before any I/O happens.
func writeRequest(w io.Writer, requestURL string) error {
	if len(requestURL)+2 > maxLineLength {
		return ErrRequestTooLong
	}
	_, err := fmt.Fprintf(w, "%s\r\n", requestURL)
	if err != nil {
		return fmt.Errorf("could not send request to the server: %w", err)
	}
	return nil
}

// readLine reads a CRLF-terminated line of at most maxLineLength bytes
// including the terminator, returned without it. It reads byte by byte
// so that nothing past the terminator is consumed, and stops as soon
// as the ceiling is reached.
func readLine(r io.Reader) ([]byte, error) {
	var line []byte
	delim := []byte("\r\n")
	// A small buffer is inefficient but the maximum length of the line is small
	buf := make([]byte, 1)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			line = append(line, buf[0])
			if bytes.HasSuffix(line, delim) {
				return line[:len(line)-len(delim)], nil
			}
			if len(line) >= maxLineLength {
				return nil, errLineTooLong
			}
		}
		if err != nil {
			return nil, err
		}
	}
}

// readHeader reads and parses the one-line response header.
func readHeader(r io.Reader) (header, error) {
	line, err := readLine(r)
	if err != nil {
		if errors.Is(err, errLineTooLong) || errors.Is(err, io.EOF) {
			return header{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return header{}, fmt.Errorf("failed to read header: %w", err)
	}
	return parseHeader(line)
}

// parseHeader splits a response header line into status and meta. The
// status must be exactly two ASCII digits followed by a space.
func parseHeader(line []byte) (header, error) {
	if len(line) < 3 {
		return header{}, fmt.Errorf("%w: %q is too short", ErrMalformedResponse, line)
	}
	d1, d2 := line[0], line[1]
	if d1 < '0' || d1 > '9' || d2 < '0' || d2 > '9' {
		return header{}, fmt.Errorf("%w: status %q is not two digits", ErrMalformedResponse, line[:2])
	}
	if line[2] != ' ' {
		return header{}, fmt.Errorf("%w: no space after status", ErrMalformedResponse)
	}
	meta := string(line[3:])
	if len(meta) > maxLineLength {
		return header{}, fmt.Errorf("%w: meta is too long", ErrMalformedResponse)
	}
	return header{StatusCode((d1-'0')*10 + (d2 - '0')), meta}, nil
}

// readRequestLine reads the one-line client request and returns the
// raw URL text.
func readRequestLine(r io.Reader) (string, error) {
	line, err := readLine(r)
	if err != nil {
		if errors.Is(err, errLineTooLong) {
			return "", ErrRequestTooLong
		}
		return "", fmt.Errorf("failed to read request: %w", err)
	}
	return string(line), nil
}

// writeResponseHeader writes the status+meta line.
func writeResponseHeader(w io.Writer, status StatusCode, meta string) error {
	_, err := fmt.Fprintf(w, "%d %s\r\n", status, meta)
	if err != nil {
		return fmt.Errorf("failed to write header line to the client: %w", err)
	}
	return nil
}

// writeResponse writes the header line and, for success responses, the
// body. Bodies attached to non-success responses are not sent, since
// the protocol only carries a body on the success class.
func writeResponse(w io.Writer, res *Response) error {
	if err := writeResponseHeader(w, res.Status, res.Meta); err != nil {
		return err
	}
	if res.Body == nil || res.Status.Class() != ClassSuccess {
		return nil
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("failed to write the response body to the client: %w", err)
	}
	return nil
}
