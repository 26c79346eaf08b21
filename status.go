package gemini

// StatusCode is a two-digit Gemini response status as defined in the
// Gemini spec Appendix 1.
type StatusCode int

const (
	StatusInput          StatusCode = 10
	StatusSensitiveInput StatusCode = 11

	StatusSuccess StatusCode = 20

	StatusTempRedirect StatusCode = 30
	StatusRedirect     StatusCode = 31

	StatusTempError         StatusCode = 40
	StatusServerUnavailable StatusCode = 41
	StatusCGIError          StatusCode = 42
	StatusProxyError        StatusCode = 43
	StatusSlowDown          StatusCode = 44

	StatusError            StatusCode = 50
	StatusNotFound         StatusCode = 51
	StatusGone             StatusCode = 52
	StatusProxyRefused     StatusCode = 53
	StatusMalformedRequest StatusCode = 59

	StatusCertificateRequired     StatusCode = 60
	StatusCertificateUnauthorized StatusCode = 61
	StatusCertificateNotValid     StatusCode = 62
)

// StatusClass groups status codes by their tens digit, which is what
// drives client control flow. Wire values outside the documented codes
// still classify by their tens digit.
type StatusClass int

const (
	ClassInput            StatusClass = 10
	ClassSuccess          StatusClass = 20
	ClassRedirect         StatusClass = 30
	ClassTemporaryFailure StatusClass = 40
	ClassPermanentFailure StatusClass = 50
	ClassCertificate      StatusClass = 60
)

// Class returns the status class of s.
func (s StatusCode) Class() StatusClass {
	return StatusClass((int(s) / 10) * 10)
}

var validStatuses = map[StatusCode]bool{
	StatusInput:                   true,
	StatusSensitiveInput:          true,
	StatusSuccess:                 true,
	StatusTempRedirect:            true,
	StatusRedirect:                true,
	StatusTempError:               true,
	StatusServerUnavailable:       true,
	StatusCGIError:                true,
	StatusProxyError:              true,
	StatusSlowDown:                true,
	StatusError:                   true,
	StatusNotFound:                true,
	StatusGone:                    true,
	StatusProxyRefused:            true,
	StatusMalformedRequest:        true,
	StatusCertificateRequired:     true,
	StatusCertificateUnauthorized: true,
	StatusCertificateNotValid:     true,
}

// Valid reports whether s is one of the codes documented in the spec.
func (s StatusCode) Valid() bool {
	return validStatuses[s]
}
