package gemini

import (
	"crypto/x509"
	"time"
)

// CertificateInfo classifies the certificate presented by the peer
// during a TLS handshake. It is informational: none of the
// combinations are treated as an engine-level failure. The flags are
// the input for a Trust-On-First-Use policy, which is up to the
// caller.
//
// At most one of IsVerified and IsSelfSigned is set, and either
// implies HasCertificate.
type CertificateInfo struct {
	// HasCertificate is true when the peer presented any certificate.
	HasCertificate bool
	// IsVerified is true when the certificate chain verified against a
	// trusted root with no other problems.
	IsVerified bool
	// IsSelfSigned is true when the only problem with the certificate
	// is a missing trust anchor, the usual shape of the self-signed
	// certificates common on Gemini.
	IsSelfSigned bool
}

// classifyCertificates derives CertificateInfo from the peer chain of
// a completed handshake. hostname may be empty when no particular name
// is expected, as for client certificates seen by a server. A nil
// roots pool means the system root store.
func classifyCertificates(chain []*x509.Certificate, hostname string, now time.Time, roots *x509.CertPool) CertificateInfo {
	var info CertificateInfo
	if len(chain) == 0 {
		return info
	}
	info.HasCertificate = true
	leaf := chain[0]

	var trustProblem, otherProblem bool

	if now.Before(leaf.NotBefore) || now.After(leaf.NotAfter) {
		otherProblem = true
	}
	if hostname != "" && !matchesHostname(leaf, hostname) {
		otherProblem = true
	}

	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: x509.NewCertPool(),
		CurrentTime:   now,
	}
	for _, c := range chain[1:] {
		opts.Intermediates.AddCert(c)
	}
	if _, err := leaf.Verify(opts); err != nil {
		if _, ok := err.(x509.UnknownAuthorityError); ok {
			trustProblem = true
		} else {
			otherProblem = true
		}
	}

	switch {
	case !trustProblem && !otherProblem:
		info.IsVerified = true
	case trustProblem && !otherProblem:
		info.IsSelfSigned = true
	}
	return info
}

// matchesHostname applies the certificate's name check with the legacy
// CommonName fallback still common on Gemini capsules.
func matchesHostname(cert *x509.Certificate, hostname string) bool {
	if cert.VerifyHostname(hostname) == nil {
		return true
	}
	return cert.Subject.CommonName == hostname
}
