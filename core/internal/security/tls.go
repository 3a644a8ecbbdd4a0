package security

import (
	"crypto/tls"
	"crypto/x509"
	"strings"

	"github.com/pkg/errors"
)

// TLSConfig is the subset of connection-security settings the engine
// accepts for its outbound database connections, mirroring the teacher's
// DB.RootCertificate/ClientCert/ClientKey/ServerName fields, plus the
// inbound-connection floor (MTLSRequired) the transport layer enforces via
// TLSEnforcer.
type TLSConfig struct {
	Enabled      bool
	MTLSRequired bool
	RootCert     string
	ClientCert   string
	ClientKey    string
	ServerName   string
	MinVersion   uint16 // defaults to tls.VersionTLS12 when zero
}

// Enforcer derives the TLSEnforcer a transport layer checks incoming
// connections against, per the declared config.
func (c TLSConfig) Enforcer() TLSEnforcer {
	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return TLSEnforcer{required: c.Enabled, mtlsRequired: c.MTLSRequired, minVersion: minVersion}
}

// TLSEnforcer exposes the declared TLS floor (required?, mTLS required?,
// minimum version) to the transport layer. The core itself never accepts
// connections; Check is how a caller refuses one that doesn't meet the
// declared floor before handing it to the pipeline.
type TLSEnforcer struct {
	required     bool
	mtlsRequired bool
	minVersion   uint16
}

// NewTLSEnforcer builds an enforcer directly, defaulting minVersion to
// tls.VersionTLS12 when zero.
func NewTLSEnforcer(required, mtlsRequired bool, minVersion uint16) TLSEnforcer {
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	return TLSEnforcer{required: required, mtlsRequired: mtlsRequired, minVersion: minVersion}
}

// Required reports whether TLS is mandatory for inbound connections.
func (e TLSEnforcer) Required() bool { return e.required }

// MTLSRequired reports whether a verified client certificate is mandatory.
func (e TLSEnforcer) MTLSRequired() bool { return e.mtlsRequired }

// MinVersion is the lowest negotiated TLS version Check accepts.
func (e TLSEnforcer) MinVersion() uint16 { return e.minVersion }

// Check refuses a connection whose negotiated state doesn't meet the
// declared floor: TLS absent when required, a negotiated version below the
// floor, or mTLS required but no peer certificate presented. A nil state
// means the connection never negotiated TLS at all.
func (e TLSEnforcer) Check(state *tls.ConnectionState) error {
	if !e.required {
		return nil
	}
	if state == nil {
		return errors.New("tls: connection does not use TLS but it is required")
	}
	if state.Version < e.minVersion {
		return errors.Errorf("tls: negotiated version 0x%04x is below the required minimum 0x%04x", state.Version, e.minVersion)
	}
	if e.mtlsRequired && len(state.PeerCertificates) == 0 {
		return errors.New("tls: client certificate is required but none was presented")
	}
	return nil
}

// Build renders a *tls.Config from the declarative TLSConfig, or nil when
// TLS is disabled. Certificates/keys may be either raw PEM or a file path;
// raw PEM is detected by the presence of the standard PEM header.
func (c TLSConfig) Build(readFile func(path string) ([]byte, error)) (*tls.Config, error) {
	if !c.Enabled {
		return nil, nil
	}

	minVersion := c.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}
	cfg := &tls.Config{MinVersion: minVersion, ServerName: c.ServerName}

	if c.RootCert != "" {
		pem, err := resolvePEM(c.RootCert, readFile)
		if err != nil {
			return nil, errors.Wrap(err, "tls: root certificate")
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("tls: failed to append root certificate pem")
		}
		cfg.RootCAs = pool
	}

	if c.ClientCert != "" {
		if c.ClientKey == "" {
			return nil, errors.New("tls: client_key is required when client_cert is set")
		}
		certPEM, err := resolvePEM(c.ClientCert, readFile)
		if err != nil {
			return nil, errors.Wrap(err, "tls: client certificate")
		}
		keyPEM, err := resolvePEM(c.ClientKey, readFile)
		if err != nil {
			return nil, errors.Wrap(err, "tls: client key")
		}
		cert, err := tls.X509KeyPair(certPEM, keyPEM)
		if err != nil {
			return nil, errors.Wrap(err, "tls: invalid client key pair")
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

const pemHeader = "-----BEGIN"

func resolvePEM(value string, readFile func(string) ([]byte, error)) ([]byte, error) {
	if strings.Contains(value, pemHeader) {
		return []byte(strings.ReplaceAll(value, `\n`, "\n")), nil
	}
	return readFile(value)
}
