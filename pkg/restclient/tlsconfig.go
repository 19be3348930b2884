package restclient

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pkg/errors"
)

// TLSOptions holds the TLS settings of a configurator client
type TLSOptions struct {
	CaCertFile         string
	InsecureSkipVerify bool
}

// NewTLSConfig returns the TLS configuration of a configurator client
func NewTLSConfig(opts *TLSOptions) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: opts.InsecureSkipVerify,
	}
	if !opts.InsecureSkipVerify && opts.CaCertFile != "" {
		caCertPool := x509.NewCertPool()
		pem, err := os.ReadFile(opts.CaCertFile)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read CA certificate")
		}
		if !caCertPool.AppendCertsFromPEM(pem) {
			return nil, errors.Errorf("failed to append cert from PEM file : %s", opts.CaCertFile)
		}
		tlsConfig.RootCAs = caCertPool
	}
	return tlsConfig, nil
}
