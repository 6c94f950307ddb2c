package tls

import (
	"crypto/tls"
	"fmt"
)

// LoadIdentity loads a TLS server identity from PEM certificate and key
// files and returns a *tls.Config using it.
func LoadIdentity(certPath, keyPath string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("load TLS identity: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
	}, nil
}
