package ember

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"log"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/acme/autocert"
)

// tlsListener builds a factory serving a fixed certificate/key pair.
func tlsListener(cert, key string) listenerFactory {
	return func(network, addr string) (net.Listener, error) {
		certificate, err := tls.LoadX509KeyPair(cert, key)
		if err != nil {
			return nil, err
		}

		return tls.Listen(network, addr, &tls.Config{
			Certificates: []tls.Certificate{certificate},
		})
	}
}

// autoTLSListener builds a factory obtaining certificates on demand via ACME.
// With no domains given, any host is accepted.
func autoTLSListener(domains ...string) listenerFactory {
	return func(network, addr string) (net.Listener, error) {
		m := &autocert.Manager{
			Prompt: autocert.AcceptTOS,
		}

		if len(domains) > 0 {
			m.HostPolicy = autocert.HostWhitelist(domains...)
		}

		if cache, err := certCacheDir(); err == nil {
			m.Cache = autocert.DirCache(cache)
		} else {
			log.Printf("WARNING: auto HTTPS: proceeding without a certificate cache: %s", err)
		}

		return tls.Listen(network, addr, &tls.Config{
			GetCertificate: m.GetCertificate,
		})
	}
}

// selfSignedCert returns paths to a cached self-signed localhost certificate,
// issuing a new one when the cache is empty. Such certificates are only good
// for local development; clients rightfully distrust them.
func selfSignedCert() (certFile, keyFile string, err error) {
	cache, err := certCacheDir()
	if err != nil {
		return "", "", err
	}

	certFile = filepath.Join(cache, "localhost.crt")
	keyFile = filepath.Join(cache, "localhost.key")
	if fileExists(certFile) && fileExists(keyFile) {
		return certFile, keyFile, nil
	}

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", err
	}

	template := x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{Organization: []string{"ember self-signed"}},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return "", "", err
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", "", err
	}

	if err = writePEM(certFile, "CERTIFICATE", der); err != nil {
		return "", "", err
	}

	if err = writePEM(keyFile, "PRIVATE KEY", keyDER); err != nil {
		return "", "", err
	}

	return certFile, keyFile, nil
}

func certCacheDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		base = os.TempDir()
	}

	dir := filepath.Join(base, "ember-certs")

	return dir, os.MkdirAll(dir, 0700)
}

func writePEM(path, blockType string, der []byte) error {
	fd, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer fd.Close()

	return pem.Encode(fd, &pem.Block{Type: blockType, Bytes: der})
}

func fileExists(path string) bool {
	stat, err := os.Stat(path)

	return err == nil && !stat.IsDir()
}
