package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/runpod/vllm/pkg/config"
)

// writeCert writes a self-signed key pair for cn valid over [notBefore,
// notAfter] and returns the file paths.
func writeCert(t *testing.T, dir, cn string, notBefore, notAfter time.Time) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalECPrivateKey: %v", err)
	}

	certPath := filepath.Join(dir, "server.crt")
	keyPath := filepath.Join(dir, "server.key")
	if err := os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certPath, keyPath
}

func leafCN(t *testing.T, cert *tls.Certificate) string {
	t.Helper()
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}
	return leaf.Subject.CommonName
}

func TestConfigureTLS(t *testing.T) {
	now := time.Now()

	t.Run("missing files", func(t *testing.T) {
		if _, _, err := configureTLS(&config.TLSConfig{Enabled: true}); err == nil {
			t.Error("expected error for missing cert file")
		}
		if _, _, err := configureTLS(&config.TLSConfig{Enabled: true, CertFile: "/nonexistent.pem", KeyFile: "/nonexistent.key"}); err == nil {
			t.Error("expected error for unreadable cert file")
		}
	})

	t.Run("expired certificate", func(t *testing.T) {
		certPath, keyPath := writeCert(t, t.TempDir(), "old", now.Add(-48*time.Hour), now.Add(-time.Hour))
		if _, _, err := configureTLS(&config.TLSConfig{Enabled: true, CertFile: certPath, KeyFile: keyPath}); err == nil {
			t.Error("expected error for expired certificate")
		}
	})

	t.Run("valid", func(t *testing.T) {
		certPath, keyPath := writeCert(t, t.TempDir(), "gateway", now.Add(-time.Hour), now.Add(90*24*time.Hour))
		tlsConfig, reloader, err := configureTLS(&config.TLSConfig{
			Enabled:    true,
			CertFile:   certPath,
			KeyFile:    keyPath,
			MinVersion: "1.3",
		})
		if err != nil {
			t.Fatalf("configureTLS() error = %v", err)
		}
		if tlsConfig.MinVersion != tls.VersionTLS13 {
			t.Errorf("MinVersion = %x", tlsConfig.MinVersion)
		}
		cert, err := tlsConfig.GetCertificate(&tls.ClientHelloInfo{})
		if err != nil || cert == nil {
			t.Fatalf("GetCertificate() = %v, %v", cert, err)
		}
		if got := leafCN(t, cert); got != "gateway" {
			t.Errorf("CommonName = %q", got)
		}
		if reloader.changed() {
			t.Error("changed() = true right after load")
		}
	})
}

func TestCertReloader_PicksUpNewPair(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	certPath, keyPath := writeCert(t, dir, "first", now.Add(-time.Hour), now.Add(24*time.Hour))

	r, err := newCertReloader(certPath, keyPath, time.Minute)
	if err != nil {
		t.Fatalf("newCertReloader() error = %v", err)
	}

	writeCert(t, dir, "second", now.Add(-time.Hour), now.Add(24*time.Hour))
	later := now.Add(time.Minute)
	if err := os.Chtimes(certPath, later, later); err != nil {
		t.Fatal(err)
	}
	if err := os.Chtimes(keyPath, later, later); err != nil {
		t.Fatal(err)
	}

	if !r.changed() {
		t.Fatal("changed() = false after rewrite")
	}
	if err := r.reload(); err != nil {
		t.Fatalf("reload() error = %v", err)
	}
	cert, _ := r.GetCertificate(nil)
	if got := leafCN(t, cert); got != "second" {
		t.Errorf("CommonName = %q, want second", got)
	}
}

func TestCertReloader_KeepsPairOnFailedReload(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	certPath, keyPath := writeCert(t, dir, "good", now.Add(-time.Hour), now.Add(24*time.Hour))

	r, err := newCertReloader(certPath, keyPath, time.Minute)
	if err != nil {
		t.Fatalf("newCertReloader() error = %v", err)
	}

	if err := os.WriteFile(certPath, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := r.reload(); err == nil {
		t.Fatal("reload() accepted a corrupt certificate")
	}
	cert, _ := r.GetCertificate(nil)
	if got := leafCN(t, cert); got != "good" {
		t.Errorf("CommonName = %q, want good", got)
	}
}
