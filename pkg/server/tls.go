package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/runpod/vllm/pkg/config"
)

// expiryWarning is how close to NotAfter a loaded certificate starts
// logging warnings.
const expiryWarning = 30 * 24 * time.Hour

// certReloader serves the configured key pair and reloads it when either
// file changes on disk, so renewed certificates apply without a restart.
type certReloader struct {
	certFile string
	keyFile  string
	interval time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	cert    *tls.Certificate
	certMod time.Time
	keyMod  time.Time
}

func newCertReloader(certFile, keyFile string, interval time.Duration) (*certReloader, error) {
	r := &certReloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
		now:      time.Now,
	}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// run polls the files until ctx is done. A non-positive interval disables
// reloading.
func (r *certReloader) run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.changed() {
				continue
			}
			if err := r.reload(); err != nil {
				slog.Error("failed to reload TLS certificate, keeping the previous one",
					"cert_file", r.certFile,
					"error", err,
				)
			}
		}
	}
}

func (r *certReloader) changed() bool {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return certInfo.ModTime().After(r.certMod) || keyInfo.ModTime().After(r.keyMod)
}

func (r *certReloader) reload() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return fmt.Errorf("TLS cert file not found: %s", r.certFile)
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return fmt.Errorf("TLS key file not found: %s", r.keyFile)
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS key pair: %w", err)
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse TLS certificate: %w", err)
	}

	now := r.now()
	switch {
	case now.Before(leaf.NotBefore):
		return fmt.Errorf("certificate is not yet valid (valid from %s)", leaf.NotBefore.Format(time.RFC3339))
	case now.After(leaf.NotAfter):
		return fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.RFC3339))
	}

	level := slog.LevelInfo
	if leaf.NotAfter.Sub(now) < expiryWarning {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "TLS certificate loaded",
		"subject", leaf.Subject.CommonName,
		"expires_at", leaf.NotAfter.Format(time.RFC3339),
	)

	r.mu.Lock()
	r.cert = &cert
	r.certMod = certInfo.ModTime()
	r.keyMod = keyInfo.ModTime()
	r.mu.Unlock()
	return nil
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *certReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert, nil
}

// configureTLS loads the key pair and returns a server TLS config that
// serves it through a reloader.
func configureTLS(cfg *config.TLSConfig) (*tls.Config, *certReloader, error) {
	if cfg.CertFile == "" {
		return nil, nil, errors.New("TLS cert file not specified")
	}
	if cfg.KeyFile == "" {
		return nil, nil, errors.New("TLS key file not specified")
	}

	reloader, err := newCertReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval)
	if err != nil {
		return nil, nil, err
	}

	minVersion := uint16(tls.VersionTLS12)
	if cfg.MinVersion == "1.3" {
		minVersion = tls.VersionTLS13
	}
	return &tls.Config{
		MinVersion:     minVersion,
		GetCertificate: reloader.GetCertificate,
	}, reloader, nil
}
