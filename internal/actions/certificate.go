package actions

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/atomikpanda/blazesetup/internal/config"
	"github.com/atomikpanda/blazesetup/internal/shell"
)

// CertificateAction ensures a self-signed TLS certificate and key exist,
// generating both with openssl when either is missing. Existing pairs are
// reused without checking their expiry.
type CertificateAction struct {
	// Cert holds resolved CertFile and KeyFile paths.
	Cert   config.Certificate
	Runner shell.Runner
	// Verify checks the generated pair in-process after openssl returns.
	Verify bool
	Printer
	Log zerolog.Logger
}

func (a *CertificateAction) Describe() string {
	return fmt.Sprintf("ensure self-signed certificate %s and key %s", a.Cert.CertFile, a.Cert.KeyFile)
}

// IsApplied implements Idempotent. Both files must exist.
func (a *CertificateAction) IsApplied(context.Context) (bool, error) {
	return fileExists(a.Cert.CertFile) && fileExists(a.Cert.KeyFile), nil
}

func (a *CertificateAction) Run(ctx context.Context, dryRun bool) error {
	certExists := fileExists(a.Cert.CertFile)
	keyExists := fileExists(a.Cert.KeyFile)
	if certExists && keyExists {
		a.Info("certificates already exist: %s, %s", a.Cert.CertFile, a.Cert.KeyFile)
		return nil
	}
	if certExists || keyExists {
		a.Log.Warn().Bool("cert_exists", certExists).Bool("key_exists", keyExists).
			Msg("incomplete certificate pair found, regenerating both")
		a.Warn("incomplete certificate pair found, regenerating both")
	}

	cmd := a.command()
	if dryRun {
		a.DryRun("%s", cmd)
		return nil
	}

	for _, p := range []string{a.Cert.CertFile, a.Cert.KeyFile} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return &IOError{Op: "create certificate directory", Path: filepath.Dir(p), Err: err}
		}
	}

	a.Info("generating self-signed certificate and key...")
	a.Log.Info().Str("command", cmd.String()).Msg("generating certificate")
	res, err := a.Runner.Run(ctx, cmd)
	if err != nil || !res.Success() {
		return &CertificateError{Command: cmd.String(), Result: res, Err: err}
	}

	if a.Verify {
		if err := VerifyPairFiles(a.Cert); err != nil {
			return &CertificateError{Command: cmd.String(), Result: res, Err: fmt.Errorf("verify generated pair: %w", err)}
		}
	}
	a.OK("certificates generated: %s, %s", a.Cert.CertFile, a.Cert.KeyFile)
	return nil
}

func (a *CertificateAction) command() shell.Command {
	return shell.Command{
		Name: "openssl",
		Args: []string{
			"req", "-x509",
			"-newkey", "rsa:" + strconv.Itoa(a.Cert.KeyBits),
			"-keyout", a.Cert.KeyFile,
			"-out", a.Cert.CertFile,
			"-days", strconv.Itoa(a.Cert.ValidityDays),
			"-nodes",
			"-subj", a.Cert.Subject.String(),
		},
	}
}

// VerifyPairFiles reads the pair named by cert and checks it with VerifyPair.
func VerifyPairFiles(cert config.Certificate) error {
	certPEM, err := os.ReadFile(cert.CertFile)
	if err != nil {
		return err
	}
	keyPEM, err := os.ReadFile(cert.KeyFile)
	if err != nil {
		return err
	}
	return VerifyPair(certPEM, keyPEM, cert)
}

// VerifyPair checks that certPEM is a self-signed certificate for the
// unencrypted RSA key in keyPEM, matching the subject, key size and validity
// period of want.
func VerifyPair(certPEM, keyPEM []byte, want config.Certificate) error {
	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return errors.New("failed to decode private key PEM block")
	}
	if keyBlock.Type == "ENCRYPTED PRIVATE KEY" {
		return errors.New("private key is encrypted")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		// Try PKCS#1 format if PKCS#8 fails
		parsed, err = x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
		if err != nil {
			return fmt.Errorf("failed to parse private key: %w", err)
		}
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("private key is %T, want RSA", parsed)
	}
	if bits := key.N.BitLen(); bits != want.KeyBits {
		return fmt.Errorf("key is %d bits, want %d", bits, want.KeyBits)
	}

	certBlock, _ := pem.Decode(certPEM)
	if certBlock == nil || certBlock.Type != "CERTIFICATE" {
		return errors.New("failed to decode certificate PEM block")
	}
	cert, err := x509.ParseCertificate(certBlock.Bytes)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok || !pub.Equal(&key.PublicKey) {
		return errors.New("private key doesn't match certificate")
	}
	if !bytes.Equal(cert.RawIssuer, cert.RawSubject) {
		return errors.New("certificate is not self-signed")
	}
	if err := cert.CheckSignature(cert.SignatureAlgorithm, cert.RawTBSCertificate, cert.Signature); err != nil {
		return fmt.Errorf("certificate signature: %w", err)
	}
	if cn := cert.Subject.CommonName; cn != want.Subject.CommonName {
		return fmt.Errorf("common name is %s, expected %s", cn, want.Subject.CommonName)
	}
	if !slices.Contains(cert.Subject.Organization, want.Subject.Organization) {
		return fmt.Errorf("organization is %v, expected %s", cert.Subject.Organization, want.Subject.Organization)
	}

	span := cert.NotAfter.Sub(cert.NotBefore)
	wantSpan := time.Duration(want.ValidityDays) * 24 * time.Hour
	if diff := span - wantSpan; diff < -time.Hour || diff > time.Hour {
		return fmt.Errorf("certificate is valid for %s, want %d days", span, want.ValidityDays)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
