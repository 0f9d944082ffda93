package actions

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/atomikpanda/blazesetup/internal/config"
	"github.com/atomikpanda/blazesetup/internal/shell"
)

func testPrinter(buf *bytes.Buffer) Printer {
	return Printer{Out: buf}
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func defaultConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg.WithRoot(t.TempDir())
}

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

// writeSelfSigned writes a PEM certificate/key pair the way openssl req -x509 would.
func writeSelfSigned(t *testing.T, certPath, keyPath string, key *rsa.PrivateKey, days int, subject pkix.Name) {
	t.Helper()
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	require.NoError(t, err)

	notBefore := time.Now().Add(-time.Minute)
	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		NotBefore:             notBefore,
		NotAfter:              notBefore.Add(time.Duration(days) * 24 * time.Hour),
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(certPath, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o644))
	require.NoError(t, os.WriteFile(keyPath, pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}), 0o600))
}

// parseSubject turns openssl's /C=IN/.../CN=blaze form into a pkix.Name.
func parseSubject(s string) pkix.Name {
	var n pkix.Name
	for _, part := range strings.Split(strings.Trim(s, "/"), "/") {
		k, v, _ := strings.Cut(part, "=")
		switch k {
		case "C":
			n.Country = []string{v}
		case "ST":
			n.Province = []string{v}
		case "L":
			n.Locality = []string{v}
		case "O":
			n.Organization = []string{v}
		case "OU":
			n.OrganizationalUnit = []string{v}
		case "CN":
			n.CommonName = v
		}
	}
	return n
}

// fakeOpenSSL handles "openssl req -x509 ..." by writing a real pair to the
// requested paths. Other commands succeed without effect.
func fakeOpenSSL(t *testing.T) func(shell.Command) (shell.Result, error) {
	return func(c shell.Command) (shell.Result, error) {
		if c.Name != "openssl" {
			return shell.Result{}, nil
		}
		flags := map[string]string{}
		for i := 0; i+1 < len(c.Args); i++ {
			if strings.HasPrefix(c.Args[i], "-") {
				flags[c.Args[i]] = c.Args[i+1]
			}
		}
		days, err := strconv.Atoi(flags["-days"])
		require.NoError(t, err)
		require.Equal(t, "rsa:2048", flags["-newkey"])
		writeSelfSigned(t, flags["-out"], flags["-keyout"], rsaKey(t), days, parseSubject(flags["-subj"]))
		return shell.Result{}, nil
	}
}

func mismatchedKeyPEM(t *testing.T) string {
	t.Helper()
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(k)}))
}
