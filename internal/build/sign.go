package build

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
	"go.mozilla.org/pkcs7"
	gop12 "software.sslmate.com/src/go-pkcs12"
)

const createdBy = "1.0 (APK Studio)"

// Signature entries written by SignArchive.
const (
	manifestEntry  = "META-INF/MANIFEST.MF"
	sigFileEntry   = "META-INF/CERT.SF"
	sigBlockEntry  = "META-INF/CERT.RSA"
	maxManifestLen = 72
)

var errSignerKey = errors.New("signing key must be RSA")

// Signer holds the identity used for v1 (JAR) archive signatures.
type Signer struct {
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
}

// LoadKeystore reads a PKCS#12 keystore.
func LoadKeystore(p12 []byte, password string) (*Signer, error) {
	key, cert, _, err := gop12.DecodeChain(p12, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decode keystore: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errSignerKey
	}
	return &Signer{Certificate: cert, PrivateKey: rsaKey}, nil
}

// LoadKeystoreFile is LoadKeystore on a file path.
func LoadKeystoreFile(path, password string) (*Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}
	return LoadKeystore(data, password)
}

// NewEphemeralSigner creates a self-signed RSA identity valid for 30 years,
// the conventional lifetime of a debug signing key.
func NewEphemeralSigner(commonName string) (*Signer, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 62))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: commonName, Organization: []string{"APK Studio"}},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.AddDate(30, 0, 0),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Signer{Certificate: cert, PrivateKey: key}, nil
}

type entryDigest struct {
	name   string
	digest string
}

// SignArchive writes a copy of in to out carrying META-INF/MANIFEST.MF,
// CERT.SF and a detached PKCS#7 CERT.RSA. Existing signature files in in
// are dropped.
func (s *Signer) SignArchive(ctx context.Context, in, out string) error {
	r, err := zip.OpenReader(in)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer r.Close()

	var entries []*zip.File
	var digests []entryDigest
	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() || isSignatureFile(f.Name) {
			continue
		}
		d, err := digestEntry(f)
		if err != nil {
			return fmt.Errorf("failed to digest %s: %w", f.Name, err)
		}
		entries = append(entries, f)
		digests = append(digests, entryDigest{name: f.Name, digest: d})
	}

	manifest, sections := buildManifest(digests)
	sf := buildSignatureFile(manifest, sections, digests)
	block, err := s.signatureBlock(sf)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	return writeZipAtomic(out, func(w *zip.Writer) error {
		for _, meta := range []struct {
			name string
			data []byte
		}{
			{manifestEntry, manifest},
			{sigFileEntry, sf},
			{sigBlockEntry, block},
		} {
			fw, err := w.CreateHeader(&zip.FileHeader{Name: meta.name, Method: zip.Deflate, Modified: time.Now()})
			if err != nil {
				return err
			}
			if _, err := fw.Write(meta.data); err != nil {
				return err
			}
		}
		for _, f := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := w.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
		}
		return nil
	})
}

func (s *Signer) signatureBlock(sf []byte) ([]byte, error) {
	sd, err := pkcs7.NewSignedData(sf)
	if err != nil {
		return nil, fmt.Errorf("failed to create signed data: %w", err)
	}
	sd.SetDigestAlgorithm(pkcs7.OIDDigestAlgorithmSHA256)
	if err := sd.AddSigner(s.Certificate, s.PrivateKey, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, fmt.Errorf("failed to add signer: %w", err)
	}
	sd.Detach()
	der, err := sd.Finish()
	if err != nil {
		return nil, fmt.Errorf("failed to finish signing: %w", err)
	}
	return der, nil
}

func digestEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// buildManifest returns MANIFEST.MF and the raw bytes of each per-entry
// section, in entry order.
func buildManifest(digests []entryDigest) ([]byte, [][]byte) {
	var buf bytes.Buffer
	writeAttr(&buf, "Manifest-Version", "1.0")
	writeAttr(&buf, "Created-By", createdBy)
	buf.WriteString("\r\n")

	sections := make([][]byte, 0, len(digests))
	for _, d := range digests {
		var sec bytes.Buffer
		writeAttr(&sec, "Name", d.name)
		writeAttr(&sec, "SHA-256-Digest", d.digest)
		sec.WriteString("\r\n")
		sections = append(sections, sec.Bytes())
		buf.Write(sec.Bytes())
	}
	return buf.Bytes(), sections
}

func buildSignatureFile(manifest []byte, sections [][]byte, digests []entryDigest) []byte {
	mainEnd := bytes.Index(manifest, []byte("\r\n\r\n")) + 4

	var buf bytes.Buffer
	writeAttr(&buf, "Signature-Version", "1.0")
	writeAttr(&buf, "Created-By", createdBy)
	writeAttr(&buf, "SHA-256-Digest-Manifest", sum(manifest))
	writeAttr(&buf, "SHA-256-Digest-Manifest-Main-Attributes", sum(manifest[:mainEnd]))
	buf.WriteString("\r\n")

	for i, d := range digests {
		writeAttr(&buf, "Name", d.name)
		writeAttr(&buf, "SHA-256-Digest", sum(sections[i]))
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}

func sum(b []byte) string {
	h := sha256.Sum256(b)
	return base64.StdEncoding.EncodeToString(h[:])
}

// writeAttr writes "key: value" wrapped at 72 bytes per line, continuation
// lines starting with a single space.
func writeAttr(buf *bytes.Buffer, key, value string) {
	line := []byte(key + ": " + value)
	first := true
	for len(line) > 0 {
		limit := maxManifestLen
		if !first {
			buf.WriteByte(' ')
			limit--
		}
		n := min(limit, len(line))
		buf.Write(line[:n])
		buf.WriteString("\r\n")
		line = line[n:]
		first = false
	}
}
