package verifier

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/n-r-w/lg"
	"github.com/n-r-w/otasrv/internal/config"
	"github.com/n-r-w/otasrv/internal/entity"
)

func newVerifier(t *testing.T, publicKey string) *Verifier {
	t.Helper()

	v, err := New(&config.Config{PublicKey: publicKey}, lg.New())
	if err != nil {
		t.Fatalf("verifier init: %v", err)
	}
	return v
}

func TestChecksumRoundtrip(t *testing.T) {
	data := []byte("firmware image contents")

	for _, algorithm := range []string{AlgorithmMD5, AlgorithmSHA256} {
		sum, err := CalculateChecksum(data, algorithm)
		if err != nil {
			t.Fatalf("%s: %v", algorithm, err)
		}

		if !VerifyChecksum(data, sum) {
			t.Errorf("%s: checksum does not verify against itself", algorithm)
		}
		if !VerifyChecksum(data, strings.ToUpper(sum)) {
			t.Errorf("%s: comparison must be case-insensitive", algorithm)
		}

		// порча любого байта ломает проверку
		tampered := make([]byte, len(data))
		copy(tampered, data)
		tampered[0] ^= 0x01

		if VerifyChecksum(tampered, sum) {
			t.Errorf("%s: tampered data verified", algorithm)
		}
	}
}

func TestCalculateChecksumUnknownAlgorithm(t *testing.T) {
	if _, err := CalculateChecksum([]byte("x"), "crc32"); err == nil {
		t.Error("expected error for unknown algorithm")
	}
}

func TestVerifySignatureStructural(t *testing.T) {
	v := newVerifier(t, "")
	data := []byte("payload")

	tests := []struct {
		signature string
		valid     bool
	}{
		{base64.StdEncoding.EncodeToString([]byte("anything")), true},
		{"", false},
		{"not base64 !!!", false},
	}

	for _, tt := range tests {
		if got := v.VerifySignature(data, tt.signature); got != tt.valid {
			t.Errorf("VerifySignature(%q) = %v, expected %v", tt.signature, got, tt.valid)
		}
	}
}

func TestVerifySignatureWithKey(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}

	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}

	v := newVerifier(t, base64.StdEncoding.EncodeToString(der))

	data := []byte("firmware image contents")
	signature := base64.StdEncoding.EncodeToString(ed25519.Sign(priv, data))

	if !v.VerifySignature(data, signature) {
		t.Error("valid signature rejected")
	}

	if v.VerifySignature([]byte("other data"), signature) {
		t.Error("signature of other data accepted")
	}

	// структурно корректная, но чужая подпись
	bogus := base64.StdEncoding.EncodeToString(make([]byte, ed25519.SignatureSize))
	if v.VerifySignature(data, bogus) {
		t.Error("bogus signature accepted")
	}
}

func TestNewBadPublicKey(t *testing.T) {
	if _, err := New(&config.Config{PublicKey: "not a key"}, lg.New()); err == nil {
		t.Error("expected error for malformed public key")
	}
}

func TestVerifyIntegrity(t *testing.T) {
	v := newVerifier(t, "")
	data := []byte("firmware image contents")

	sum, err := CalculateChecksum(data, AlgorithmSHA256)
	if err != nil {
		t.Fatal(err)
	}

	// все проверки проходят
	res := v.VerifyIntegrity(data, &entity.FirmwareInfo{
		Version:  "1.0.0",
		FileSize: int64(len(data)),
		Checksum: sum,
	})
	if !res.Valid || len(res.Errors) != 0 {
		t.Errorf("expected valid result, got %v", res.Errors)
	}

	// размер и сумма неверны: обе ошибки накапливаются
	res = v.VerifyIntegrity(data, &entity.FirmwareInfo{
		Version:  "1.0.0",
		FileSize: int64(len(data)) + 1,
		Checksum: strings.Repeat("0", 64),
	})
	if res.Valid {
		t.Error("expected invalid result")
	}
	if len(res.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d: %v", len(res.Errors), res.Errors)
	}

	// необъявленные поля не проверяются
	res = v.VerifyIntegrity(data, &entity.FirmwareInfo{Version: "1.0.0"})
	if !res.Valid {
		t.Errorf("undeclared checks must be skipped: %v", res.Errors)
	}
}
