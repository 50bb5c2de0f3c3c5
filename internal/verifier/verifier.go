// Package verifier Проверка целостности скачанной прошивки
package verifier

import (
	"crypto/ed25519"
	"crypto/md5"
	"crypto/x509"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/n-r-w/lg"
	"github.com/n-r-w/nerr"
	"github.com/n-r-w/otasrv/internal/config"
	"github.com/n-r-w/otasrv/internal/entity"
	"github.com/n-r-w/tools"
)

// Поддерживаемые алгоритмы контрольных сумм
const (
	AlgorithmMD5    = "md5"
	AlgorithmSHA256 = "sha256"
)

// длина hex-представления md5
const md5HexLen = 32

// Verifier проверяет скачанный буфер против объявленных в каталоге
// размера, контрольной суммы и подписи. Чистые вычисления, без I/O
type Verifier struct {
	publicKey ed25519.PublicKey // nil, если ключ не задан в конфиге
	logger    lg.Logger
}

func New(cfg *config.Config, logger lg.Logger) (*Verifier, error) {
	v := &Verifier{
		logger: logger,
	}

	if cfg.PublicKey != "" {
		key, err := ParsePublicKey(cfg.PublicKey)
		if err != nil {
			return nil, err
		}
		v.publicKey = key
	}

	return v, nil
}

// ParsePublicKey разбор публичного ключа ed25519 из base64 PKIX DER
func ParsePublicKey(keyBase64 string) (ed25519.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, nerr.New(err, "bad public key encoding")
	}

	pub, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, nerr.New(err, "bad public key")
	}

	key, ok := pub.(ed25519.PublicKey)
	if !ok {
		return nil, nerr.New("public key is not ed25519")
	}

	return key, nil
}

// CalculateChecksum hex-дайджест буфера указанным алгоритмом
func CalculateChecksum(data []byte, algorithm string) (string, error) {
	switch algorithm {
	case AlgorithmMD5:
		sum := md5.Sum(data)
		return hex.EncodeToString(sum[:]), nil
	case AlgorithmSHA256:
		return tools.Sha256sum(data)
	default:
		return "", nerr.NewFmt("unknown checksum algorithm: %s", algorithm)
	}
}

// VerifyChecksum проверка контрольной суммы. Алгоритм определяется по длине
// ожидаемого значения: 32 hex-символа — md5, иначе sha256.
// Сравнение регистронезависимое
func VerifyChecksum(data []byte, expected string) bool {
	algorithm := AlgorithmSHA256
	if len(expected) == md5HexLen {
		algorithm = AlgorithmMD5
	}

	sum, err := CalculateChecksum(data, algorithm)
	if err != nil {
		return false
	}

	return strings.EqualFold(sum, expected)
}

// VerifySignature проверка подписи прошивки.
// Если публичный ключ не задан, выполняется только структурная проверка
// (подпись не пуста и декодируется из base64). Это НЕ криптографическая
// гарантия подлинности, а защита от испорченного поля в каталоге.
// С заданным ключом — настоящая проверка ed25519 по всему буферу
func (v *Verifier) VerifySignature(data []byte, signature string) bool {
	if signature == "" {
		return false
	}

	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	if v.publicKey == nil {
		// режим без ключа: подпись структурно корректна, но не проверена
		return true
	}

	return ed25519.Verify(v.publicKey, data, sig)
}

// VerifyIntegrity полная проверка буфера против записи каталога.
// Все проверки независимы и выполняются без прерывания на первой ошибке,
// чтобы в результате были собраны все проблемы целостности сразу
func (v *Verifier) VerifyIntegrity(data []byte, info *entity.FirmwareInfo) entity.VerificationResult {
	var errs []string

	if info.FileSize > 0 && int64(len(data)) != info.FileSize {
		errs = append(errs, fmt.Sprintf("file size mismatch: expected %d, got %d", info.FileSize, len(data)))
	}

	if info.Checksum != "" && !VerifyChecksum(data, info.Checksum) {
		errs = append(errs, "checksum mismatch")
	}

	if info.Signature != "" && !v.VerifySignature(data, info.Signature) {
		errs = append(errs, "invalid signature")
	}

	if len(errs) > 0 {
		v.logger.Warn("integrity check failed for %s: %s", info.Version, strings.Join(errs, "; "))
	}

	return entity.VerificationResult{
		Valid:  len(errs) == 0,
		Errors: errs,
	}
}
