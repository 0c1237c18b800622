package mask

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/nexusdata/nexusdata/internal/domain"
)

var surnameSwap = map[string]string{
	"张": "李",
	"王": "赵",
	"刘": "陈",
	"李": "周",
	"陈": "吴",
	"杨": "徐",
	"赵": "孙",
}

const aesSaltContext = "nexusdata-mask-v1"

// DeriveAESKey stretches the configured passphrase into a 256-bit AES key.
func DeriveAESKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(aesSaltContext), 4096, 32, sha256.New)
}

// applyStrategy replaces one batch of same-type originals according to the
// strategy. The returned slice is positionally aligned with originals; the
// delete strategy yields empty strings.
func (e *Engine) applyStrategy(strategy domain.MaskStrategy, typeName string, originals []string) ([]string, error) {
	switch strategy {
	case domain.StrategySimilar:
		return e.faker.GenerateBatch(typeName, originals), nil
	case domain.StrategyTypeReplace:
		return mapValues(originals, func(s string) string { return typeReplace(typeName, s) }), nil
	case domain.StrategyDelete:
		return make([]string, len(originals)), nil
	case domain.StrategyAES:
		out := make([]string, len(originals))
		for i, original := range originals {
			enc, err := aesEncrypt(e.aesKey, original)
			if err != nil {
				return nil, fmt.Errorf("failed to encrypt value: %w", err)
			}
			out[i] = enc
		}
		return out, nil
	case domain.StrategyMD5:
		return mapValues(originals, func(s string) string {
			sum := md5.Sum([]byte(s))
			return hex.EncodeToString(sum[:])
		}), nil
	case domain.StrategySHA256:
		return mapValues(originals, func(s string) string {
			sum := sha256.Sum256([]byte(s))
			return hex.EncodeToString(sum[:])
		}), nil
	case domain.StrategyAsterisk:
		return mapValues(originals, func(s string) string {
			return strings.Repeat("*", len([]rune(s)))
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedStrategy, strategy)
	}
}

// typeReplace substitutes an entity with a placeholder that names its
// type. Person names keep a swapped surname so the text stays readable.
func typeReplace(typeName, original string) string {
	if typeName == "人名" {
		runes := []rune(original)
		if len(runes) > 0 {
			if swapped, ok := surnameSwap[string(runes[0])]; ok {
				return swapped + string(runes[1:])
			}
			return "某" + string(runes[1:])
		}
	}
	return "[" + typeName + "]"
}

// aesEncrypt encrypts with AES-256-CBC, a random IV and PKCS#7 padding,
// returning base64(iv || ciphertext).
func aesEncrypt(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	buf := make([]byte, aes.BlockSize+len(padded))
	iv := buf[:aes.BlockSize]
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("failed to generate IV: %w", err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(buf[aes.BlockSize:], padded)
	return base64.StdEncoding.EncodeToString(buf), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	pad := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+pad)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(pad)
	}
	return out
}

func mapValues(in []string, f func(string) string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = f(s)
	}
	return out
}
