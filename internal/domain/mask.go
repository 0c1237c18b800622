package domain

import "errors"

// MaskStrategy identifies how surface values of one semantic type are
// rewritten during de-identification.
type MaskStrategy string

// Supported masking strategies.
const (
	// StrategySimilar replaces each value with a plausible fabricated value
	// of the same semantic type.
	StrategySimilar MaskStrategy = "similar"

	// StrategyTypeReplace substitutes a related but non-identifying value
	// using a structural heuristic. Deterministic per input.
	StrategyTypeReplace MaskStrategy = "type_replace"

	// StrategyDelete replaces the value with the empty string.
	StrategyDelete MaskStrategy = "delete"

	// StrategyAES encrypts the value into a base64 IV-prefixed ciphertext
	// token. Not deterministic across calls: the IV is random.
	StrategyAES MaskStrategy = "aes"

	// StrategyMD5 replaces the value with its hex MD5 digest.
	StrategyMD5 MaskStrategy = "md5"

	// StrategySHA256 replaces the value with its hex SHA-256 digest.
	StrategySHA256 MaskStrategy = "sha256"

	// StrategyAsterisk replaces the value with a run of mask characters of
	// the same rune length.
	StrategyAsterisk MaskStrategy = "asterisk"
)

// ErrUnsupportedStrategy is returned when a masking request names a strategy
// that is not one of the supported values. The engine never partially applies
// an unsupported request.
var ErrUnsupportedStrategy = errors.New("unsupported masking strategy")

// Valid reports whether s is a recognized masking strategy.
func (s MaskStrategy) Valid() bool {
	switch s {
	case StrategySimilar, StrategyTypeReplace, StrategyDelete,
		StrategyAES, StrategyMD5, StrategySHA256, StrategyAsterisk:
		return true
	default:
		return false
	}
}

// ForceConvertPair is a caller-supplied literal override. Every occurrence
// of Original in the source text is replaced with Target before any
// type-driven masking runs, and Original is then exempt from it.
type ForceConvertPair struct {
	Original string
	Target   string
}
