// Package encryption implements the level-tiered cipher suite. Levels 1-2
// encrypt under AES-128-CBC and levels 3-4 under AES-256-CBC, with keys
// derived by scrypt from per-level pre-shared secrets. Both the key
// derivation and the IV are reproducible by any replica holding the same
// secret catalogue: the IV is a hash of the operation's transaction
// identifier rather than random bytes, trading unpredictability for
// replicated re-execution (each identifier is unique per write, so IVs never
// repeat for distinct operations).
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/scrypt"

	"github.com/happy0030/healthcare-blockchain-poc/pkg/opctx"
	"github.com/happy0030/healthcare-blockchain-poc/pkg/types"
)

// Cipher algorithm identifiers stored alongside each record
const (
	AlgorithmAES128CBC = "aes-128-cbc"
	AlgorithmAES256CBC = "aes-256-cbc"
)

// scrypt parameters matching the reference derivation
const (
	scryptN    = 16384
	scryptR    = 8
	scryptP    = 1
	scryptSalt = "salt"
)

// Envelope is the result of encrypting one payload
type Envelope struct {
	EncryptedData string `json:"encrypted_data"`
	IV            string `json:"iv"`
	Algorithm     string `json:"algorithm"`
}

// Suite derives and caches per-level keys from the pre-shared secret
// catalogue. The catalogue is write-once at construction; the key cache is
// pure memoization of a deterministic derivation.
type Suite struct {
	secrets map[int]string

	mu   sync.Mutex
	keys map[string][]byte
}

// DefaultSecrets returns the seeded per-level secret catalogue. Deployments
// override these through configuration; every replica must hold the same
// values.
func DefaultSecrets() map[int]string {
	return map[int]string{
		types.LevelEmergency:       "LEVEL1KEY128BITEMERGENCYACCESS!",
		types.LevelGeneral:         "LEVEL2KEY192BITGENERALACCESSOK!",
		types.LevelSensitive:       "LEVEL3KEY256BITSENSITIVEDATAPRO",
		types.LevelHighlySensitive: "LEVEL4KEY256BITHIGHLYSENSITIVE!",
	}
}

// NewSuite creates a cipher suite over the given secret catalogue. Every
// catalogued privacy level must have a secret.
func NewSuite(secrets map[int]string) (*Suite, error) {
	for level := types.LevelEmergency; level <= types.LevelHighlySensitive; level++ {
		if secrets[level] == "" {
			return nil, fmt.Errorf("missing encryption secret for privacy level %d", level)
		}
	}
	copied := make(map[int]string, len(secrets))
	for level, secret := range secrets {
		copied[level] = secret
	}
	return &Suite{
		secrets: copied,
		keys:    make(map[string][]byte),
	}, nil
}

// AlgorithmForLevel returns the cipher used for a privacy level
func AlgorithmForLevel(level int) string {
	if level <= types.LevelGeneral {
		return AlgorithmAES128CBC
	}
	return AlgorithmAES256CBC
}

// DeterministicIV derives the initialization vector from the operation's
// transaction identifier
func DeterministicIV(txID string) []byte {
	sum := sha256.Sum256([]byte(txID))
	return sum[:aes.BlockSize]
}

// Encrypt encrypts plaintext for the given privacy level. The ciphertext and
// IV are hex-encoded; invoking Encrypt twice with the same operation context
// yields byte-identical output.
func (s *Suite) Encrypt(op opctx.Context, plaintext string, level int) (*Envelope, error) {
	if !types.ValidPrivacyLevel(level) {
		return nil, types.NewValidationError(types.ErrCodeInvalidLevel,
			fmt.Sprintf("invalid privacy level: %d", level),
			map[string]interface{}{"privacy_level": level})
	}

	algorithm := AlgorithmForLevel(level)
	key, err := s.key(level, keyLength(algorithm))
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "failed to create cipher block", err)
	}

	iv := DeterministicIV(op.TxID)
	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	return &Envelope{
		EncryptedData: hex.EncodeToString(ciphertext),
		IV:            hex.EncodeToString(iv),
		Algorithm:     algorithm,
	}, nil
}

// Decrypt recovers plaintext from a stored envelope. A decryption error
// signals an inconsistent (ciphertext, iv, level, algorithm) tuple: wrong key
// material, corrupted bytes, or an algorithm mismatch.
func (s *Suite) Decrypt(encryptedHex, ivHex string, level int, algorithm string) (string, error) {
	if algorithm != AlgorithmAES128CBC && algorithm != AlgorithmAES256CBC {
		return "", types.NewDecryptionError(types.ErrCodeDecryptionFailed,
			fmt.Sprintf("unknown cipher algorithm: %s", algorithm), nil)
	}
	if !types.ValidPrivacyLevel(level) {
		return "", types.NewDecryptionError(types.ErrCodeDecryptionFailed,
			fmt.Sprintf("invalid privacy level: %d", level), nil)
	}

	ciphertext, err := hex.DecodeString(encryptedHex)
	if err != nil {
		return "", types.NewDecryptionError(types.ErrCodeDecryptionFailed, "malformed ciphertext encoding", err)
	}
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", types.NewDecryptionError(types.ErrCodeDecryptionFailed, "malformed iv encoding", err)
	}
	if len(iv) != aes.BlockSize {
		return "", types.NewDecryptionError(types.ErrCodeDecryptionFailed,
			fmt.Sprintf("iv must be %d bytes, got %d", aes.BlockSize, len(iv)), nil)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return "", types.NewDecryptionError(types.ErrCodeDecryptionFailed,
			"ciphertext length is not a multiple of the block size", nil)
	}

	key, err := s.key(level, keyLength(algorithm))
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", types.NewInternalError(types.ErrCodeInternalError, "failed to create cipher block", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", types.NewDecryptionError(types.ErrCodeDecryptionFailed, "decryption produced invalid padding", err)
	}
	return string(unpadded), nil
}

func keyLength(algorithm string) int {
	if algorithm == AlgorithmAES128CBC {
		return 16
	}
	return 32
}

// key derives (or returns the cached) scrypt key for a level and key length
func (s *Suite) key(level, length int) ([]byte, error) {
	cacheKey := fmt.Sprintf("%d:%d", level, length)

	s.mu.Lock()
	defer s.mu.Unlock()

	if key, ok := s.keys[cacheKey]; ok {
		return key, nil
	}

	secret, ok := s.secrets[level]
	if !ok {
		return nil, types.NewInternalError(types.ErrCodeInternalError,
			fmt.Sprintf("no encryption secret for privacy level %d", level), nil)
	}

	key, err := scrypt.Key([]byte(secret), []byte(scryptSalt), scryptN, scryptR, scryptP, length)
	if err != nil {
		return nil, types.NewInternalError(types.ErrCodeInternalError, "key derivation failed", err)
	}
	s.keys[cacheKey] = key
	return key, nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padding := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padding)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padding)
	}
	return padded
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padding := int(data[len(data)-1])
	if padding == 0 || padding > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padding], nil
}
