package simulations

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Параметры KDF; соль хранится рядом с шифртекстом, итерации фиксированы.
const (
	kdfIterations = 100_000
	saltLen       = 16
	keyLen        = 32
)

var ErrDecrypt = errors.New("decryption failed: wrong key or corrupted data")

// DeriveKey — ключ AES-256 из пароля через PBKDF2-HMAC-SHA256.
// При nil соли генерируется случайная.
func DeriveKey(password string, salt []byte) (key, outSalt []byte, err error) {
	if salt == nil {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, err
		}
	}
	return pbkdf2.Key([]byte(password), salt, kdfIterations, keyLen, sha256.New), salt, nil
}

// RandomKey — случайный ключ AES-256.
func RandomKey() ([]byte, error) {
	key := make([]byte, keyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Encrypt — AES-256-GCM, nonce впереди шифртекста, выход — urlsafe base64.
func Encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("cipher init: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("gcm init: %w", err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// Decrypt — обратная операция; любая порча токена или чужой ключ дают
// неразличимый ErrDecrypt.
func Decrypt(token string, key []byte) (string, error) {
	sealed, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrDecrypt
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", ErrDecrypt
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", ErrDecrypt
	}
	if len(sealed) < gcm.NonceSize() {
		return "", ErrDecrypt
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

const (
	methodName        = "AES-256-GCM"
	transitUseCase    = "In Transit - Simulating TLS/SSL encryption"
	atRestUseCase     = "At Rest - Database/File encryption"
	atRestNote        = "In production, keys would be stored in a secure key management system (KMS)"
	lifecyclePassword = "secure_transport_password"
)

// TransitResult — шифрование «в пути»: ключ выводится из пароля,
// соль отдаётся клиенту для обратной операции.
type TransitResult struct {
	EncryptedData string `json:"encrypted_data"`
	Salt          string `json:"salt"`
	Method        string `json:"method"`
	UseCase       string `json:"use_case"`
}

// AtRestResult — шифрование «в покое»: ключ случайный и отдаётся клиенту
// (демонстрация, в реальности он ушёл бы в KMS).
type AtRestResult struct {
	EncryptedData string `json:"encrypted_data"`
	Key           string `json:"key"`
	Method        string `json:"method"`
	UseCase       string `json:"use_case"`
	Note          string `json:"note"`
}

// LifecycleResult — полный цикл: at-rest, расшифровка, затем in-transit.
type LifecycleResult struct {
	Stages struct {
		AtRestEncryption  AtRestResult    `json:"1_at_rest_encryption"`
		AtRestDecryption  StageDecryption `json:"2_at_rest_decryption"`
		TransitEncryption TransitResult   `json:"3_in_transit_encryption"`
	} `json:"stages"`
	Explanation map[string]string `json:"explanation"`
}

type StageDecryption struct {
	DecryptedData string `json:"decrypted_data"`
	Method        string `json:"method"`
}

// Service — демонстрационные сценарии шифрования. Состояния нет, сервис
// существует ради единообразной обвязки хендлеров.
type Service struct{}

func NewService() *Service { return &Service{} }

func (s *Service) EncryptInTransit(data, password string) (*TransitResult, error) {
	key, salt, err := DeriveKey(password, nil)
	if err != nil {
		return nil, err
	}
	encrypted, err := Encrypt(data, key)
	if err != nil {
		return nil, err
	}
	return &TransitResult{
		EncryptedData: encrypted,
		Salt:          base64.StdEncoding.EncodeToString(salt),
		Method:        methodName,
		UseCase:       transitUseCase,
	}, nil
}

func (s *Service) DecryptInTransit(encrypted, password, saltB64 string) (string, error) {
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return "", ErrDecrypt
	}
	key, _, err := DeriveKey(password, salt)
	if err != nil {
		return "", err
	}
	return Decrypt(encrypted, key)
}

func (s *Service) EncryptAtRest(data string) (*AtRestResult, error) {
	key, err := RandomKey()
	if err != nil {
		return nil, err
	}
	encrypted, err := Encrypt(data, key)
	if err != nil {
		return nil, err
	}
	return &AtRestResult{
		EncryptedData: encrypted,
		Key:           base64.StdEncoding.EncodeToString(key),
		Method:        methodName,
		UseCase:       atRestUseCase,
		Note:          atRestNote,
	}, nil
}

func (s *Service) DecryptAtRest(encrypted, keyB64 string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(keyB64)
	if err != nil {
		return "", ErrDecrypt
	}
	return Decrypt(encrypted, key)
}

// Lifecycle прогоняет одни и те же данные через оба режима подряд.
func (s *Service) Lifecycle(data string) (*LifecycleResult, error) {
	atRest, err := s.EncryptAtRest(data)
	if err != nil {
		return nil, err
	}
	plain, err := s.DecryptAtRest(atRest.EncryptedData, atRest.Key)
	if err != nil {
		return nil, err
	}
	transit, err := s.EncryptInTransit(plain, lifecyclePassword)
	if err != nil {
		return nil, err
	}

	var out LifecycleResult
	out.Stages.AtRestEncryption = *atRest
	out.Stages.AtRestDecryption = StageDecryption{DecryptedData: plain, Method: methodName}
	out.Stages.TransitEncryption = *transit
	out.Explanation = map[string]string{
		"at_rest":    "Data encrypted in database/storage using generated key",
		"in_transit": "Data encrypted during transmission using password-derived key",
		"real_world": "In production: At-rest uses KMS, In-transit uses TLS/SSL",
	}
	return &out, nil
}
