package keyvault

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"cyberlab/internal/logs"
	"cyberlab/internal/models"
	"cyberlab/internal/repo"
)

var (
	ErrUnsupportedKeyType = errors.New("unsupported key type")
	ErrBadKeySize         = errors.New("unsupported key size")
	ErrPrivateOnly        = errors.New("aes keys only have private material")
)

// Mailer — отправка материала ключа/сертификата на почту. nil допустим,
// тогда операция отклоняется.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Service — выдача и жизненный цикл ключей и сертификатов. Часы
// инъектируются для тестов на границы валидности.
type Service struct {
	store  repo.Keyvault
	mailer Mailer
	Now    func() time.Time
}

func NewService(store repo.Keyvault, mailer Mailer) *Service {
	return &Service{store: store, mailer: mailer, Now: time.Now}
}

// material — пара base64(PEM); для AES публичная часть пустая.
type material struct {
	private string
	public  string
}

func generateMaterial(keyType string, keySize int) (material, error) {
	switch keyType {
	case "RSA":
		priv, err := rsa.GenerateKey(rand.Reader, keySize)
		if err != nil {
			return material{}, fmt.Errorf("rsa generate: %w", err)
		}
		privDER, err := x509.MarshalPKCS8PrivateKey(priv)
		if err != nil {
			return material{}, err
		}
		pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
		if err != nil {
			return material{}, err
		}
		privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
		pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
		return material{
			private: base64.StdEncoding.EncodeToString(privPEM),
			public:  base64.StdEncoding.EncodeToString(pubPEM),
		}, nil
	case "AES":
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return material{}, err
		}
		return material{private: base64.StdEncoding.EncodeToString(raw)}, nil
	default:
		return material{}, ErrUnsupportedKeyType
	}
}

func validateKeyParams(keyType string, keySize int) (int, error) {
	switch keyType {
	case "RSA":
		switch keySize {
		case 0:
			return 2048, nil
		case 2048, 3072, 4096:
			return keySize, nil
		default:
			return 0, ErrBadKeySize
		}
	case "AES":
		// размер фиксирован: AES-256
		if keySize != 0 && keySize != 256 {
			return 0, ErrBadKeySize
		}
		return 256, nil
	default:
		return 0, ErrUnsupportedKeyType
	}
}

// KeyInfo — представление ключа наружу, без приватного материала.
type KeyInfo struct {
	KeyID       string              `json:"key_id"`
	KeyName     string              `json:"key_name"`
	KeyType     string              `json:"key_type"`
	KeySize     int                 `json:"key_size"`
	Version     int                 `json:"version"`
	IsEnabled   bool                `json:"is_enabled"`
	PublicKey   string              `json:"public_key,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	LastRotated *time.Time          `json:"last_rotated"`
	Versions    []models.KeyVersion `json:"versions,omitempty"`
}

func keyInfo(k *models.Key, withVersions bool) *KeyInfo {
	info := &KeyInfo{
		KeyID:       k.KeyID,
		KeyName:     k.KeyName,
		KeyType:     k.KeyType,
		KeySize:     k.KeySize,
		Version:     k.Version,
		IsEnabled:   k.IsEnabled,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
		LastRotated: k.LastRotated,
	}
	if k.KeyType == "RSA" {
		info.PublicKey = k.PublicMaterial
	}
	if withVersions {
		_ = json.Unmarshal(k.Versions, &info.Versions)
	}
	return info
}

// GenerateKey создаёт ключ с историей из одной версии. Имя уникально среди
// живых ключей пользователя (repo.ErrNameTaken).
func (s *Service) GenerateKey(ctx context.Context, email, name, keyType string, keySize int) (*KeyInfo, error) {
	size, err := validateKeyParams(keyType, keySize)
	if err != nil {
		return nil, err
	}
	taken, err := s.store.KeyNameExists(ctx, email, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, repo.ErrNameTaken
	}
	mat, err := generateMaterial(keyType, size)
	if err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	versions, _ := json.Marshal([]models.KeyVersion{{Version: 1, CreatedAt: now, IsActive: true}})
	k := &models.Key{
		KeyID:           "key_" + uuid.NewString(),
		UserEmail:       email,
		KeyName:         name,
		KeyType:         keyType,
		KeySize:         size,
		PrivateMaterial: mat.private,
		PublicMaterial:  mat.public,
		Version:         1,
		Versions:        versions,
		IsEnabled:       true,
	}
	if err := s.store.CreateKey(ctx, k); err != nil {
		return nil, err
	}
	logs.Component("keyvault").WithField("key_id", k.KeyID).Info("key generated")
	return keyInfo(k, false), nil
}

func (s *Service) GetKey(ctx context.Context, email, keyID string) (*KeyInfo, error) {
	k, err := s.store.GetKey(ctx, email, keyID)
	if err != nil {
		return nil, err
	}
	return keyInfo(k, true), nil
}

func (s *Service) ListKeys(ctx context.Context, email string) ([]KeyInfo, error) {
	keys, err := s.store.ListKeys(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]KeyInfo, 0, len(keys))
	for i := range keys {
		out = append(out, *keyInfo(&keys[i], false))
	}
	return out, nil
}

// RotationInfo — итог ротации.
type RotationInfo struct {
	KeyID      string    `json:"key_id"`
	KeyName    string    `json:"key_name"`
	OldVersion int       `json:"old_version"`
	NewVersion int       `json:"new_version"`
	RotatedAt  time.Time `json:"rotated_at"`
}

// RotateKey генерирует свежий материал и наращивает версию; прежние версии
// помечаются неактивными, история сохраняется.
func (s *Service) RotateKey(ctx context.Context, email, keyID string) (*RotationInfo, error) {
	k, err := s.store.GetKey(ctx, email, keyID)
	if err != nil {
		return nil, err
	}
	mat, err := generateMaterial(k.KeyType, k.KeySize)
	if err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	var versions []models.KeyVersion
	_ = json.Unmarshal(k.Versions, &versions)
	for i := range versions {
		versions[i].IsActive = false
	}
	old := k.Version
	k.Version = old + 1
	versions = append(versions, models.KeyVersion{Version: k.Version, CreatedAt: now, IsActive: true})
	k.Versions, _ = json.Marshal(versions)
	k.PrivateMaterial = mat.private
	k.PublicMaterial = mat.public
	k.LastRotated = &now
	if err := s.store.UpdateKey(ctx, k); err != nil {
		return nil, err
	}
	logs.Component("keyvault").WithField("key_id", keyID).
		WithField("version", k.Version).Info("key rotated")
	return &RotationInfo{
		KeyID:      keyID,
		KeyName:    k.KeyName,
		OldVersion: old,
		NewVersion: k.Version,
		RotatedAt:  now,
	}, nil
}

func (s *Service) DeleteKey(ctx context.Context, email, keyID string) error {
	return s.store.DeleteKey(ctx, email, keyID)
}

// DownloadKey отдаёт материал файлом. Для RSA по умолчанию публичная часть;
// для AES материал только приватный, без includePrivate — ErrPrivateOnly.
func (s *Service) DownloadKey(ctx context.Context, email, keyID string, includePrivate bool) (filename, content string, err error) {
	k, err := s.store.GetKey(ctx, email, keyID)
	if err != nil {
		return "", "", err
	}
	switch k.KeyType {
	case "RSA":
		if includePrivate {
			raw, err := base64.StdEncoding.DecodeString(k.PrivateMaterial)
			if err != nil {
				return "", "", err
			}
			return k.KeyName + "_private.pem", string(raw), nil
		}
		raw, err := base64.StdEncoding.DecodeString(k.PublicMaterial)
		if err != nil {
			return "", "", err
		}
		return k.KeyName + "_public.pem", string(raw), nil
	case "AES":
		if !includePrivate {
			return "", "", ErrPrivateOnly
		}
		return k.KeyName + "_aes.key", k.PrivateMaterial, nil
	default:
		return "", "", ErrUnsupportedKeyType
	}
}

// SendKeyEmail отправляет публичную часть ключа на указанный адрес.
func (s *Service) SendKeyEmail(ctx context.Context, email, keyID, to string) error {
	if s.mailer == nil {
		return errors.New("mail delivery is not configured")
	}
	k, err := s.store.GetKey(ctx, email, keyID)
	if err != nil {
		return err
	}
	if k.KeyType != "RSA" {
		// симметричный материал почтой не рассылаем
		return ErrPrivateOnly
	}
	raw, err := base64.StdEncoding.DecodeString(k.PublicMaterial)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Public key %q", k.KeyName)
	return s.mailer.Send(ctx, to, subject, string(raw))
}

// CertInfo — сертификат наружу, без приватного ключа.
type CertInfo struct {
	CertID       string    `json:"cert_id"`
	CertName     string    `json:"cert_name"`
	CommonName   string    `json:"common_name"`
	SerialNumber string    `json:"serial_number"`
	NotBefore    time.Time `json:"not_before"`
	NotAfter     time.Time `json:"not_after"`
	ValidityDays int       `json:"validity_days"`
	Certificate  string    `json:"certificate,omitempty"` // base64(PEM)
	CreatedAt    time.Time `json:"created_at"`
}

func certInfo(c *models.Certificate, withPEM bool) *CertInfo {
	info := &CertInfo{
		CertID:       c.CertID,
		CertName:     c.CertName,
		CommonName:   c.CommonName,
		SerialNumber: c.SerialNumber,
		NotBefore:    c.NotBefore,
		NotAfter:     c.NotAfter,
		ValidityDays: c.ValidityDays,
		CreatedAt:    c.CreatedAt,
	}
	if withPEM {
		info.Certificate = c.CertPEM
	}
	return info
}

// GenerateCertificate выпускает самоподписанный X.509 на 2048-битном RSA.
func (s *Service) GenerateCertificate(ctx context.Context, email, name, commonName string, validityDays int) (*CertInfo, error) {
	if validityDays <= 0 {
		validityDays = 365
	}
	taken, err := s.store.CertNameExists(ctx, email, name)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, repo.ErrNameTaken
	}
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, err
	}
	now := s.Now().UTC()
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   commonName,
			Organization: []string{"cyberlab"},
		},
		NotBefore:             now,
		NotAfter:              now.AddDate(0, 0, validityDays),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	if err != nil {
		return nil, err
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	c := &models.Certificate{
		CertID:       "cert_" + uuid.NewString(),
		UserEmail:    email,
		CertName:     name,
		CommonName:   commonName,
		CertPEM:      base64.StdEncoding.EncodeToString(certPEM),
		KeyPEM:       base64.StdEncoding.EncodeToString(keyPEM),
		SerialNumber: serial.String(),
		NotBefore:    now,
		NotAfter:     tmpl.NotAfter,
		ValidityDays: validityDays,
	}
	if err := s.store.CreateCert(ctx, c); err != nil {
		return nil, err
	}
	logs.Component("keyvault").WithField("cert_id", c.CertID).Info("certificate generated")
	return certInfo(c, true), nil
}

func (s *Service) ListCertificates(ctx context.Context, email string) ([]CertInfo, error) {
	certs, err := s.store.ListCerts(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]CertInfo, 0, len(certs))
	for i := range certs {
		out = append(out, *certInfo(&certs[i], false))
	}
	return out, nil
}

// renewalThresholdDays — за сколько дней до истечения сертификат считается
// требующим перевыпуска.
const renewalThresholdDays = 30

// Validation — статус сертификата на текущий момент.
type Validation struct {
	Valid           bool       `json:"valid"`
	Reason          string     `json:"reason,omitempty"`
	CertID          string     `json:"cert_id,omitempty"`
	CertName        string     `json:"cert_name,omitempty"`
	DaysUntilExpiry int        `json:"days_until_expiry,omitempty"`
	NeedsRenewal    bool       `json:"needs_renewal,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// ValidateCertificate проверяет окно валидности; «не найден» — тоже ответ,
// не ошибка.
func (s *Service) ValidateCertificate(ctx context.Context, email, certID string) (*Validation, error) {
	c, err := s.store.GetCert(ctx, email, certID)
	if err != nil {
		if errors.Is(err, repo.ErrCertNotFound) {
			return &Validation{Valid: false, Reason: "certificate not found"}, nil
		}
		return nil, err
	}
	now := s.Now().UTC()
	if now.Before(c.NotBefore) {
		return &Validation{Valid: false, Reason: "certificate not yet valid"}, nil
	}
	if now.After(c.NotAfter) {
		return &Validation{Valid: false, Reason: "certificate expired", ExpiresAt: &c.NotAfter}, nil
	}
	days := int(c.NotAfter.Sub(now).Hours() / 24)
	return &Validation{
		Valid:           true,
		CertID:          c.CertID,
		CertName:        c.CertName,
		DaysUntilExpiry: days,
		NeedsRenewal:    days <= renewalThresholdDays,
		ExpiresAt:       &c.NotAfter,
	}, nil
}

// DownloadCertificate — PEM файлом; с приватным ключом — бандл.
func (s *Service) DownloadCertificate(ctx context.Context, email, certID string, includePrivate bool) (filename, content string, err error) {
	c, err := s.store.GetCert(ctx, email, certID)
	if err != nil {
		return "", "", err
	}
	certPEM, err := base64.StdEncoding.DecodeString(c.CertPEM)
	if err != nil {
		return "", "", err
	}
	if !includePrivate {
		return c.CertName + ".pem", string(certPEM), nil
	}
	keyPEM, err := base64.StdEncoding.DecodeString(c.KeyPEM)
	if err != nil {
		return "", "", err
	}
	return c.CertName + "_bundle.pem", string(certPEM) + "\n" + string(keyPEM), nil
}

// Statistics — сводка по хранилищу пользователя.
type Statistics struct {
	TotalKeys            int `json:"total_keys"`
	TotalCertificates    int `json:"total_certificates"`
	ExpiringCertificates int `json:"expiring_certificates"`
}

func (s *Service) Statistics(ctx context.Context, email string) (*Statistics, error) {
	keys, err := s.store.ListKeys(ctx, email)
	if err != nil {
		return nil, err
	}
	certs, err := s.store.ListCerts(ctx, email)
	if err != nil {
		return nil, err
	}
	stats := &Statistics{TotalKeys: len(keys), TotalCertificates: len(certs)}
	cutoff := s.Now().UTC().AddDate(0, 0, renewalThresholdDays)
	for _, c := range certs {
		if !c.NotAfter.After(cutoff) {
			stats.ExpiringCertificates++
		}
	}
	return stats, nil
}
