package auth

import (
	"context"
	"errors"
	"time"

	"cyberlab/internal/logs"
	"cyberlab/internal/models"
	"cyberlab/internal/rbac"
	"cyberlab/internal/repo"
	"cyberlab/internal/secrets"
)

// Sender — внешняя доставка кода (SMTP). Отказ доставки не откатывает
// сохранённый код: он живёт свой TTL, а отказ уходит наверх как warning.
type Sender interface {
	SendCode(ctx context.Context, email, code string) error
}

// Identity — результат Authorize: подтверждённый субъект + эффективные
// разрешения на момент запроса.
type Identity struct {
	Email             string   `json:"email"`
	FullName          string   `json:"full_name"`
	Role              string   `json:"role"`
	CustomPermissions []string `json:"custom_permissions"`
	Permissions       []string `json:"permissions"`
}

func (id *Identity) Has(p rbac.Permission) bool {
	return rbac.HasPermission(id.Role, id.CustomPermissions, p)
}

func (id *Identity) HasAny(perms ...rbac.Permission) bool {
	return rbac.HasAnyPermission(id.Role, id.CustomPermissions, perms...)
}

// Service — конечный автомат входа:
// ANONYMOUS → (Authenticate) CREDENTIALS_VERIFIED → (VerifyCode) AUTHENTICATED.
// Промежуточного состояния на сервере нет, кроме самого кода (привязан к
// email, не к сессии); любая ошибка возвращает клиента в ANONYMOUS.
type Service struct {
	users   repo.Users
	codes   repo.Codes
	tokens  *TokenIssuer
	sender  Sender
	codeTTL time.Duration
	Now     func() time.Time
}

func NewService(users repo.Users, codes repo.Codes, tokens *TokenIssuer, sender Sender, codeTTL time.Duration) *Service {
	return &Service{
		users:   users,
		codes:   codes,
		tokens:  tokens,
		sender:  sender,
		codeTTL: codeTTL,
		Now:     time.Now,
	}
}

// Authenticate проверяет пароль и статусы аккаунта. Токен ещё не выдаётся —
// только подтверждение первого фактора.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			// та же форма ответа, что и при неверном пароле
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !secrets.VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return nil, ErrEmailNotVerified
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}
	return u, nil
}

// IssueCode генерирует и сохраняет код (upsert: живым остаётся только
// последний) и пытается доставить его. Возвращает deliveryErr отдельно:
// сохранённый код валиден, даже если письмо не ушло.
func (s *Service) IssueCode(ctx context.Context, email string) (deliveryErr, err error) {
	if _, err = s.users.GetByEmail(ctx, email); err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	code, err := GenerateCode()
	if err != nil {
		return nil, err
	}
	expiry := s.Now().Add(s.codeTTL)
	if err = s.codes.Put(ctx, email, code, expiry); err != nil {
		return nil, err
	}

	if s.sender != nil {
		if derr := s.sender.SendCode(ctx, email, code); derr != nil {
			logs.Component("auth").Warnf("code stored but delivery failed for %s: %v", email, derr)
			return derr, nil
		}
	}
	return nil, nil
}

// VerifyCode — одноразовое атомарное погашение кода.
func (s *Service) VerifyCode(ctx context.Context, email, code string) (bool, error) {
	return s.codes.Claim(ctx, email, code, s.Now())
}

// IssueToken — вызывается только после успешного VerifyCode.
func (s *Service) IssueToken(email string) (string, error) {
	return s.tokens.Issue(email)
}

// CompleteLogin — второй шаг целиком: погасить код, отметить last_login,
// выдать токен.
func (s *Service) CompleteLogin(ctx context.Context, email, code string) (string, error) {
	ok, err := s.VerifyCode(ctx, email, code)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrInvalidCode
	}
	if err := s.users.TouchLastLogin(ctx, email, s.Now().UTC()); err != nil {
		logs.Component("auth").Warnf("last_login update failed for %s: %v", email, err)
	}
	return s.IssueToken(email)
}

// Authorize — ворота каждого защищённого вызова. Пользователь выбирается
// заново при каждом обращении (никакого кэша): отключённый или
// пониженный в правах аккаунт отсекается на следующем же запросе,
// а не при следующем login.
func (s *Service) Authorize(ctx context.Context, token string) (*Identity, error) {
	email, err := s.tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, ErrAccountDeactivated
	}
	custom := u.CustomPerms()
	return &Identity{
		Email:             u.Email,
		FullName:          u.FullName,
		Role:              u.Role,
		CustomPermissions: custom,
		Permissions:       rbac.EffectiveList(u.Role, custom),
	}, nil
}

// Register — регистрация нового пользователя (открытая).
func (s *Service) Register(ctx context.Context, email, password, fullName string) (*models.User, error) {
	hash, err := secrets.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		Role:         string(rbac.RoleNormal),
		IsActive:     true,
		IsVerified:   true, // демо-платформа: автоподтверждение почты
		MFAEnabled:   true,
	}
	u.SetCustomPerms(nil)
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
