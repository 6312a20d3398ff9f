package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberlab/internal/repo"
)

type captureSender struct {
	lastEmail string
	lastCode  string
	fail      bool
}

func (c *captureSender) SendCode(_ context.Context, email, code string) error {
	c.lastEmail = email
	c.lastCode = code
	if c.fail {
		return errors.New("smtp down")
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *captureSender) {
	t.Helper()
	sender := &captureSender{}
	svc := NewService(
		repo.NewMemUserStore(),
		repo.NewMemCodeStore(),
		NewTokenIssuer("test-secret", 30*time.Minute),
		sender,
		5*time.Minute,
	)
	return svc, sender
}

func mustRegister(t *testing.T, svc *Service, email, password string) {
	t.Helper()
	_, err := svc.Register(context.Background(), email, password, "Test User")
	require.NoError(t, err)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	u, err := svc.Authenticate(ctx, "user@example.com", "hunter2hunter2")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", u.Email)
}

func TestAuthenticate_FailureShapeIsUniform(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	// «нет пользователя» и «не тот пароль» — одна и та же ошибка
	_, errUnknown := svc.Authenticate(ctx, "ghost@example.com", "whatever")
	_, errWrongPw := svc.Authenticate(ctx, "user@example.com", "wrong")
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrongPw.Error())
}

func TestAuthenticate_StatusChecks(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	u, err := svc.users.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)

	u.IsVerified = false
	require.NoError(t, svc.users.Update(ctx, u))
	_, err = svc.Authenticate(ctx, "user@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrEmailNotVerified)

	u.IsVerified = true
	u.IsActive = false
	require.NoError(t, svc.users.Update(ctx, u))
	_, err = svc.Authenticate(ctx, "user@example.com", "hunter2hunter2")
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestIssueCode_SecondCodeWins(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	_, err := svc.IssueCode(ctx, "user@example.com")
	require.NoError(t, err)
	first := sender.lastCode

	_, err = svc.IssueCode(ctx, "user@example.com")
	require.NoError(t, err)
	second := sender.lastCode

	if first != second {
		ok, _ := svc.VerifyCode(ctx, "user@example.com", first)
		assert.False(t, ok, "перезаписанный код не должен приниматься")
	}
	ok, err := svc.VerifyCode(ctx, "user@example.com", second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIssueCode_UnknownEmail(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.IssueCode(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestIssueCode_DeliveryFailureKeepsCode(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")
	sender.fail = true

	deliveryErr, err := svc.IssueCode(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Error(t, deliveryErr, "отказ доставки должен уходить как предупреждение")

	// сохранённый код живёт свой TTL несмотря на отказ SMTP
	ok, err := svc.VerifyCode(ctx, "user@example.com", sender.lastCode)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyCode_SingleUse(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	_, err := svc.IssueCode(ctx, "user@example.com")
	require.NoError(t, err)

	ok, err := svc.VerifyCode(ctx, "user@example.com", sender.lastCode)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.VerifyCode(ctx, "user@example.com", sender.lastCode)
	require.NoError(t, err)
	assert.False(t, ok, "код одноразовый")
}

func TestVerifyCode_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	issued := time.Now()
	svc.Now = func() time.Time { return issued }
	_, err := svc.IssueCode(ctx, "user@example.com")
	require.NoError(t, err)

	// ровно в момент истечения — уже отказ
	svc.Now = func() time.Time { return issued.Add(5 * time.Minute) }
	ok, err := svc.VerifyCode(ctx, "user@example.com", sender.lastCode)
	require.NoError(t, err)
	assert.False(t, ok)

	// свежий код за секунду до истечения — успех
	svc.Now = func() time.Time { return issued }
	_, err = svc.IssueCode(ctx, "user@example.com")
	require.NoError(t, err)
	svc.Now = func() time.Time { return issued.Add(5*time.Minute - time.Second) }
	ok, err = svc.VerifyCode(ctx, "user@example.com", sender.lastCode)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompleteLogin_RoundTripAndLastLogin(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	_, err := svc.IssueCode(ctx, "user@example.com")
	require.NoError(t, err)

	token, err := svc.CompleteLogin(ctx, "user@example.com", sender.lastCode)
	require.NoError(t, err)

	id, err := svc.Authorize(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", id.Email)
	assert.Equal(t, "normal", id.Role)
	assert.NotEmpty(t, id.Permissions)

	u, err := svc.users.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.NotNil(t, u.LastLogin)
}

func TestCompleteLogin_BadCode(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	_, err := svc.CompleteLogin(ctx, "user@example.com", "000000")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestAuthorize_RefetchesUserEveryCall(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	_, err := svc.IssueCode(ctx, "user@example.com")
	require.NoError(t, err)
	token, err := svc.CompleteLogin(ctx, "user@example.com", sender.lastCode)
	require.NoError(t, err)

	_, err = svc.Authorize(ctx, token)
	require.NoError(t, err)

	// деактивация действует на следующем же Authorize, токен ещё жив
	u, err := svc.users.GetByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	u.IsActive = false
	require.NoError(t, svc.users.Update(ctx, u))

	_, err = svc.Authorize(ctx, token)
	assert.ErrorIs(t, err, ErrAccountDeactivated)
}

func TestAuthorize_DeletedUser(t *testing.T) {
	t.Parallel()

	svc, sender := newTestService(t)
	ctx := context.Background()
	mustRegister(t, svc, "user@example.com", "hunter2hunter2")

	_, err := svc.IssueCode(ctx, "user@example.com")
	require.NoError(t, err)
	token, err := svc.CompleteLogin(ctx, "user@example.com", sender.lastCode)
	require.NoError(t, err)

	require.NoError(t, svc.users.Delete(ctx, "user@example.com"))
	_, err = svc.Authorize(ctx, token)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGenerateCode_Format(t *testing.T) {
	t.Parallel()

	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
	}
}
