package password

import (
	"context"
	"crypto/sha1"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntropy(t *testing.T) {
	assert.Equal(t, 0.0, Entropy(""))
	// только строчные: 8 * log2(26) = 37.6
	assert.Equal(t, 37.6, Entropy("abcdefgh"))
	// все четыре класса: 94 символа алфавита
	assert.Greater(t, Entropy("Aa1!Aa1!Aa1!"), Entropy("aaaaaaaaaaaa"))
}

func TestEstimateCrackTime(t *testing.T) {
	assert.Equal(t, "very_weak", EstimateCrackTime(10).Rating)
	assert.Equal(t, "centuries+", EstimateCrackTime(200).Unit)
	assert.Equal(t, "very_strong", EstimateCrackTime(200).Rating)
}

func TestCheckPolicy(t *testing.T) {
	p := DefaultPolicy()

	good := CheckPolicy("Str0ng!Passw0rd", p)
	assert.True(t, good.Length)
	assert.True(t, good.Uppercase)
	assert.True(t, good.Lowercase)
	assert.True(t, good.Digits)
	assert.True(t, good.Special)
	assert.True(t, good.Repeating)
	assert.True(t, good.Common)

	assert.False(t, CheckPolicy("ab1!Xy", p).Length)
	assert.False(t, CheckPolicy("nouppercase1!", p).Uppercase)
	assert.False(t, CheckPolicy("NOLOWERCASE1!", p).Lowercase)
	assert.False(t, CheckPolicy("NoDigits!!", p).Digits)
	assert.False(t, CheckPolicy("NoSpecial11", p).Special)

	// три и больше одинаковых подряд
	assert.False(t, CheckPolicy("Gooda111!x", p).Repeating)
	assert.True(t, CheckPolicy("Gooda11b!x", p).Repeating)

	// общеизвестные пароли блокируются без учёта регистра
	assert.False(t, CheckPolicy("Password123", p).Common)
	assert.False(t, CheckPolicy("qwerty", p).Common)
}

func TestSuggestions(t *testing.T) {
	p := DefaultPolicy()
	s := Suggestions("abc", CheckPolicy("abc", p))
	assert.NotEmpty(t, s)
	assert.Contains(t, s, "Avoid sequential patterns like '123' or 'abc'")

	long := "V3ry$ecureAndLongPhr@se"
	assert.Empty(t, Suggestions(long, CheckPolicy(long, p)))
}

func TestCalculateScore(t *testing.T) {
	p := DefaultPolicy()
	strongPw := "V3ry$ecureAndLongPhr@se"
	strong := CalculateScore(Entropy(strongPw), CheckPolicy(strongPw, p), BreachInfo{})
	assert.GreaterOrEqual(t, strong.Score, 80)
	assert.Equal(t, "very_strong", strong.Rating)

	// утечка с большим счётчиком роняет оценку на 50
	breached := CalculateScore(Entropy(strongPw), CheckPolicy(strongPw, p),
		BreachInfo{Breached: true, Count: 5000, Checked: true})
	assert.Equal(t, strong.Score-50, breached.Score)

	weak := CalculateScore(Entropy("abc"), CheckPolicy("abc", p), BreachInfo{})
	assert.LessOrEqual(t, weak.Score, 40)

	// оценка всегда в границах
	floor := CalculateScore(0, PolicyChecks{}, BreachInfo{Breached: true, Count: 9999})
	assert.Equal(t, 0, floor.Score)
	assert.Equal(t, "very_weak", floor.Rating)
}

// fakeRange отдаёт заранее заданный ответ и запоминает префикс запроса.
type fakeRange struct {
	body   string
	err    error
	prefix string
}

func (f *fakeRange) Range(_ context.Context, prefix string) (string, error) {
	f.prefix = prefix
	return f.body, f.err
}

func hibpLine(pw string, count int) (prefix, line string) {
	sum := fmt.Sprintf("%X", sha1.Sum([]byte(pw)))
	return sum[:5], sum[5:] + ":" + fmt.Sprint(count)
}

func TestCheckBreach_Found(t *testing.T) {
	prefix, line := hibpLine("password", 12345)
	fr := &fakeRange{body: "AAAAA:1\n" + line + "\nBBBBB:2\n"}
	info := NewChecker(fr).CheckBreach(context.Background(), "password")

	assert.True(t, info.Checked)
	assert.True(t, info.Breached)
	assert.Equal(t, 12345, info.Count)
	assert.Equal(t, "critical", info.Severity)
	// наружу ушёл только пятисимвольный префикс
	assert.Equal(t, prefix, fr.prefix)
	assert.Len(t, fr.prefix, 5)
}

func TestCheckBreach_NotFound(t *testing.T) {
	fr := &fakeRange{body: "AAAAA:1\nBBBBB:2\n"}
	info := NewChecker(fr).CheckBreach(context.Background(), "s0me-unique-pw")
	assert.True(t, info.Checked)
	assert.False(t, info.Breached)
	assert.Zero(t, info.Count)
}

func TestCheckBreach_APIDown(t *testing.T) {
	fr := &fakeRange{err: errors.New("timeout")}
	info := NewChecker(fr).CheckBreach(context.Background(), "whatever")
	// недоступность API — это «не проверено», а не «не утёк»
	assert.False(t, info.Checked)
	assert.False(t, info.Breached)
	assert.NotEmpty(t, info.Error)
}

func TestCheckBreach_SeverityHigh(t *testing.T) {
	_, line := hibpLine("rare-leak", 42)
	fr := &fakeRange{body: line + "\n"}
	info := NewChecker(fr).CheckBreach(context.Background(), "rare-leak")
	require.True(t, info.Breached)
	assert.Equal(t, "high", info.Severity)
}

func TestAnalyze(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	a := Analyze("V3ry$ecureAndLongPhr@se", DefaultPolicy(), BreachInfo{Checked: true}, now)
	assert.Equal(t, 23, a.Length)
	assert.Equal(t, now, a.AnalyzedAt)
	assert.Greater(t, a.Entropy, 100.0)
	assert.Equal(t, "very_strong", a.Score.Rating)
	assert.True(t, a.PolicyChecks.Common)
}
