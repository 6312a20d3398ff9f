package password

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// Policy — требования к паролю. Нулевое значение невалидно, начинать с
// DefaultPolicy().
type Policy struct {
	MinLength        int  `json:"min_length"`
	RequireUppercase bool `json:"require_uppercase"`
	RequireLowercase bool `json:"require_lowercase"`
	RequireDigits    bool `json:"require_digits"`
	RequireSpecial   bool `json:"require_special"`
	MaxRepeating     int  `json:"max_repeating"`
	BlockCommon      bool `json:"block_common"`
}

func DefaultPolicy() Policy {
	return Policy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireDigits:    true,
		RequireSpecial:   true,
		MaxRepeating:     3,
		BlockCommon:      true,
	}
}

// commonPasswords — известные слабые пароли (подмножество), сравнение без
// учёта регистра.
var commonPasswords = map[string]bool{
	"password": true, "123456": true, "123456789": true, "12345678": true,
	"12345": true, "1234567": true, "password1": true, "qwerty": true,
	"abc123": true, "monkey": true, "dragon": true, "letmein": true,
	"welcome": true, "admin": true, "password123": true, "iloveyou": true,
}

var (
	reLower   = regexp.MustCompile(`[a-z]`)
	reUpper   = regexp.MustCompile(`[A-Z]`)
	reDigit   = regexp.MustCompile(`[0-9]`)
	reSpecial = regexp.MustCompile(`[!@#$%^&*()_+\-=\[\]{};':"\\|,.<>/?]`)
	reSeq     = regexp.MustCompile(`123|abc|qwerty`)
)

// Entropy — оценка в битах: длина * log2(размер задействованного алфавита),
// округление до сотых.
func Entropy(pw string) float64 {
	charset := 0
	if reLower.MatchString(pw) {
		charset += 26
	}
	if reUpper.MatchString(pw) {
		charset += 26
	}
	if reDigit.MatchString(pw) {
		charset += 10
	}
	if reSpecial.MatchString(pw) {
		charset += 32
	}
	if charset == 0 {
		return 0
	}
	return math.Round(float64(len(pw))*math.Log2(float64(charset))*100) / 100
}

// CrackTime — человекочитаемая оценка перебора при 10^10 попыток/сек.
type CrackTime struct {
	Value  string `json:"value"`
	Unit   string `json:"unit"`
	Rating string `json:"rating"`
}

func EstimateCrackTime(entropy float64) CrackTime {
	const guessesPerSecond = 1e10
	seconds := math.Pow(2, entropy) / guessesPerSecond
	const year = 31536000.0
	switch {
	case seconds < 1:
		return CrackTime{Value: "< 1", Unit: "second", Rating: "very_weak"}
	case seconds < 60:
		return CrackTime{Value: fmt.Sprintf("%d", int(seconds)), Unit: "seconds", Rating: "very_weak"}
	case seconds < 3600:
		return CrackTime{Value: fmt.Sprintf("%d", int(seconds/60)), Unit: "minutes", Rating: "weak"}
	case seconds < 86400:
		return CrackTime{Value: fmt.Sprintf("%d", int(seconds/3600)), Unit: "hours", Rating: "weak"}
	case seconds < year:
		return CrackTime{Value: fmt.Sprintf("%d", int(seconds/86400)), Unit: "days", Rating: "fair"}
	case seconds < year*100:
		return CrackTime{Value: fmt.Sprintf("%d", int(seconds/year)), Unit: "years", Rating: "good"}
	case seconds < year*1000:
		return CrackTime{Value: fmt.Sprintf("%d", int(seconds/year)), Unit: "years", Rating: "strong"}
	default:
		return CrackTime{Value: "∞", Unit: "centuries+", Rating: "very_strong"}
	}
}

// PolicyChecks — результат проверки по каждому требованию политики.
type PolicyChecks struct {
	Length    bool `json:"length"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Digits    bool `json:"digits"`
	Special   bool `json:"special"`
	Repeating bool `json:"repeating"`
	Common    bool `json:"common"`
}

func (c PolicyChecks) passed() int {
	n := 0
	for _, ok := range []bool{c.Length, c.Uppercase, c.Lowercase, c.Digits, c.Special, c.Repeating, c.Common} {
		if ok {
			n++
		}
	}
	return n
}

func CheckPolicy(pw string, p Policy) PolicyChecks {
	checks := PolicyChecks{
		Length:    len(pw) >= p.MinLength,
		Uppercase: !p.RequireUppercase || reUpper.MatchString(pw),
		Lowercase: !p.RequireLowercase || reLower.MatchString(pw),
		Digits:    !p.RequireDigits || reDigit.MatchString(pw),
		Special:   !p.RequireSpecial || reSpecial.MatchString(pw),
		Repeating: true,
		Common:    true,
	}
	if p.MaxRepeating > 0 {
		runs := []rune(pw)
		for i := 0; i+p.MaxRepeating <= len(runs); i++ {
			same := true
			for j := 1; j < p.MaxRepeating; j++ {
				if runs[i+j] != runs[i] {
					same = false
					break
				}
			}
			if same {
				checks.Repeating = false
				break
			}
		}
	}
	if p.BlockCommon && commonPasswords[strings.ToLower(pw)] {
		checks.Common = false
	}
	return checks
}

// Suggestions — советы по улучшению исходя из проваленных проверок.
func Suggestions(pw string, checks PolicyChecks) []string {
	var out []string
	if !checks.Length {
		out = append(out, "Increase password length to at least 8 characters")
	}
	if !checks.Uppercase {
		out = append(out, "Add uppercase letters (A-Z)")
	}
	if !checks.Lowercase {
		out = append(out, "Add lowercase letters (a-z)")
	}
	if !checks.Digits {
		out = append(out, "Add numbers (0-9)")
	}
	if !checks.Special {
		out = append(out, "Add special characters (!@#$%^&*)")
	}
	if !checks.Repeating {
		out = append(out, "Avoid repeating characters (e.g., 'aaa', '111')")
	}
	if !checks.Common {
		out = append(out, "This is a commonly used password - choose something more unique")
	}
	if len(pw) < 12 {
		out = append(out, "Consider using at least 12 characters for better security")
	}
	if reSeq.MatchString(strings.ToLower(pw)) {
		out = append(out, "Avoid sequential patterns like '123' or 'abc'")
	}
	return out
}

// Score — итоговая оценка 0..100 и словесный рейтинг.
type Score struct {
	Score  int    `json:"score"`
	Rating string `json:"rating"`
}

// CalculateScore: до 40 очков за энтропию, до 40 за политику, штраф до 50
// за утечку.
func CalculateScore(entropy float64, checks PolicyChecks, breach BreachInfo) Score {
	score := 0
	switch {
	case entropy >= 80:
		score += 40
	case entropy >= 60:
		score += 30
	case entropy >= 40:
		score += 20
	case entropy >= 20:
		score += 10
	}
	score += int(float64(checks.passed()) / 7 * 40)
	if breach.Breached {
		switch {
		case breach.Count > 1000:
			score -= 50
		case breach.Count > 100:
			score -= 30
		default:
			score -= 20
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	rating := "very_weak"
	switch {
	case score >= 80:
		rating = "very_strong"
	case score >= 60:
		rating = "strong"
	case score >= 40:
		rating = "fair"
	case score >= 20:
		rating = "weak"
	}
	return Score{Score: score, Rating: rating}
}

// Analysis — полный разбор пароля.
type Analysis struct {
	Entropy      float64      `json:"entropy"`
	CrackTime    CrackTime    `json:"crack_time"`
	Score        Score        `json:"score"`
	PolicyChecks PolicyChecks `json:"policy_checks"`
	BreachInfo   BreachInfo   `json:"breach_info"`
	Suggestions  []string     `json:"suggestions"`
	Length       int          `json:"length"`
	AnalyzedAt   time.Time    `json:"analyzed_at"`
}

// Analyze собирает полный разбор; breach передаётся снаружи, чтобы сетевой
// вызов оставался на совести вызывающего.
func Analyze(pw string, policy Policy, breach BreachInfo, now time.Time) Analysis {
	entropy := Entropy(pw)
	checks := CheckPolicy(pw, policy)
	return Analysis{
		Entropy:      entropy,
		CrackTime:    EstimateCrackTime(entropy),
		Score:        CalculateScore(entropy, checks, breach),
		PolicyChecks: checks,
		BreachInfo:   breach,
		Suggestions:  Suggestions(pw, checks),
		Length:       len(pw),
		AnalyzedAt:   now,
	}
}
