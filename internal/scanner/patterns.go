package scanner

import "regexp"

// Severity — уровень находки; порядок сортировки фиксированный.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
)

// severityRank — critical=0 ... low=3; неизвестное — в конец.
func severityRank(s string) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Pattern — именованный детектор: независимо тестируемый matcher за общим
// интерфейсом (id, severity, regexp). Generic-паттерны дополнительно
// фильтруются по энтропии/длине при Scan.
type Pattern struct {
	ID       string
	Name     string
	Severity string
	Generic  bool
	re       *regexp.Regexp
}

func (p Pattern) Match(text string) [][]int { return p.re.FindAllStringIndex(text, -1) }

func mustPattern(id, name, severity string, generic bool, expr string) Pattern {
	return Pattern{ID: id, Name: name, Severity: severity, Generic: generic, re: regexp.MustCompile(expr)}
}

// defaultCatalog — упорядоченная таблица детекторов. Порядок важен:
// дедупликация по (id, start) оставляет первую встреченную находку.
var defaultCatalog = []Pattern{
	mustPattern("aws_access_key", "AWS Access Key ID", SeverityHigh, false,
		`(?:A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|AIPA|ANPA|ANVA|ASIA)[A-Z0-9]{16}`),
	mustPattern("aws_secret_key", "AWS Secret Access Key", SeverityCritical, false,
		`(?i)aws(.{0,20})?['"][0-9a-zA-Z/+]{40}['"]`),
	mustPattern("github_token", "GitHub Personal Access Token", SeverityHigh, false,
		`ghp_[0-9a-zA-Z]{36}|gho_[0-9a-zA-Z]{36}|ghu_[0-9a-zA-Z]{36}|ghs_[0-9a-zA-Z]{36}|ghr_[0-9a-zA-Z]{36}`),
	mustPattern("slack_token", "Slack Token", SeverityHigh, false,
		`xox[baprs]-([0-9a-zA-Z]{10,48})?`),
	mustPattern("google_api_key", "Google API Key", SeverityHigh, false,
		`AIza[0-9A-Za-z\-_]{35}`),
	mustPattern("stripe_key", "Stripe API Key", SeverityHigh, false,
		`(?:r|s)k_live_[0-9a-zA-Z]{24,99}`),
	mustPattern("jwt_token", "JSON Web Token (JWT)", SeverityMedium, false,
		`eyJ[A-Za-z0-9-_=]+\.eyJ[A-Za-z0-9-_=]+\.?[A-Za-z0-9-_.+/=]*`),
	mustPattern("private_key", "Private Key", SeverityCritical, false,
		`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
	mustPattern("azure_connection_string", "Azure Connection String", SeverityCritical, false,
		`(?i)DefaultEndpointsProtocol=https;AccountName=[a-z0-9]+;AccountKey=[A-Za-z0-9+/=]{88};`),
	mustPattern("database_url", "Database Connection URL", SeverityCritical, false,
		`(?i)(mysql|postgres|mongodb|redis)://[^\s]+:[^\s]+@[^\s]+`),
	mustPattern("api_key_generic", "Generic API Key", SeverityMedium, true,
		`(?i)(api[_-]?key|apikey|api[_-]?secret)[\s]*[=:]+[\s]*['"]?([0-9a-zA-Z\-_]{20,})['"]?`),
	mustPattern("password_in_url", "Password in URL", SeverityHigh, true,
		`(?i)[a-z]{3,10}://[^:/\s]+:([^@/\s]{8,})@`),
	mustPattern("email", "Email Address", SeverityLow, false,
		`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	mustPattern("ip_address", "IP Address", SeverityLow, false,
		`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`),
}

// DefaultCatalog — каталог по умолчанию. Слайс общий и неизменяемый по
// договорённости; движку можно передать и альтернативный каталог.
func DefaultCatalog() []Pattern { return defaultCatalog }
