package password

import (
	"bufio"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cyberlab/internal/logs"
)

// BreachInfo — результат проверки по базе утечек. Checked=false означает
// «проверить не удалось», это не то же самое, что Breached=false.
type BreachInfo struct {
	Breached bool   `json:"breached"`
	Count    int    `json:"count"`
	Checked  bool   `json:"checked"`
	Severity string `json:"severity,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RangeClient отдаёт сырой ответ HIBP range API по пятисимвольному префиксу
// SHA-1. Интерфейс нужен, чтобы тесты не ходили в сеть.
type RangeClient interface {
	Range(ctx context.Context, prefix string) (string, error)
}

// HIBPClient — боевой клиент api.pwnedpasswords.com.
type HIBPClient struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

func NewHIBPClient(timeout time.Duration) *HIBPClient {
	return &HIBPClient{
		BaseURL: "https://api.pwnedpasswords.com",
		Client:  &http.Client{},
		Timeout: timeout,
	}
}

func (c *HIBPClient) Range(ctx context.Context, prefix string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/range/"+prefix, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("hibp: status %d", resp.StatusCode)
	}
	var b strings.Builder
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteString("\n")
	}
	return b.String(), sc.Err()
}

// Checker реализует k-анонимную проверку: наружу уходят только первые пять
// символов SHA-1, сам пароль сеть не покидает.
type Checker struct {
	client RangeClient
}

func NewChecker(client RangeClient) *Checker { return &Checker{client: client} }

// CheckBreach никогда не возвращает ошибку: недоступность API деградирует в
// Checked=false, анализ пароля продолжается.
func (c *Checker) CheckBreach(ctx context.Context, pw string) BreachInfo {
	if c == nil || c.client == nil {
		return BreachInfo{Checked: false, Error: "breach check disabled"}
	}
	sum := fmt.Sprintf("%X", sha1.Sum([]byte(pw)))
	prefix, suffix := sum[:5], sum[5:]

	body, err := c.client.Range(ctx, prefix)
	if err != nil {
		logs.Component("password").WithError(err).Warn("breach check failed")
		return BreachInfo{Checked: false, Error: "API unavailable"}
	}
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		hashSuffix, countStr, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(hashSuffix, suffix) {
			count, _ := strconv.Atoi(strings.TrimSpace(countStr))
			sev := "high"
			if count > 1000 {
				sev = "critical"
			}
			return BreachInfo{Breached: true, Count: count, Checked: true, Severity: sev}
		}
	}
	return BreachInfo{Breached: false, Count: 0, Checked: true}
}
