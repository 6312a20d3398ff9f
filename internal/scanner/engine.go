package scanner

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Finding — одна находка сканера. Start/End — байтовые смещения в исходном
// тексте, Line — номер строки с единицы.
type Finding struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Severity string  `json:"severity"`
	Value    string  `json:"value"`
	Start    int     `json:"start"`
	End      int     `json:"end"`
	Line     int     `json:"line"`
	Entropy  float64 `json:"entropy"`
}

// Result — итог сканирования: находки отсортированы по severity, затем по
// позиции; счётчики — по каждому уровню.
type Result struct {
	Findings       []Finding      `json:"findings"`
	TotalFound     int            `json:"total_found"`
	SeverityCounts map[string]int `json:"severity_counts"`
}

// Redaction — что именно было замаскировано при Redact.
type Redaction struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Engine — детерминированный сканер над неизменяемым каталогом паттернов.
// Состояния между вызовами не держит, использовать можно конкурентно.
type Engine struct {
	patterns   []Pattern
	minEntropy float64
	minLength  int
}

// NewEngine строит движок над переданным каталогом. Порог энтропии 4.5
// бит/символ и минимальная длина 16 применяются только к generic-паттернам.
func NewEngine(patterns []Pattern) *Engine {
	return &Engine{patterns: patterns, minEntropy: 4.5, minLength: 16}
}

// Patterns — каталог движка (для выдачи наружу).
func (e *Engine) Patterns() []Pattern { return e.patterns }

// Entropy — энтропия Шеннона в битах на символ, округлённая до сотых.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := map[rune]int{}
	total := 0
	for _, r := range s {
		freq[r]++
		total++
	}
	h := 0.0
	for _, n := range freq {
		p := float64(n) / float64(total)
		h -= p * math.Log2(p)
	}
	return math.Round(h*100) / 100
}

// highEntropy — generic-находка считается секретом, только если она длинная
// и достаточно случайная. Отсекает "password123" и подобный мусор.
func (e *Engine) highEntropy(value string) bool {
	return len(value) >= e.minLength && Entropy(value) >= e.minEntropy
}

// truncate — превью значения: первые 8 и последние 4 символа.
func truncate(value string) string {
	if len(value) <= 12 {
		return value
	}
	return value[:8] + "..." + value[len(value)-4:]
}

// Scan прогоняет весь каталог по тексту. Дубликаты по (тип, start)
// схлопываются, generic-находки фильтруются по энтропии. При redact значения
// в находках усечены до превью.
func (e *Engine) Scan(text string, redact bool) *Result {
	res := &Result{
		Findings: []Finding{},
		SeverityCounts: map[string]int{
			SeverityCritical: 0,
			SeverityHigh:     0,
			SeverityMedium:   0,
			SeverityLow:      0,
		},
	}
	seen := map[string]bool{}
	for _, p := range e.patterns {
		for _, loc := range p.Match(text) {
			start, end := loc[0], loc[1]
			value := text[start:end]
			if p.Generic && !e.highEntropy(value) {
				continue
			}
			key := fmt.Sprintf("%s:%d", p.ID, start)
			if seen[key] {
				continue
			}
			seen[key] = true
			shown := value
			if redact {
				shown = truncate(value)
			}
			res.Findings = append(res.Findings, Finding{
				Type:     p.ID,
				Name:     p.Name,
				Severity: p.Severity,
				Value:    shown,
				Start:    start,
				End:      end,
				Line:     strings.Count(text[:start], "\n") + 1,
				Entropy:  Entropy(value),
			})
			res.SeverityCounts[p.Severity]++
		}
	}
	sort.SliceStable(res.Findings, func(i, j int) bool {
		ri, rj := severityRank(res.Findings[i].Severity), severityRank(res.Findings[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return res.Findings[i].Start < res.Findings[j].Start
	})
	res.TotalFound = len(res.Findings)
	return res
}

// Redact заменяет каждое совпадение маркером [REDACTED <ИМЯ>]. Фильтр
// энтропии здесь не применяется: при маскировании лучше перестраховаться.
func (e *Engine) Redact(text string) (string, int, []Redaction) {
	out := text
	total := 0
	var details []Redaction
	for _, p := range e.patterns {
		n := len(p.re.FindAllStringIndex(out, -1))
		if n == 0 {
			continue
		}
		marker := "[REDACTED " + strings.ToUpper(p.Name) + "]"
		out = p.re.ReplaceAllString(out, marker)
		total += n
		details = append(details, Redaction{Type: p.ID, Name: p.Name, Count: n})
	}
	return out, total, details
}
