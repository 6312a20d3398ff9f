package scanner

import (
	"fmt"
	"strings"
	"time"
)

// Report — текстовый отчёт по результату сканирования. Формат стабильный,
// пригоден для выгрузки файлом.
func Report(res *Result, source string, now time.Time) string {
	var b strings.Builder
	b.WriteString("SECRET SCAN REPORT\n")
	b.WriteString("==================\n\n")
	fmt.Fprintf(&b, "Source:    %s\n", source)
	fmt.Fprintf(&b, "Scanned:   %s\n", now.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Total:     %d\n\n", res.TotalFound)
	b.WriteString("Severity breakdown:\n")
	for _, sev := range []string{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow} {
		fmt.Fprintf(&b, "  %-8s %d\n", sev, res.SeverityCounts[sev])
	}
	b.WriteString("\n")
	if res.TotalFound == 0 {
		b.WriteString("No secrets detected.\n")
		return b.String()
	}
	b.WriteString("Findings:\n")
	for i, f := range res.Findings {
		fmt.Fprintf(&b, "%d. %s [%s]\n", i+1, f.Name, strings.ToUpper(f.Severity))
		fmt.Fprintf(&b, "   Line:     %d\n", f.Line)
		fmt.Fprintf(&b, "   Position: %d-%d\n", f.Start, f.End)
		fmt.Fprintf(&b, "   Entropy:  %.2f\n", f.Entropy)
		fmt.Fprintf(&b, "   Preview:  %s\n", reportPreview(f.Value))
	}
	return b.String()
}

// reportPreview — первые 50 символов значения; полного вывода в отчёте нет.
func reportPreview(v string) string {
	r := []rune(v)
	if len(r) <= 50 {
		return v
	}
	return string(r[:50]) + "..."
}
