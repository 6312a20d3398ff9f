package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrBadGitHubURL = errors.New("not a valid github file url")
	ErrNotText      = errors.New("content is not valid utf-8 text")
)

// maxFetchSize — потолок на размер скачиваемого файла, 1 МиБ.
const maxFetchSize = 1 << 20

// RawURL переводит ссылку вида github.com/<owner>/<repo>/blob/<ref>/<path>
// в raw.githubusercontent.com без /blob. Чужие хосты и ссылки без /blob/
// отклоняются.
func RawURL(blobURL string) (string, error) {
	u, err := url.Parse(blobURL)
	if err != nil {
		return "", ErrBadGitHubURL
	}
	if u.Scheme != "https" || (u.Host != "github.com" && u.Host != "www.github.com") {
		return "", ErrBadGitHubURL
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// owner/repo/blob/ref/path...
	if len(parts) < 5 || parts[2] != "blob" {
		return "", ErrBadGitHubURL
	}
	rest := append(parts[:2], parts[3:]...)
	return "https://raw.githubusercontent.com/" + strings.Join(rest, "/"), nil
}

// Fetcher качает содержимое файла по ссылке на GitHub. Клиент инъектируется,
// чтобы тесты ходили в httptest-сервер.
type Fetcher struct {
	Client  *http.Client
	Timeout time.Duration
	// rewrite подменяет raw-ссылку в тестах; в бою nil.
	rewrite func(string) string
}

func NewFetcher() *Fetcher {
	return &Fetcher{Client: &http.Client{}, Timeout: 10 * time.Second}
}

// Fetch возвращает содержимое файла по blob-ссылке. Бинарные данные
// отклоняются: сканер работает только по тексту.
func (f *Fetcher) Fetch(ctx context.Context, blobURL string) (string, error) {
	raw, err := RawURL(blobURL)
	if err != nil {
		return "", err
	}
	if f.rewrite != nil {
		raw = f.rewrite(raw)
	}
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(body) {
		return "", ErrNotText
	}
	return string(body), nil
}
