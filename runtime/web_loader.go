package runtime

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultWebExt is appended when a bare template name is not found
const DefaultWebExt = ".html"

// WebLoader fetches templates over HTTP. Each name is tried as given and
// then with the default extension appended. Unless NeverUpdate is set
// every load goes back to the server.
type WebLoader struct {
	BaseURL     string
	DefaultExt  string
	NeverUpdate bool
	Client      *http.Client

	// Precompiled sources are served without a request
	Precompiled map[string]string

	ctx     context.Context
	mu      sync.Mutex
	sources map[string]string
	now     func() time.Time
}

// NewWebLoader returns a loader for baseURL. An empty ext selects
// DefaultWebExt; a missing leading dot is added.
func NewWebLoader(baseURL string, neverUpdate bool, ext string) *WebLoader {
	if ext == "" {
		ext = DefaultWebExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &WebLoader{
		BaseURL:     strings.TrimSuffix(baseURL, "/"),
		DefaultExt:  ext,
		NeverUpdate: neverUpdate,
		Client:      &http.Client{Timeout: 30 * time.Second},
		ctx:         context.Background(),
		sources:     map[string]string{},
		now:         time.Now,
	}
}

// WithContext returns a shallow copy whose requests use ctx
func (l *WebLoader) WithContext(ctx context.Context) *WebLoader {
	return &WebLoader{
		BaseURL:     l.BaseURL,
		DefaultExt:  l.DefaultExt,
		NeverUpdate: l.NeverUpdate,
		Client:      l.Client,
		Precompiled: l.Precompiled,
		ctx:         ctx,
		sources:     map[string]string{},
		now:         l.now,
	}
}

// Load fetches name, then name plus the default extension. A failed
// request counts as a miss; its error is returned only when no path
// succeeds.
func (l *WebLoader) Load(name string) (string, error) {
	if source, ok := l.Precompiled[name]; ok {
		return source, nil
	}

	if l.NeverUpdate {
		l.mu.Lock()
		source, ok := l.sources[name]
		l.mu.Unlock()
		if ok {
			return source, nil
		}
	}

	paths := []string{
		l.BaseURL + "/" + name,
		l.BaseURL + "/" + name + l.DefaultExt,
	}
	var (
		tried   []string
		lastErr error
	)
	for _, u := range paths {
		tried = append(tried, u)
		source, found, err := l.fetch(u)
		if err != nil {
			lastErr = err
			continue
		}
		if !found {
			continue
		}
		if l.NeverUpdate {
			l.mu.Lock()
			if l.sources == nil {
				l.sources = map[string]string{}
			}
			l.sources[name] = source
			l.mu.Unlock()
		}
		return source, nil
	}
	if lastErr != nil {
		return "", lastErr
	}
	return "", NewTemplateNotFound(name, tried, os.ErrNotExist)
}

// fetch GETs u with a cache-busting query parameter. A non-2xx status
// reports found as false.
func (l *WebLoader) fetch(u string) (string, bool, error) {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	now := time.Now
	if l.now != nil {
		now = l.now
	}
	u += sep + "s=" + strconv.FormatInt(now().UnixMilli(), 10)

	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("fetch %s: %w", u, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", false, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", u, err)
	}
	return string(body), true, nil
}
