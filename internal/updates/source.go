package updates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoArtifact = errors.New("no update artifact for this platform")
	ErrChecksum   = errors.New("checksum mismatch")
)

// Source finds and fetches releases.
type Source interface {
	// Latest returns nil when the running version is current.
	Latest(ctx context.Context) (*Release, error)
	// Download writes the artifact to dst, calling onChunk with the cumulative
	// byte count and the expected total (<= 0 when unknown).
	Download(ctx context.Context, a Artifact, dst io.Writer, onChunk func(downloaded, total int64)) error
}

type manifest struct {
	Version   string                   `json:"version"`
	Notes     string                   `json:"notes"`
	PubDate   string                   `json:"pub_date"`
	Platforms map[string]manifestEntry `json:"platforms"`
}

type manifestEntry struct {
	URL       string `json:"url"`
	SHA256    string `json:"sha256"`
	Signature string `json:"signature"`
}

// HTTPSource reads a JSON release manifest. The endpoint may contain the
// {{target}}, {{arch}} and {{current_version}} placeholders.
type HTTPSource struct {
	Endpoint        string
	CurrentVersion  string
	Platform        string
	CheckTimeout    time.Duration
	DownloadTimeout time.Duration
	Log             logrus.FieldLogger
}

func (s *HTTPSource) userAgent() string {
	return "SyftBoxDesktop/" + s.CurrentVersion
}

func (s *HTTPSource) platform() string {
	if s.Platform != "" {
		return s.Platform
	}
	return PlatformKey(runtime.GOOS, runtime.GOARCH)
}

func (s *HTTPSource) endpoint() string {
	target, arch, _ := strings.Cut(s.platform(), "-")
	r := strings.NewReplacer(
		"{{target}}", target,
		"{{arch}}", arch,
		"{{current_version}}", url.PathEscape(s.CurrentVersion),
	)
	return r.Replace(s.Endpoint)
}

func (s *HTTPSource) Latest(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := doWithProxyFallback(req, s.CheckTimeout, s.Log)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return nil, fmt.Errorf("update server status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var m manifest
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if strings.TrimSpace(m.Version) == "" {
		return nil, errors.New("manifest has no version")
	}
	if !IsNewer(s.CurrentVersion, m.Version) {
		return nil, nil
	}

	key := s.platform()
	entry, ok := m.Platforms[key]
	if !ok || strings.TrimSpace(entry.URL) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoArtifact, key)
	}
	rel := &Release{
		Version:        strings.TrimPrefix(m.Version, "v"),
		CurrentVersion: s.CurrentVersion,
		Notes:          m.Notes,
		Artifact: Artifact{
			URL:       entry.URL,
			SHA256:    strings.ToLower(strings.TrimSpace(entry.SHA256)),
			Signature: entry.Signature,
			Platform:  key,
		},
	}
	if t, err := time.Parse(time.RFC3339, m.PubDate); err == nil {
		rel.Date = t
	}
	return rel, nil
}

func (s *HTTPSource) Download(ctx context.Context, a Artifact, dst io.Writer, onChunk func(downloaded, total int64)) error {
	if a.URL == "" {
		return ErrNoArtifact
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.userAgent())

	resp, err := doWithProxyFallback(req, s.DownloadTimeout, s.Log)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return fmt.Errorf("download status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	total := resp.ContentLength
	onChunk(0, total)
	cw := &countingWriter{w: dst, total: total, onChunk: onChunk}
	if _, err := io.Copy(cw, resp.Body); err != nil {
		return fmt.Errorf("download: %w", err)
	}
	return nil
}

type countingWriter struct {
	w       io.Writer
	n       int64
	total   int64
	onChunk func(downloaded, total int64)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.onChunk(c.n, c.total)
	return n, err
}

// PlatformKey maps GOOS/GOARCH onto the manifest's "<os>-<arch>" keys.
func PlatformKey(goos, goarch string) string {
	arch := goarch
	switch goarch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	case "386":
		arch = "i686"
	case "arm":
		arch = "armv7"
	}
	return goos + "-" + arch
}

// doWithProxyFallback retries without the environment proxy when the proxied
// attempt fails; a dead local proxy is the most common cause.
func doWithProxyFallback(req *http.Request, timeout time.Duration, log logrus.FieldLogger) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("request is nil")
	}
	proxyURL, proxyUsed := proxyFromEnv(req)

	resp, err := (&http.Client{Timeout: timeout}).Do(req)
	if err == nil {
		return resp, nil
	}
	if !proxyUsed || req.Context().Err() != nil {
		return nil, err
	}

	direct := &http.Transport{
		Proxy: nil,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	resp2, err2 := (&http.Client{Timeout: timeout, Transport: direct}).Do(req.Clone(req.Context()))
	if err2 == nil {
		if log != nil {
			log.Warnf("proxy %s failed, direct connection ok: %v", proxyURL, err)
		}
		return resp2, nil
	}
	if isLikelyLocalProxy(proxyURL) {
		return nil, fmt.Errorf("local proxy %s looks unavailable: proxy error: %v; direct error: %v", proxyURL, err, err2)
	}
	return nil, fmt.Errorf("request via proxy %s failed: %v; direct also failed: %v", proxyURL, err, err2)
}

func proxyFromEnv(req *http.Request) (string, bool) {
	pu, err := http.ProxyFromEnvironment(req)
	if err != nil || pu == nil {
		return "", false
	}
	return pu.String(), true
}

func isLikelyLocalProxy(proxyStr string) bool {
	u, err := url.Parse(strings.TrimSpace(proxyStr))
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return false
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
