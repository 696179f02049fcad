// Package ingest assembles raw pipeline input from local files, web pages and
// user text. Only plain text leaves this package; binary document formats are
// rejected.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-shiori/go-readability"
)

// MaxSourceBytes caps a single file or downloaded page.
const MaxSourceBytes = 10 << 20

// Source is one piece of extracted input text.
type Source struct {
	Name string
	Kind string
	Text string
}

const (
	KindText     = "text"
	KindMarkdown = "markdown"
	KindHTML     = "html"
	KindURL      = "url"
)

var textExtensions = map[string]string{
	".txt":      KindText,
	".text":     KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".html":     KindHTML,
	".htm":      KindHTML,
}

var binaryExtensions = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".doc":  {},
	".pptx": {},
	".ppt":  {},
	".xlsx": {},
}

// Loader reads sources.
type Loader struct {
	client    *http.Client
	converter *md.Converter
	maxBytes  int64
}

// NewLoader creates a loader with the default size limit.
func NewLoader() *Loader {
	return &Loader{
		client:    &http.Client{Timeout: 30 * time.Second},
		converter: md.NewConverter("", true, nil),
		maxBytes:  MaxSourceBytes,
	}
}

// Load dispatches on ref: http(s) URLs are fetched, anything else is read
// from disk.
func (l *Loader) Load(ctx context.Context, ref string) (Source, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return l.LoadURL(ctx, ref)
	}
	return l.LoadFile(ref)
}

// LoadFile reads a text, markdown or HTML file. HTML is converted to markdown.
func (l *Loader) LoadFile(path string) (Source, error) {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := binaryExtensions[ext]; ok {
		return Source{}, fmt.Errorf("%s: unsupported format %s: extract the text first", name, ext)
	}
	kind, ok := textExtensions[ext]
	if !ok {
		return Source{}, fmt.Errorf("%s: unsupported format %q", name, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Source{}, fmt.Errorf("read failed: %w", err)
	}
	if info.Size() > l.maxBytes {
		return Source{}, tooLarge(name, info.Size(), l.maxBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("read failed: %w", err)
	}
	if !utf8.Valid(data) || bytes.IndexByte(data, 0) >= 0 {
		return Source{}, fmt.Errorf("%s appears corrupted: not valid UTF-8 text", name)
	}

	text := string(data)
	if kind == KindHTML {
		text, err = l.converter.ConvertString(text)
		if err != nil {
			return Source{}, fmt.Errorf("%s: convert html: %w", name, err)
		}
	}
	return Source{Name: name, Kind: kind, Text: normalizeText(text)}, nil
}

// LoadURL downloads a page and extracts its readable content.
func (l *Loader) LoadURL(ctx context.Context, url string) (Source, error) {
	parsed, err := nurl.Parse(url)
	if err != nil {
		return Source{}, fmt.Errorf("invalid format for url %q: %w", url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Source{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return Source{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Source{}, fmt.Errorf("fetch %s: HTTP %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return Source{}, fmt.Errorf("fetch %s: read body: %w", url, err)
	}
	if int64(len(body)) > l.maxBytes {
		return Source{}, tooLarge(url, int64(len(body)), l.maxBytes)
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return Source{}, fmt.Errorf("readability: %w", err)
	}

	name := strings.TrimSpace(article.Title)
	if name == "" {
		name = parsed.Host + parsed.Path
	}
	text := multiSpace.ReplaceAllString(normalizeText(article.TextContent), " ")
	if text == "" {
		return Source{}, fmt.Errorf("input is empty: no readable content at %s", url)
	}
	return Source{Name: name, Kind: KindURL, Text: text}, nil
}

// Combine joins sources under "--- Source: <name> ---" headers and appends the
// user's own text last.
func Combine(sources []Source, userText string) string {
	var parts []string
	for _, src := range sources {
		if strings.TrimSpace(src.Text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Source: %s ---\n%s", src.Name, strings.TrimSpace(src.Text)))
	}
	if text := strings.TrimSpace(userText); text != "" {
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

func tooLarge(name string, size, limit int64) error {
	return fmt.Errorf("%s is too large: %s exceeds the %s limit", name, formatBytes(size), formatBytes(limit))
}

func formatBytes(n int64) string {
	const mib = 1 << 20
	if n >= mib {
		return fmt.Sprintf("%.1f MiB", float64(n)/mib)
	}
	return fmt.Sprintf("%d bytes", n)
}

var multiSpace = regexp.MustCompile(`[ \t]+`)
var multiNewline = regexp.MustCompile(`\n{3,}`)

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
