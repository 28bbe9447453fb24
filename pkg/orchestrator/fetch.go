package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/papergraph/paperd/pkg/config"
	"github.com/papergraph/paperd/pkg/perrors"
)

// arxivAbsPattern matches an arXiv abstract-page URL so it can be rewritten
// to the PDF form before fetch, per spec.md §6.
var arxivAbsPattern = regexp.MustCompile(`^(https?://arxiv\.org)/abs/(.+)$`)

// rewriteArxivURL rewrites an arXiv "abs" URL to its "pdf" form. Any other
// URL passes through unchanged.
func rewriteArxivURL(raw string) string {
	if m := arxivAbsPattern.FindStringSubmatch(raw); m != nil {
		return m[1] + "/pdf/" + m[2]
	}
	return raw
}

// fetcher performs the SSRF-guarded HTTP fetch: scheme check, per-hop DNS
// resolution and private-address rejection, a bounded redirect chain, a
// hard body-size cap and an overall timeout. Grounded on the teacher's own
// outbound-webhook fetch path, which applies the same resolve-then-dial
// discipline before handing a response to a caller.
type fetcher struct {
	cfg    config.FetchConfig
	client *http.Client
}

func newFetcher(cfg config.FetchConfig) *fetcher {
	f := &fetcher{cfg: cfg}
	f.client = &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("too many redirects (max %d)", cfg.MaxRedirects)
			}
			if err := validateURL(req.URL); err != nil {
				return err
			}
			return nil
		},
		Transport: &http.Transport{
			DialContext: safeDialContext,
		},
	}
	return f
}

// fetchResult is a fetched body plus the content type the server reported.
type fetchResult struct {
	Body        []byte
	ContentType string
}

// Fetch retrieves rawURL, enforcing the SSRF guards and the body-size cap.
// The caller is still expected to re-check content type via dispatch.
func (f *fetcher) Fetch(ctx context.Context, rawURL string) (*fetchResult, error) {
	rawURL = rewriteArxivURL(rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, perrors.NewInvalidInput(fmt.Sprintf("malformed url: %v", err))
	}
	if err := validateURL(parsed); err != nil {
		return nil, perrors.NewInvalidInput(err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, perrors.NewInvalidInput(fmt.Sprintf("build request: %v", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, perrors.NewInvalidInput(fmt.Sprintf("fetch failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, perrors.NewInvalidInput(fmt.Sprintf("fetch returned status %d", resp.StatusCode))
	}

	limited := io.LimitReader(resp.Body, f.cfg.MaxBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return nil, perrors.NewInvalidInput(fmt.Sprintf("read body: %v", err))
	}
	if int64(len(body)) > f.cfg.MaxBytes {
		return nil, perrors.NewInvalidInput(fmt.Sprintf("body exceeds max size of %d bytes", f.cfg.MaxBytes))
	}

	return &fetchResult{Body: body, ContentType: resp.Header.Get("Content-Type")}, nil
}

// validateURL rejects anything but http/https and any hostname that
// resolves to a private, loopback, link-local, ULA, CGNAT or otherwise
// non-routable address.
func validateURL(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("url has no host")
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".local") {
		return fmt.Errorf("url host %q is not allowed", host)
	}

	addrs, err := net.DefaultResolver.LookupIPAddr(context.Background(), host)
	if err != nil {
		return fmt.Errorf("resolve host %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("host %q did not resolve", host)
	}
	for _, a := range addrs {
		if isPrivateAddr(a.IP) {
			return fmt.Errorf("url host %q resolves to a private address %s", host, a.IP)
		}
	}
	return nil
}

// isPrivateAddr covers RFC1918, loopback, link-local, ULA, CGNAT
// (100.64.0.0/10) and IPv4-mapped IPv6 addresses embedding a private IPv4.
func isPrivateAddr(ip net.IP) bool {
	// To4 also unwraps ::ffff:-mapped IPv4-in-IPv6 addresses, so a mapped
	// private IPv4 is caught by the same checks below.
	if ip4 := ip.To4(); ip4 != nil {
		ip = ip4
	}

	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified() {
		return true
	}
	if ip.IsPrivate() {
		return true
	}
	// IsPrivate already covers RFC1918 and fc00::/7 (ULA); add CGNAT.
	if v4 := ip.To4(); v4 != nil && v4[0] == 100 && v4[1] >= 64 && v4[1] <= 127 {
		return true
	}
	return false
}

// safeDialContext resolves the address itself and re-validates it before
// dialing, closing the TOCTOU window between CheckRedirect's validation and
// the actual connection (and covering the very first, non-redirect dial,
// which CheckRedirect never sees).
func safeDialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("host %q did not resolve", host)
	}
	for _, ip := range ips {
		if isPrivateAddr(ip.IP) {
			return nil, fmt.Errorf("host %q resolves to a private address %s", host, ip.IP)
		}
	}
	dialer := &net.Dialer{}
	return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
}

// contentTypeKind classifies a Content-Type header (or, failing that, a
// file extension) per spec.md §6's dispatch table.
type contentTypeKind string

const (
	contentPDF        contentTypeKind = "pdf"
	contentJSON       contentTypeKind = "json"
	contentHTML       contentTypeKind = "html"
	contentPlain      contentTypeKind = "plain"
	contentUnsupported contentTypeKind = "unsupported"
)

func classifyContentType(contentType, fallbackExt string) contentTypeKind {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	ext := strings.ToLower(strings.TrimPrefix(fallbackExt, "."))

	switch {
	case ct == "application/pdf" || ext == "pdf":
		return contentPDF
	case ct == "application/json" || ext == "json":
		return contentJSON
	case ct == "text/html" || ct == "application/xhtml+xml" || ext == "html" || ext == "htm":
		return contentHTML
	case ct == "text/plain" || ext == "txt":
		return contentPlain
	default:
		return contentUnsupported
	}
}

// jsonExtraction is the shape a application/json submission is expected to
// carry: plain text plus whatever bibliographic fields were already known.
type jsonExtraction struct {
	Text     string                 `json:"text"`
	Title    string                 `json:"title"`
	Abstract string                 `json:"abstract"`
	Year     *int                   `json:"year"`
	Metadata map[string]interface{} `json:"metadata"`
}

func parseJSONContent(body []byte) (jsonExtraction, error) {
	var out jsonExtraction
	if err := json.Unmarshal(body, &out); err != nil {
		return jsonExtraction{}, perrors.NewInvalidInput(fmt.Sprintf("malformed json content: %v", err))
	}
	if strings.TrimSpace(out.Text) == "" {
		return jsonExtraction{}, perrors.NewInvalidInput("json content missing non-empty \"text\" field")
	}
	return out, nil
}
