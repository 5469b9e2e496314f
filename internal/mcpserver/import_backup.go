package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

const maxBackupSize = 10 << 20 // 10 MB

var allowedMIME = map[string]bool{
	"application/json": true,
	"text/json":        true,
	"text/plain":       true,
}

func (s *Server) importBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := readSource(ctx, strings.TrimSpace(src))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(data) > maxBackupSize {
		return mcp.NewToolResultError(fmt.Sprintf("document too large: %d bytes (max %d)", len(data), maxBackupSize)), nil
	}

	rep, err := s.svc.ImportBackup(ctx, data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("import failed: %v", err)), nil
	}
	return jsonResult(rep), nil
}

// readSource resolves the tool argument to document bytes.
func readSource(ctx context.Context, src string) ([]byte, error) {
	switch {
	case strings.HasPrefix(src, "{"):
		return []byte(src), nil
	case strings.HasPrefix(src, "data:"):
		return decodeDataURI(src)
	default:
		return fetchHTTP(ctx, src)
	}
}

// decodeDataURI parses a data:[<mediatype>];base64,<data> URI.
func decodeDataURI(uri string) ([]byte, error) {
	rest := strings.TrimPrefix(uri, "data:")
	comma := strings.Index(rest, ",")
	if comma < 0 {
		return nil, fmt.Errorf("invalid data URI: missing comma separator")
	}
	meta, encoded := rest[:comma], rest[comma+1:]

	if !strings.Contains(meta, ";base64") {
		return nil, fmt.Errorf("only base64 data URIs are supported")
	}
	if mt := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]; mt != "" && !allowedMIME[mt] {
		return nil, fmt.Errorf("unsupported MIME type in data URI: %s", mt)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 data: %w", err)
		}
	}
	return data, nil
}

// fetchHTTP downloads a document from an http(s) URL, refusing loopback
// and cloud metadata hosts on the first hop and on every redirect.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported source: expected JSON, a data URI, or an http(s) URL")
	}
	if err := checkBlockedHost(parsed.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects (max 5)")
			}
			return checkBlockedHost(req.URL.Hostname())
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}
	if ct := strings.TrimSpace(strings.Split(resp.Header.Get("Content-Type"), ";")[0]); ct != "" && !allowedMIME[ct] {
		return nil, fmt.Errorf("unexpected content type %s", ct)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBackupSize+1))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}
	if len(data) > maxBackupSize {
		return nil, fmt.Errorf("document too large: exceeds %d bytes", maxBackupSize)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("downloaded document is not JSON")
	}
	return data, nil
}

// checkBlockedHost rejects loopback and cloud metadata addresses.
func checkBlockedHost(host string) error {
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host: %s", host)
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, lookupErr := net.LookupIP(host)
		if lookupErr != nil || len(ips) == 0 {
			return nil //nolint:nilerr // let http.Client handle DNS failures
		}
		ip = ips[0]
	}

	if ip.IsLoopback() {
		return fmt.Errorf("blocked host: loopback address %s", host)
	}
	// AWS/GCP/Azure metadata endpoint.
	if ip.Equal(net.ParseIP("169.254.169.254")) {
		return fmt.Errorf("blocked host: cloud metadata address %s", host)
	}
	return nil
}
