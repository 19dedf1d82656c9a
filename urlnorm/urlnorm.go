// Package urlnorm canonicalizes URLs and derives the dedup key used as an
// item's identity.
package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
)

// ErrInvalidURL is returned when the input is not an absolute URL.
var ErrInvalidURL = errors.New("invalid URL")

// trackingParams are campaign parameters that never change the document.
var trackingParams = map[string]bool{
	"utm_source":   true,
	"utm_medium":   true,
	"utm_campaign": true,
	"utm_term":     true,
	"utm_content":  true,
}

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
	"ws":    "80",
	"wss":   "443",
	"ftp":   "21",
}

type queryParam struct {
	key   string
	value string
}

// Parse parses rawURL and checks that it is absolute.
func Parse(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, rawURL)
	}
	return u, nil
}

// Normalize returns the canonical form of rawURL.
//
// Tracking parameters are removed, the remaining query parameters are sorted
// by key (stable, so repeated keys keep their relative order) and the fragment
// is dropped. Dot segments in the path are resolved. Finally one trailing slash is stripped from the serialized form
// unless the path is the bare root. Because the slash rule looks at the whole
// serialized string, a URL that still carries a query keeps its slash.
func Normalize(rawURL string) (string, error) {
	u, err := Parse(rawURL)
	if err != nil {
		return "", err
	}

	u.Host = canonicalHost(u.Scheme, u.Host)
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
		u.RawPath = ""
	}
	u.Path = removeDotSegments(u.Path)
	u.RawPath = removeDotSegments(u.RawPath)

	params := splitQuery(u.RawQuery)
	kept := params[:0]
	for _, p := range params {
		if !trackingParams[p.key] {
			kept = append(kept, p)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].key < kept[j].key })
	u.RawQuery = encodeQuery(kept)
	u.ForceQuery = false

	u.Fragment = ""
	u.RawFragment = ""

	s := u.String()
	if u.Path != "/" && strings.HasSuffix(s, "/") {
		s = strings.TrimSuffix(s, "/")
	}
	return s, nil
}

// Hash returns the lowercase hex SHA-256 of the canonical form of rawURL.
func Hash(rawURL string) (string, error) {
	canonical, err := Normalize(rawURL)
	if err != nil {
		return "", err
	}
	return HashCanonical(canonical), nil
}

// HashCanonical hashes an already normalized URL.
func HashCanonical(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// removeDotSegments resolves "." and ".." segments of an absolute path. A
// path ending in a dot segment keeps its trailing slash, and ".." never
// climbs above the root.
func removeDotSegments(p string) string {
	if !strings.HasPrefix(p, "/") || !strings.Contains(p, ".") {
		return p
	}
	segs := strings.Split(p[1:], "/")
	out := make([]string, 0, len(segs))
	trailing := false
	for _, seg := range segs {
		trailing = false
		switch seg {
		case ".":
			trailing = true
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
			trailing = true
		default:
			out = append(out, seg)
		}
	}
	if trailing && len(out) > 0 {
		out = append(out, "")
	}
	return "/" + strings.Join(out, "/")
}

func canonicalHost(scheme, host string) string {
	host = strings.ToLower(host)
	h, port, err := net.SplitHostPort(host)
	if err != nil {
		return host
	}
	if defaultPorts[scheme] == port {
		if strings.Contains(h, ":") {
			return "[" + h + "]"
		}
		return h
	}
	return host
}

// splitQuery decodes a raw query into ordered pairs. Malformed escapes are
// kept verbatim rather than rejected.
func splitQuery(raw string) []queryParam {
	if raw == "" {
		return nil
	}
	var params []queryParam
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		params = append(params, queryParam{key: unescape(key), value: unescape(value)})
	}
	return params
}

func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

func encodeQuery(params []queryParam) string {
	if len(params) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}
