// Package shareurl builds and parses the share link forms of a build.
package shareurl

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

// Share link forms:
//
//	/build/<token>   Scheme B path token
//	/build?<query>   Scheme A query form
//	/b/<code>        short link, code = Base64URL(query)
const (
	BuildPrefix = "/build/"
	QueryPrefix = "/build?"
	ShortPrefix = "/b/"
)

var (
	pathTokenRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	shortCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]*$`)
	buildLinkRe = regexp.MustCompile(`/build/(?P<token>[A-Za-z0-9_.-]+)`)
)

// BuildPath returns the share path for a Scheme B token.
func BuildPath(token string) string {
	return BuildPrefix + token
}

// ParseBuildPath returns the token of a /build/<token> path. A full URL is accepted.
func ParseBuildPath(path string) (string, error) {
	i := strings.Index(path, BuildPrefix)
	if i < 0 {
		return "", fmt.Errorf("not a build link: %q", path)
	}
	token := path[i+len(BuildPrefix):]
	if j := strings.IndexAny(token, "?#"); j >= 0 {
		token = token[:j]
	}
	token = strings.TrimSuffix(token, "/")
	if !pathTokenRe.MatchString(token) {
		return "", fmt.Errorf("invalid build token %q", token)
	}
	return token, nil
}

// QueryPath returns the /build?<query> form of a Scheme A query.
func QueryPath(query string) string {
	return QueryPrefix + strings.TrimPrefix(query, "?")
}

// CompressQuery turns a query string into a short-link code. It knows nothing about
// the fields inside the query.
func CompressQuery(query string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strings.TrimPrefix(query, "?")))
}

// DecompressQuery reverses CompressQuery.
func DecompressQuery(code string) (string, error) {
	if !shortCodeRe.MatchString(code) {
		return "", fmt.Errorf("invalid short link code %q", code)
	}
	b, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil {
		return "", fmt.Errorf("invalid short link code %q: %w", code, err)
	}
	return string(b), nil
}

// ShortLink returns the /b/<code> form of a query string.
func ShortLink(query string) string {
	return ShortPrefix + CompressQuery(query)
}

// ExpandShortLink turns /b/<code> back into /build?<query>.
func ExpandShortLink(path string) (string, error) {
	i := strings.Index(path, ShortPrefix)
	if i < 0 {
		return "", fmt.Errorf("not a short link: %q", path)
	}
	query, err := DecompressQuery(strings.TrimSuffix(path[i+len(ShortPrefix):], "/"))
	if err != nil {
		return "", err
	}
	return QueryPath(query), nil
}

// ExtractTokens finds all /build/<token> links in the given text and returns their
// tokens deduplicated, in encounter order.
func ExtractTokens(content string) []string {
	matches := buildLinkRe.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	idx := buildLinkRe.SubexpIndex("token")
	seen := map[string]struct{}{}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if idx <= 0 || idx >= len(m) {
			continue
		}
		// a sentence ending right after a link leaves a trailing dot
		k := strings.TrimRight(m[idx], ".")
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
