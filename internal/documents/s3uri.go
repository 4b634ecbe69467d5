package documents

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnsupportedURI = errors.New("unsupported URL format")

// ParseS3URI accepts s3://bucket/key and virtual-hosted
// https://bucket.s3.amazonaws.com/key references. The key comes back
// URL-unquoted, with '+' read as a space the way S3 event keys are encoded.
// A '%' that does not start a valid escape is kept as is.
func ParseS3URI(raw string) (bucket, key string, err error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(raw), "://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedURI, raw)
	}
	host, path, _ := strings.Cut(rest, "/")
	path, _, _ = strings.Cut(path, "#")
	path, _, _ = strings.Cut(path, "?")

	switch strings.ToLower(scheme) {
	case "s3":
		bucket = host
	case "https":
		bucket, _, _ = strings.Cut(host, ".")
	default:
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedURI, raw)
	}

	key = unquotePlus(strings.TrimLeft(path, "/"))
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q has no bucket or key", ErrUnsupportedURI, raw)
	}
	return bucket, key, nil
}

func unquotePlus(s string) string {
	s = strings.ReplaceAll(s, "+", " ")
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case 'a' <= c && c <= 'f':
		return true
	case 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	}
	return c - '0'
}

func IsPDF(key string) bool {
	return strings.HasSuffix(key, ".pdf")
}
