package sqltrace

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// keyValueDelimiter separates key=value pairs inside the comment body,
// matching the sqlcommenter format: https://google.github.io/sqlcommenter/spec/#format
const keyValueDelimiter = ","

// EncodeComment serializes key/value pairs into a SQL comment of the form
// " /*k1=v1,k2=v2*/". Keys are sorted so identical input always yields
// byte-identical output, which keeps statement-level caching effective and
// makes log output easy to inspect.
//
// Keys and values are percent-encoded, then any literal '%' is doubled to
// '%%' since SQL treats '%' as a keyword character. The encoding is fully
// reversible via [DecodeComment]. An empty map returns an empty string so
// untraced statements are never touched.
func EncodeComment(values map[string]string) string {
	if len(values) == 0 {
		return ""
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, commentQuote(k)+"="+commentQuote(values[k]))
	}

	return " /*" + strings.Join(pairs, keyValueDelimiter) + "*/"
}

// DecodeComment parses a comment body previously produced by [EncodeComment]
// back into its key/value pairs. The body is the text between the comment
// delimiters, without the surrounding "/*" and "*/".
//
// Malformed input returns an error rather than a partial result; callers in
// the notice-handling path treat any error as "not a traced query".
func DecodeComment(body string) (map[string]string, error) {
	values := make(map[string]string)
	for _, part := range strings.Split(body, keyValueDelimiter) {
		key, value, found := strings.Cut(part, "=")
		if !found {
			return nil, fmt.Errorf("sqltrace: comment entry %q is not a key=value pair", part)
		}

		key, err := commentUnquote(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("sqltrace: decode comment key: %w", err)
		}
		value, err = commentUnquote(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("sqltrace: decode comment value: %w", err)
		}

		values[key] = value
	}

	return values, nil
}

// commentQuote percent-encodes s and doubles every '%'.
//
// Percent-encoding alone would leave '%' in the output (e.g. "foo,bar"
// becomes "foo%2Cbar"), so the doubling step rewrites it to "foo%%2Cbar".
// Both ',' and '=' are always escaped, which is what makes the delimiter
// split in DecodeComment unambiguous. '*' and '/' are escaped too, so the
// body can never contain a "*/" sequence that would terminate the comment
// early.
func commentQuote(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "%", "%%")
}

// commentUnquote reverses commentQuote: '%%' back to '%', then
// percent-decode.
func commentUnquote(s string) (string, error) {
	return url.QueryUnescape(strings.ReplaceAll(s, "%%", "%"))
}
