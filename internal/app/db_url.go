package app

import (
	"net/url"
	"strings"
)

const preparedBinaryResultParam = "disable_prepared_binary_result"

// postgresTarget is the resolved connection string plus the pieces worth logging.
type postgresTarget struct {
	DSN  string
	Name string
	Host string
}

// resolvePostgresTarget accepts both URL and keyword/value connection strings.
// Only URL strings get the prepared binary result flag; keyword strings pass through.
func resolvePostgresTarget(raw string, disablePreparedBinaryResult bool) postgresTarget {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil || parsed.Scheme == "" {
		return postgresTarget{DSN: raw, Name: keywordValue(raw, "dbname"), Host: keywordValue(raw, "host")}
	}

	if disablePreparedBinaryResult {
		query := parsed.Query()
		if query.Get(preparedBinaryResultParam) == "" {
			query.Set(preparedBinaryResultParam, "yes")
			parsed.RawQuery = query.Encode()
		}
	}

	return postgresTarget{
		DSN:  parsed.String(),
		Name: strings.TrimSpace(strings.TrimPrefix(parsed.Path, "/")),
		Host: parsed.Host,
	}
}

func keywordValue(dsn, key string) string {
	prefix := key + "="
	for _, token := range strings.Fields(dsn) {
		if value, ok := strings.CutPrefix(token, prefix); ok {
			return strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return ""
}
