package geoip

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/granada-os/personalization/internal/domain/location"
)

var apiKeyParamRegex = regexp.MustCompile(`apiKey=[^&\s"']+`)

// normalize maps the field names of the three providers onto one guess.
func normalize(raw []byte, now time.Time) (location.Guess, error) {
	var payload map[string]any
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return location.Guess{}, crerr.Wrap(err, "decode geoip payload")
	}

	if flag, _ := payload["error"].(bool); flag {
		reason := firstString(payload, "reason", "message")
		if strings.Contains(strings.ToLower(reason), "rate") {
			return location.Guess{}, fmt.Errorf("%w: %s", errGeoIPTransient, reason)
		}
		return location.Guess{}, crerr.Newf("provider rejected lookup: %s", reason)
	}
	if bogon, _ := payload["bogon"].(bool); bogon {
		return location.Guess{}, crerr.New("provider reports a bogon address")
	}

	country := resolveCountry(payload)
	if country == "" {
		return location.Guess{}, crerr.New("provider returned no country")
	}

	continent := firstString(payload, "continent_name", "continentName")
	if continent == "" {
		if v := firstString(payload, "continent"); v != "" {
			if name, ok := location.ContinentFromCode(v); ok {
				continent = name
			} else {
				continent = v
			}
		}
	}
	if continent == "" {
		if name, ok := location.ContinentFromCode(firstString(payload, "continent_code", "continentCode")); ok {
			continent = name
		}
	}

	return location.Guess{
		Country:    country,
		Region:     orUnknown(firstString(payload, "region", "regionName", "region_name", "state_prov")),
		City:       orUnknown(firstString(payload, "city", "cityName", "city_name")),
		Continent:  continent,
		Timezone:   firstNested(payload, []string{"timezone", "time_zone"}, "name"),
		Currency:   strings.ToUpper(firstNested(payload, []string{"currency"}, "code")),
		Language:   languageFrom(firstString(payload, "languages")),
		Confidence: location.ConfidenceIPAPI,
		Source:     location.SourceIPAPI,
		DetectedAt: now,
	}, nil
}

func resolveCountry(payload map[string]any) string {
	if name := firstString(payload, "country_name", "countryName"); name != "" {
		return name
	}
	code := ""
	for _, key := range []string{"country", "country_code", "countryCode", "country_code2"} {
		v := firstString(payload, key)
		if v == "" {
			continue
		}
		if len(v) != 2 {
			return v
		}
		if name, ok := location.CountryFromCode(v); ok {
			return name
		}
		if code == "" {
			code = strings.ToUpper(v)
		}
	}
	return code
}

func firstString(payload map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := payload[key].(string); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// firstNested reads keys as plain strings, or as objects holding field.
func firstNested(payload map[string]any, keys []string, field string) string {
	for _, key := range keys {
		switch v := payload[key].(type) {
		case string:
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		case map[string]any:
			if s := firstString(v, field); s != "" {
				return s
			}
		}
	}
	return ""
}

func languageFrom(languages string) string {
	first, _, _ := strings.Cut(languages, ",")
	if strings.TrimSpace(first) == "" {
		return ""
	}
	return location.BaseLanguage(first)
}

func orUnknown(v string) string {
	if v == "" {
		return "Unknown"
	}
	return v
}

func isCircuitFailure(err error) bool {
	return stderrors.Is(err, errGeoIPTransient)
}

func redactAPIKey(value string) string {
	return apiKeyParamRegex.ReplaceAllString(value, "apiKey=REDACTED")
}

func abbreviate(raw []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
