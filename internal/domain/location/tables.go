package location

import (
	"fmt"
	"strings"
	_ "time/tzdata"

	"golang.org/x/text/language"
)

var offsetCountries = map[string][]string{
	"UTC+3":    {"Kenya", "Uganda", "Tanzania", "Ethiopia"},
	"UTC+2":    {"South Africa", "Egypt", "Botswana"},
	"UTC+1":    {"Nigeria", "Ghana", "Morocco"},
	"UTC+0":    {"United Kingdom", "Ireland", "Portugal"},
	"UTC-5":    {"United States", "Canada", "Mexico"},
	"UTC+8":    {"China", "Singapore", "Malaysia"},
	"UTC+9":    {"Japan", "South Korea"},
	"UTC+5:30": {"India", "Sri Lanka"},
}

var languageCountries = map[string]string{
	"en-US": "United States",
	"en-GB": "United Kingdom",
	"en-CA": "Canada",
	"fr":    "France",
	"de":    "Germany",
	"es":    "Spain",
	"pt":    "Portugal",
	"sw":    "Kenya",
	"am":    "Ethiopia",
	"ar":    "Egypt",
	"zh":    "China",
	"ja":    "Japan",
	"ko":    "South Korea",
	"hi":    "India",
}

var continents = map[string]string{
	"Kenya": "Africa", "Uganda": "Africa", "Tanzania": "Africa", "Ethiopia": "Africa",
	"Nigeria": "Africa", "Ghana": "Africa", "South Africa": "Africa", "Egypt": "Africa",
	"Botswana": "Africa", "Morocco": "Africa",
	"United States": "North America", "Canada": "North America", "Mexico": "North America",
	"United Kingdom": "Europe", "Germany": "Europe", "France": "Europe", "Spain": "Europe",
	"Ireland": "Europe", "Portugal": "Europe", "Netherlands": "Europe", "Russia": "Europe", "Ukraine": "Europe",
	"China": "Asia", "Japan": "Asia", "India": "Asia", "South Korea": "Asia",
	"Singapore": "Asia", "Malaysia": "Asia", "Sri Lanka": "Asia",
}

var currencies = map[string]string{
	"Kenya": "KES", "Uganda": "UGX", "Tanzania": "TZS", "Ethiopia": "ETB",
	"Nigeria": "NGN", "Ghana": "GHS", "South Africa": "ZAR", "Egypt": "EGP",
	"Botswana": "BWP", "Morocco": "MAD",
	"United States": "USD", "Canada": "CAD", "Mexico": "MXN",
	"United Kingdom": "GBP", "Germany": "EUR", "France": "EUR", "Spain": "EUR",
	"Ireland": "EUR", "Portugal": "EUR", "Netherlands": "EUR", "Russia": "RUB", "Ukraine": "UAH",
	"China": "CNY", "Japan": "JPY", "India": "INR", "South Korea": "KRW",
	"Singapore": "SGD", "Malaysia": "MYR", "Sri Lanka": "LKR",
}

var countryCodes = map[string]string{
	"KE": "Kenya", "UG": "Uganda", "TZ": "Tanzania", "ET": "Ethiopia",
	"NG": "Nigeria", "GH": "Ghana", "ZA": "South Africa", "EG": "Egypt",
	"BW": "Botswana", "MA": "Morocco",
	"US": "United States", "CA": "Canada", "MX": "Mexico",
	"GB": "United Kingdom", "UK": "United Kingdom", "DE": "Germany", "FR": "France", "ES": "Spain",
	"IE": "Ireland", "PT": "Portugal", "NL": "Netherlands", "RU": "Russia", "UA": "Ukraine",
	"CN": "China", "JP": "Japan", "IN": "India", "KR": "South Korea",
	"SG": "Singapore", "MY": "Malaysia", "LK": "Sri Lanka",
}

var continentCodes = map[string]string{
	"AF": "Africa",
	"AN": "Antarctica",
	"AS": "Asia",
	"EU": "Europe",
	"NA": "North America",
	"OC": "Oceania",
	"SA": "South America",
}

// ProbeTarget is a well-known host whose round trip hints at the client's region.
type ProbeTarget struct {
	Name      string
	URL       string
	Region    string
	Countries []string
}

var probeTargets = []ProbeTarget{
	{Name: "google", URL: "https://www.google.com", Region: "Global", Countries: []string{"United States"}},
	{Name: "baidu", URL: "https://www.baidu.com", Region: "Asia", Countries: []string{"China", "Japan", "South Korea"}},
	{Name: "yandex", URL: "https://yandex.com", Region: "Europe/Russia", Countries: []string{"Russia", "Ukraine"}},
}

func ProbeTargets() []ProbeTarget {
	out := make([]ProbeTarget, len(probeTargets))
	copy(out, probeTargets)
	return out
}

func ProbeTargetByName(name string) (ProbeTarget, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range probeTargets {
		if t.Name == name {
			return t, true
		}
	}
	return ProbeTarget{}, false
}

// FormatUTCOffset renders minutes east of UTC as UTC+3, UTC-5, UTC+5:30 or UTC+0.
func FormatUTCOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	hours, rest := minutes/60, minutes%60
	if rest == 0 {
		return fmt.Sprintf("UTC%s%d", sign, hours)
	}
	return fmt.Sprintf("UTC%s%d:%02d", sign, hours, rest)
}

// CountryForOffset returns the first candidate country for an offset label.
func CountryForOffset(label string) (string, bool) {
	candidates, ok := offsetCountries[label]
	if !ok || len(candidates) == 0 {
		return "", false
	}
	return candidates[0], true
}

// CountryForLanguage matches the exact tag first, then its base language.
func CountryForLanguage(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return "", false
	}
	if country, ok := languageCountries[tag]; ok {
		return country, true
	}

	parsed, err := language.Parse(tag)
	if err != nil {
		base, _, _ := strings.Cut(tag, "-")
		country, ok := languageCountries[strings.ToLower(base)]
		return country, ok
	}
	if country, ok := languageCountries[parsed.String()]; ok {
		return country, true
	}
	base, _ := parsed.Base()
	country, ok := languageCountries[base.String()]
	return country, ok
}

// BaseLanguage returns the primary subtag, e.g. "sw" for "sw-KE". Empty input yields "en".
func BaseLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return DefaultLanguage
	}
	if parsed, err := language.Parse(tag); err == nil {
		base, _ := parsed.Base()
		return base.String()
	}
	base, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(base)
}

func ContinentOf(country string) string {
	if c, ok := continents[country]; ok {
		return c
	}
	return UnknownContinent
}

func CurrencyOf(country string) string {
	if c, ok := currencies[country]; ok {
		return c
	}
	return "USD"
}

// CountryFromCode maps an ISO 3166 alpha-2 code to the display name used across the tables.
func CountryFromCode(code string) (string, bool) {
	name, ok := countryCodes[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}

// CodeForCountry is the reverse of CountryFromCode.
func CodeForCountry(country string) (string, bool) {
	for code, name := range countryCodes {
		if name == country && code != "UK" {
			return code, true
		}
	}
	return "", false
}

func ContinentFromCode(code string) (string, bool) {
	name, ok := continentCodes[strings.ToUpper(strings.TrimSpace(code))]
	return name, ok
}
