package httpapi

import (
	"net/http"
	"net/netip"
	"strings"

	"github.com/granada-os/personalization/internal/domain/location"
)

// Header order is the trust order: the platform edge first, generic proxies last.
var (
	clientIPHeaders = []string{"Fly-Client-IP", "CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"}
	countryHeaders  = []string{"Fly-Client-Country", "CF-IPCountry", "X-Vercel-IP-Country", "X-AppEngine-Country", "CloudFront-Viewer-Country"}
)

// Country codes CDNs send when they could not place the client.
var placeholderCountryCodes = map[string]struct{}{"XX": {}, "T1": {}, "ZZ": {}}

// edgeHints is what the CDN in front of the service already knows about the caller.
type edgeHints struct {
	ClientIP    string
	CountryCode string
}

func readEdgeHints(r *http.Request) edgeHints {
	hints := edgeHints{}
	for _, name := range clientIPHeaders {
		if ip := parseHeaderIP(r.Header.Get(name)); ip != "" {
			hints.ClientIP = ip
			break
		}
	}
	if hints.ClientIP == "" {
		hints.ClientIP = parseHeaderIP(r.RemoteAddr)
	}

	for _, name := range countryHeaders {
		if code := parseCountryCode(r.Header.Get(name)); code != "" {
			hints.CountryCode = code
			break
		}
	}
	return hints
}

// applyTo lets the edge country replace a fallback or country-less guess. Real detections win.
func (e edgeHints) applyTo(guess location.Guess) location.Guess {
	replaceable := guess.Source == location.SourceFallback || guess.Country == location.UnknownCountry
	if !replaceable || e.CountryCode == "" {
		return guess
	}
	country, ok := location.CountryFromCode(e.CountryCode)
	if !ok {
		return guess
	}
	guess.Country = country
	guess.Region = "Edge detection"
	guess.Continent = location.ContinentOf(country)
	guess.Currency = location.CurrencyOf(country)
	return guess
}

// parseHeaderIP takes the left-most entry of a forwarded list, with or without a port.
func parseHeaderIP(raw string) string {
	value, _, _ := strings.Cut(raw, ",")
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if addrPort, err := netip.ParseAddrPort(value); err == nil {
		return addrPort.Addr().Unmap().String()
	}
	addr, err := netip.ParseAddr(strings.Trim(value, "[]"))
	if err != nil {
		return ""
	}
	return addr.Unmap().String()
}

func parseCountryCode(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return ""
	}
	if _, placeholder := placeholderCountryCodes[code]; placeholder {
		return ""
	}
	return code
}
