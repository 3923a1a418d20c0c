// api/enrich/geo.go
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const Unknown = "Unknown"

// Location is the best-effort result of an IP lookup. Coordinates are nil
// when the backend did not return a usable number.
type Location struct {
	Country   string   `json:"country"`
	City      string   `json:"city"`
	Region    string   `json:"region"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// GeoResolver maps an IP address to a location. Resolve never fails: lookup
// errors degrade to the all-Unknown location and are logged, not returned.
type GeoResolver interface {
	Resolve(ctx context.Context, ipAddress string) Location
}

// UnknownLocation is what failed lookups degrade to.
func UnknownLocation() Location {
	return Location{Country: Unknown, City: Unknown, Region: Unknown}
}

// IPAPIResolver resolves IPs against the ipapi.co JSON endpoint. Loopback and
// private addresses short-circuit to the configured local label without any
// network call; the label is "Local" by default and "Unknown" for deployments
// that never see real client addresses.
type IPAPIResolver struct {
	client     *http.Client
	baseURL    string
	localLabel string
	log        zerolog.Logger
}

// ipAPIResponse mirrors the ipapi.co payload. Coordinates come back as raw
// JSON because the service has been seen returning numbers, quoted numbers
// and null; a malformed value must coerce to nil, never error.
type ipAPIResponse struct {
	Error     bool            `json:"error"`
	Reason    string          `json:"reason"`
	Country   string          `json:"country_name"`
	City      string          `json:"city"`
	Region    string          `json:"region"`
	Latitude  json.RawMessage `json:"latitude"`
	Longitude json.RawMessage `json:"longitude"`
}

func NewIPAPIResolver(baseURL, localLabel string, timeout time.Duration, log zerolog.Logger) *IPAPIResolver {
	if localLabel == "" {
		localLabel = "Local"
	}
	return &IPAPIResolver{
		client:     &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		localLabel: localLabel,
		log:        log,
	}
}

func (r *IPAPIResolver) Resolve(ctx context.Context, ipAddress string) Location {
	if IsLocalAddress(ipAddress) {
		return Location{Country: r.localLabel, City: r.localLabel, Region: r.localLabel}
	}

	if net.ParseIP(ipAddress) == nil {
		r.log.Warn().Str("ip", ipAddress).Msg("geo lookup skipped: not a valid IP address")
		return UnknownLocation()
	}

	loc, err := r.lookup(ctx, ipAddress)
	if err != nil {
		r.log.Warn().Err(err).Str("ip", ipAddress).Msg("geo lookup failed")
		return UnknownLocation()
	}
	return loc
}

func (r *IPAPIResolver) lookup(ctx context.Context, ipAddress string) (Location, error) {
	url := fmt.Sprintf("%s/%s/json/", r.baseURL, ipAddress)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return Location{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("failed to query ipapi.co: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Location{}, fmt.Errorf("ipapi.co returned status %d", resp.StatusCode)
	}

	var result ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Location{}, fmt.Errorf("failed to decode ipapi.co response: %w", err)
	}
	if result.Error {
		return Location{}, fmt.Errorf("ipapi.co lookup failed: %s", result.Reason)
	}

	loc := UnknownLocation()
	if result.Country != "" {
		loc.Country = result.Country
	}
	if result.City != "" {
		loc.City = result.City
	}
	if result.Region != "" {
		loc.Region = result.Region
	}
	loc.Latitude = coerceFloat(result.Latitude)
	loc.Longitude = coerceFloat(result.Longitude)
	return loc, nil
}

// coerceFloat parses a raw JSON value as a float, accepting bare numbers and
// quoted numbers. Anything else (null, garbage, missing) becomes nil.
func coerceFloat(raw json.RawMessage) *float64 {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

// IsLocalAddress reports whether the address is loopback, private or
// link-local, i.e. something no geolocation backend can place.
func IsLocalAddress(ipAddress string) bool {
	if ipAddress == "localhost" {
		return true
	}
	ip := net.ParseIP(ipAddress)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified()
}

// StaticResolver returns a fixed location for every non-local address. It
// backs tests and deployments with no geolocation service configured.
type StaticResolver struct {
	Loc        Location
	LocalLabel string
}

func (s StaticResolver) Resolve(_ context.Context, ipAddress string) Location {
	if IsLocalAddress(ipAddress) {
		label := s.LocalLabel
		if label == "" {
			label = "Local"
		}
		return Location{Country: label, City: label, Region: label}
	}
	return s.Loc
}
