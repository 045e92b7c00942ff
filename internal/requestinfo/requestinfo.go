// internal/requestinfo/requestinfo.go
//
// Per-request metadata for the serving access log: parsed user agent,
// best-effort geolocation, and the request timestamp.  The structs hold
// no handles or buffers, so they are safe to log or JSON-encode.

package requestinfo

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

// UA is the parsed User-Agent summary.  Device is one of "Desktop",
// "Mobile", "Tablet", or "Other".
type UA struct {
	Browser  string
	Version  string
	OS       string
	Device   string
	Platform string
	IsBot    bool
}

// Geo holds IP-based location hints; fields stay empty when the GeoIP
// database is absent or has no match.
type Geo struct {
	IP         net.IP
	CountryISO string
	City       string
}

// Info is stored on the request context by Enrich.
type Info struct {
	UA  UA
	Geo Geo
}

type ctxKey struct{}

// FromContext returns the Info stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// geoReader is optional; a nil reader degrades Geo to the bare IP.
var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2 database.  Call once from main; skipping
// the call (empty path in config) just disables location fields.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening geoip database: %w", err)
	}
	geoReader = r
	return nil
}

func parseUA(raw string) UA {
	u := surfer.Parse(raw)

	out := UA{
		Browser:  strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:  versionString(u.Browser.Version),
		OS:       strings.TrimPrefix(u.OS.Name.String(), "OS"),
		Platform: strings.TrimPrefix(u.OS.Platform.String(), "Platform"),
		IsBot:    u.IsBot(),
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		out.Device = "Desktop"
	case surfer.DeviceTablet:
		out.Device = "Tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		out.Device = "Mobile"
	default:
		out.Device = "Other"
	}
	return out
}

// versionString renders a dotted version, trimming trailing zeros:
// 17.0.0 → "17", 17.3.0 → "17.3".
func versionString(v surfer.Version) string {
	switch {
	case v.Major == 0 && v.Minor == 0 && v.Patch == 0:
		return ""
	case v.Patch != 0:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	case v.Minor != 0:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return strconv.Itoa(int(v.Major))
	}
}

func lookupGeo(ip net.IP) Geo {
	if geoReader == nil || ip == nil {
		return Geo{IP: ip}
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		return Geo{IP: ip}
	}
	return Geo{
		IP:         ip,
		CountryISO: rec.Country.IsoCode,
		City:       rec.City.Names["en"],
	}
}
