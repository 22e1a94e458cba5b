package tools

import (
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Layouts for the dashboard date pickers and the sqlite timestamps.
const (
	LayoutInput = "2006-01-02T15:04"
	LayoutDB    = "2006-01-02 15:04:05"
)

// DefaultRange is the window used when a request carries no dates.
const DefaultRange = 8 * time.Hour

var privateBlocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"::1/128",
	"fc00::/7",
)

func mustParseCIDRs(blocks ...string) []*net.IPNet {
	nets := make([]*net.IPNet, 0, len(blocks))
	for _, block := range blocks {
		_, cidr, err := net.ParseCIDR(block)
		if err != nil {
			panic(err)
		}
		nets = append(nets, cidr)
	}
	return nets
}

// Prevent out-of-network requests to dashboard endpoints
func CheckInNetwork(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			http.Error(w, "Invalid request", http.StatusBadRequest)
			return
		}
		parsedIP := net.ParseIP(ip)
		if parsedIP == nil {
			http.Error(w, "Invalid IP address", http.StatusBadRequest)
			return
		}
		if !isLocalAddress(parsedIP) {
			logrus.Warnf("Rejected request from %s to %s", ip, r.URL.Path)
			http.Error(w, "Access denied", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isLocalAddress(ip net.IP) bool {
	for _, cidr := range privateBlocks {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// ParseStartAndEndDate reads the start and end form values, entered in loc,
// and formats them in UTC for comparison with the DB. Missing dates select the
// DefaultRange ending now; an unparsable date falls back to the same bound.
func ParseStartAndEndDate(r *http.Request, loc *time.Location, now time.Time) (string, string) {
	r.ParseForm()
	if loc == nil {
		loc = time.UTC
	}
	defaultStart := now.UTC().Add(-DefaultRange).Format(LayoutDB)
	defaultEnd := now.UTC().Format(LayoutDB)

	startDate := r.FormValue("start")
	endDate := r.FormValue("end")
	if startDate == "" || endDate == "" {
		return defaultStart, defaultEnd
	}
	return parseInputDate(startDate, loc, defaultStart), parseInputDate(endDate, loc, defaultEnd)
}

func parseInputDate(value string, loc *time.Location, fallback string) string {
	t, err := time.ParseInLocation(LayoutInput, value, loc)
	if err != nil {
		logrus.Warnf("Error parsing date %q: %v", value, err)
		return fallback
	}
	return t.UTC().Format(LayoutDB)
}

func StartAndEndDateToTime(startDate string, endDate string) (time.Time, time.Time, error) {
	start, err := time.Parse(LayoutDB, startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(LayoutDB, endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
