// Package filters carries per-request cross-cutting filter state.
//
// A Context is built once from the inbound request's query parameters and
// then passed by value to every query-rendering and fan-out call for that
// request. It is never mutated after construction, so concurrent
// sub-queries all observe one consistent snapshot.
package filters

import (
	"time"
)

// allowedTimezones is the built-in IANA zone allow-list. Zones outside it
// (and anything time.LoadLocation rejects) fall back to UTC rather than
// erroring, since the timezone parameter is client-controlled.
var allowedTimezones = []string{
	"UTC",
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"America/Phoenix",
	"America/Anchorage",
	"Pacific/Honolulu",
	"America/Toronto",
	"America/Mexico_City",
	"America/Sao_Paulo",
	"Europe/London",
	"Europe/Paris",
	"Europe/Berlin",
	"Europe/Madrid",
	"Europe/Amsterdam",
	"Asia/Tokyo",
	"Asia/Singapore",
	"Asia/Kolkata",
	"Australia/Sydney",
}

// Params are the raw query-string values a Context is built from.
type Params struct {
	FilterInternal   string // "filterInternal"
	FilterFree       string // "filterFree"
	FilterGridstatus string // legacy combined flag, overrides the two above
	Timezone         string // IANA zone name
	ExtraTimezones   []string
}

// Context is the immutable per-request filter state.
type Context struct {
	filterInternal bool
	filterFreeTier bool
	legacySet      bool
	legacyValue    bool
	timezone       string
}

// NewContext builds a Context from request parameters. Unparseable boolean
// values count as false; an invalid or missing timezone becomes UTC.
func NewContext(p Params) Context {
	fc := Context{
		filterInternal: parseBool(p.FilterInternal),
		filterFreeTier: parseBool(p.FilterFree),
		timezone:       validateTimezone(p.Timezone, p.ExtraTimezones),
	}
	if p.FilterGridstatus != "" {
		fc.legacySet = true
		fc.legacyValue = parseBool(p.FilterGridstatus)
	}
	return fc
}

// ExcludeInternal reports whether the operator's own traffic should be
// excluded. The legacy combined flag wins when supplied.
func (c Context) ExcludeInternal() bool {
	if c.legacySet {
		return c.legacyValue
	}
	return c.filterInternal
}

// ExcludeFreeTier reports whether free-plan accounts should be excluded.
// The legacy combined flag wins when supplied.
func (c Context) ExcludeFreeTier() bool {
	if c.legacySet {
		return c.legacyValue
	}
	return c.filterFreeTier
}

// LegacyCombined reports whether the request used the old single flag.
func (c Context) LegacyCombined() bool {
	return c.legacySet
}

// Timezone returns the validated IANA zone name, never empty.
func (c Context) Timezone() string {
	return c.timezone
}

// Location loads the validated zone. The allow-list guarantees this
// succeeds; UTC is returned on the off chance tzdata is missing a zone.
func (c Context) Location() *time.Location {
	loc, err := time.LoadLocation(c.timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseBool(s string) bool {
	switch s {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}

func validateTimezone(tz string, extra []string) string {
	if tz == "" {
		return "UTC"
	}
	allowed := false
	for _, zone := range allowedTimezones {
		if zone == tz {
			allowed = true
			break
		}
	}
	if !allowed {
		for _, zone := range extra {
			if zone == tz {
				allowed = true
				break
			}
		}
	}
	if !allowed {
		return "UTC"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "UTC"
	}
	return tz
}
