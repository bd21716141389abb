package queries

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gridstatus/internal-analytics/internal/filters"
)

// Standard fragment token names shared by the dashboard templates.
const (
	FragmentExcludeInternal = "exclude_internal"
	FragmentExcludeFreeTier = "exclude_free_tier"
)

var safeDomain = regexp.MustCompile(`^[a-z0-9.-]+$`)

// FragmentBindings builds the standard exclusion-fragment bindings from a
// request's filter context. Predicates are evaluated at call time, never
// cached: two concurrent requests may carry different filter contexts.
//
// Requests using the legacy combined flag resolve both fragments from that
// single boolean (handled inside filters.Context), so templates written
// against the old flag keep their semantics without duplication.
func FragmentBindings(fc filters.Context, internalDomains []string) Bindings {
	return Bindings{
		FragmentExcludeInternal: Fragment(internalTrafficClause(internalDomains), fc.ExcludeInternal()),
		FragmentExcludeFreeTier: Fragment("AND person.properties.plan_tier != 'free'", fc.ExcludeFreeTier()),
	}
}

// internalTrafficClause builds the operator-traffic exclusion clause from
// the configured domain list. Domains come from operator config, not user
// input; anything outside the conservative character set is skipped.
func internalTrafficClause(domains []string) string {
	var parts []string
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || !safeDomain.MatchString(d) {
			continue
		}
		parts = append(parts, fmt.Sprintf("AND person.properties.email NOT LIKE '%%@%s'", d))
	}
	return strings.Join(parts, " ")
}
