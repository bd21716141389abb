package queries_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridstatus/internal-analytics/internal/filters"
	"github.com/gridstatus/internal-analytics/internal/queries"
)

func TestRenderSubstitutesAllTokens(t *testing.T) {
	text := "SELECT * FROM events WHERE ts >= toDate('{{from_date}}') LIMIT {{limit}}"
	rendered, err := queries.Render(text, queries.Bindings{
		"from_date": queries.Date(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),
		"limit":     queries.Int(50),
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM events WHERE ts >= toDate('2026-08-01') LIMIT 50", rendered)
}

func TestRenderFailsOnAnyUnboundToken(t *testing.T) {
	text := "SELECT {{a}}, {{b}}, {{c}} FROM x WHERE {{a}} > 0"

	_, err := queries.Render(text, queries.Bindings{"b": queries.Int(1)})
	require.Error(t, err)

	var unbound *queries.UnboundPlaceholderError
	require.True(t, errors.As(err, &unbound))
	// Every unresolved token is listed once, no partial render.
	assert.Equal(t, []string{"a", "c"}, unbound.Tokens)
}

func TestRenderIsDeterministic(t *testing.T) {
	text := "SELECT 1 {{frag}} LIMIT {{limit}}"
	b := queries.Bindings{
		"frag":  queries.Fragment("AND x = 1", true),
		"limit": queries.Int(10),
	}

	first, err := queries.Render(text, b)
	require.NoError(t, err)
	second, err := queries.Render(text, b)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDisabledFragmentRendersEmpty(t *testing.T) {
	rendered, err := queries.Render("SELECT 1 {{frag}}", queries.Bindings{
		"frag": queries.Fragment("AND hidden = 1", false),
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1 ", rendered)
}

func TestEnumRejectsValuesOutsideAllowedSet(t *testing.T) {
	_, err := queries.Render("ORDER BY x {{dir}}", queries.Bindings{
		"dir": queries.Enum("DESC; DROP TABLE users", "ASC", "DESC"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in allowed set")
}

func TestExecutorPlaceholdersPassThrough(t *testing.T) {
	text := "WHERE path = {path} AND ts >= toDate('{{from_date}}')"
	rendered, err := queries.Render(text, queries.Bindings{
		"from_date": queries.Date(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)
	// Single-brace tokens are bound server-side, never spliced here.
	assert.Contains(t, rendered, "{path}")
}

func TestFragmentBindingsFollowFilterContext(t *testing.T) {
	domains := []string{"gridstatus.io"}

	t.Run("disabled filters render empty fragments", func(t *testing.T) {
		fc := filters.NewContext(filters.Params{})
		rendered, err := queries.Render("SELECT 1 {{exclude_internal}}{{exclude_free_tier}}",
			queries.FragmentBindings(fc, domains))
		require.NoError(t, err)
		assert.Equal(t, "SELECT 1 ", rendered)
	})

	t.Run("enabled filters append exclusion clauses", func(t *testing.T) {
		fc := filters.NewContext(filters.Params{FilterInternal: "true", FilterFree: "true"})
		rendered, err := queries.Render("SELECT 1 {{exclude_internal}} {{exclude_free_tier}}",
			queries.FragmentBindings(fc, domains))
		require.NoError(t, err)
		assert.Contains(t, rendered, "NOT LIKE '%@gridstatus.io'")
		assert.Contains(t, rendered, "plan_tier != 'free'")
	})

	t.Run("legacy flag drives both fragments", func(t *testing.T) {
		fc := filters.NewContext(filters.Params{FilterGridstatus: "true"})
		rendered, err := queries.Render("{{exclude_internal}} {{exclude_free_tier}}",
			queries.FragmentBindings(fc, domains))
		require.NoError(t, err)
		assert.Contains(t, rendered, "NOT LIKE '%@gridstatus.io'")
		assert.Contains(t, rendered, "plan_tier != 'free'")
	})

	t.Run("suspicious domains are skipped", func(t *testing.T) {
		fc := filters.NewContext(filters.Params{FilterInternal: "true"})
		rendered, err := queries.Render("{{exclude_internal}}{{exclude_free_tier}}",
			queries.FragmentBindings(fc, []string{"bad' OR '1'='1"}))
		require.NoError(t, err)
		assert.Equal(t, "", rendered)
	})
}

func TestEmbeddedTemplatesRenderWithCompleteBindings(t *testing.T) {
	fc := filters.NewContext(filters.Params{FilterInternal: "true", FilterFree: "true"})
	fragments := queries.FragmentBindings(fc, []string{"gridstatus.io"})
	day := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)

	complete := map[string]queries.Bindings{
		"page_stats": fragments.Merge(queries.Bindings{
			"from_date": queries.Date(day),
			"to_date":   queries.Date(day),
		}),
		"page_timeseries": fragments.Merge(queries.Bindings{
			"from_date":     queries.Date(day),
			"interval_days": queries.Int(1),
		}),
		"trending_referrers": fragments.Merge(queries.Bindings{
			"from_date": queries.Date(day.AddDate(0, 0, -30)),
			"to_date":   queries.Date(day),
			"limit":     queries.Int(100),
		}),
		"active_users": fragments.Merge(queries.Bindings{
			"interval_days": queries.Int(30),
			"limit":         queries.Int(50),
			"sort_order":    queries.Enum("DESC", "ASC", "DESC"),
		}),
	}

	for name, bindings := range complete {
		t.Run(name, func(t *testing.T) {
			rendered, err := queries.RenderNamed(name, bindings)
			require.NoError(t, err)
			assert.NotContains(t, rendered, "{{")

			// Omitting any single binding must fail, never fall back.
			for omitted := range bindings {
				partial := make(queries.Bindings, len(bindings)-1)
				for token, binding := range bindings {
					if token != omitted {
						partial[token] = binding
					}
				}
				_, err := queries.RenderNamed(name, partial)
				var unbound *queries.UnboundPlaceholderError
				require.ErrorAs(t, err, &unbound, "omitting %s should fail", omitted)
				assert.Contains(t, unbound.Tokens, omitted)
			}
		})
	}
}

func TestGetUnknownTemplate(t *testing.T) {
	_, err := queries.Get("no_such_template")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown query template")
}
