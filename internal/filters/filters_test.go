package filters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gridstatus/internal-analytics/internal/filters"
)

func TestNewContextDefaults(t *testing.T) {
	fc := filters.NewContext(filters.Params{})

	assert.False(t, fc.ExcludeInternal())
	assert.False(t, fc.ExcludeFreeTier())
	assert.False(t, fc.LegacyCombined())
	assert.Equal(t, "UTC", fc.Timezone())
}

func TestNewContextParsesFlags(t *testing.T) {
	fc := filters.NewContext(filters.Params{
		FilterInternal: "true",
		FilterFree:     "1",
		Timezone:       "America/New_York",
	})

	assert.True(t, fc.ExcludeInternal())
	assert.True(t, fc.ExcludeFreeTier())
	assert.Equal(t, "America/New_York", fc.Timezone())
}

func TestUnparseableBooleansAreFalse(t *testing.T) {
	fc := filters.NewContext(filters.Params{
		FilterInternal: "maybe",
		FilterFree:     "FALSE",
	})

	assert.False(t, fc.ExcludeInternal())
	assert.False(t, fc.ExcludeFreeTier())
}

func TestLegacyCombinedFlagOverridesBoth(t *testing.T) {
	t.Run("legacy true wins over explicit false", func(t *testing.T) {
		fc := filters.NewContext(filters.Params{
			FilterInternal:   "false",
			FilterFree:       "false",
			FilterGridstatus: "true",
		})
		assert.True(t, fc.ExcludeInternal())
		assert.True(t, fc.ExcludeFreeTier())
		assert.True(t, fc.LegacyCombined())
	})

	t.Run("legacy false wins over explicit true", func(t *testing.T) {
		fc := filters.NewContext(filters.Params{
			FilterInternal:   "true",
			FilterFree:       "true",
			FilterGridstatus: "false",
		})
		assert.False(t, fc.ExcludeInternal())
		assert.False(t, fc.ExcludeFreeTier())
	})
}

func TestTimezoneValidation(t *testing.T) {
	tests := []struct {
		name     string
		tz       string
		extra    []string
		expected string
	}{
		{"empty falls back to UTC", "", nil, "UTC"},
		{"allowed zone kept", "Europe/Berlin", nil, "Europe/Berlin"},
		{"unknown zone falls back", "Mars/Olympus_Mons", nil, "UTC"},
		{"valid but unlisted zone falls back", "Africa/Nairobi", nil, "UTC"},
		{"extra zone accepted", "Africa/Nairobi", []string{"Africa/Nairobi"}, "Africa/Nairobi"},
		{"injection-looking value falls back", "'; DROP TABLE", nil, "UTC"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fc := filters.NewContext(filters.Params{Timezone: tc.tz, ExtraTimezones: tc.extra})
			assert.Equal(t, tc.expected, fc.Timezone())
		})
	}
}

func TestLocationNeverNil(t *testing.T) {
	fc := filters.NewContext(filters.Params{Timezone: "America/Chicago"})
	loc := fc.Location()
	assert.NotNil(t, loc)
	assert.Equal(t, "America/Chicago", loc.String())
}
