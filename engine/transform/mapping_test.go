package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheetbridge/sheetbridge/engine/core"
)

func intp(v int) *int { return &v }

func TestPriorityLabel(t *testing.T) {
	t.Run("Should map every band boundary to its label", func(t *testing.T) {
		cases := []struct {
			priority int
			label    string
		}{
			{0, "Lowest"},
			{199, "Lowest"},
			{200, "Very Low"},
			{399, "Very Low"},
			{400, "Lower"},
			{499, "Lower"},
			{500, "Medium"},
			{599, "Medium"},
			{600, "Higher"},
			{799, "Higher"},
			{800, "Very High"},
			{999, "Very High"},
			{1000, "Highest"},
		}
		for _, c := range cases {
			assert.Equal(t, c.label, PriorityLabel(intp(c.priority)), "priority %d", c.priority)
		}
	})
	t.Run("Should default absent priority to Medium", func(t *testing.T) {
		assert.Equal(t, "Medium", PriorityLabel(nil))
	})
	t.Run("Should clamp out-of-range values to the boundary labels", func(t *testing.T) {
		assert.Equal(t, "Lowest", PriorityLabel(intp(-50)))
		assert.Equal(t, "Highest", PriorityLabel(intp(4000)))
	})
}

func TestTaskStatus(t *testing.T) {
	t.Run("Should derive status from percent complete", func(t *testing.T) {
		assert.Equal(t, "Not Started", TaskStatus(nil))
		assert.Equal(t, "Not Started", TaskStatus(intp(0)))
		assert.Equal(t, "In Progress", TaskStatus(intp(1)))
		assert.Equal(t, "In Progress", TaskStatus(intp(99)))
		assert.Equal(t, "Complete", TaskStatus(intp(100)))
	})
}

func TestParseISODuration(t *testing.T) {
	t.Run("Should convert day hour minute and second components to hours", func(t *testing.T) {
		cases := []struct {
			in    string
			hours float64
		}{
			{"PT40H", 40},
			{"P5D", 40},
			{"PT480M", 8},
			{"PT36H", 36},
			{"P1DT4H", 12},
			{"PT1800S", 0.5},
		}
		for _, c := range cases {
			got, err := ParseISODuration(c.in)
			require.NoError(t, err, c.in)
			assert.InDelta(t, c.hours, got, 1e-9, c.in)
		}
	})
	t.Run("Should reject year month and week designators", func(t *testing.T) {
		for _, in := range []string{"P1Y", "P2M", "P3W"} {
			_, err := ParseISODuration(in)
			require.Error(t, err, in)
			assert.True(t, core.IsKind(err, core.KindData), in)
		}
	})
	t.Run("Should distinguish months from minutes by position", func(t *testing.T) {
		got, err := ParseISODuration("PT2M")
		require.NoError(t, err)
		assert.InDelta(t, 2.0/60, got, 1e-9)
		_, err = ParseISODuration("P2M")
		require.Error(t, err)
	})
	t.Run("Should handle negative durations", func(t *testing.T) {
		got, err := ParseISODuration("-PT8H")
		require.NoError(t, err)
		assert.InDelta(t, -8, got, 1e-9)
	})
	t.Run("Should reject malformed input", func(t *testing.T) {
		for _, in := range []string{"", "8h", "P", "PT", "PTH", "PT5X"} {
			_, err := ParseISODuration(in)
			assert.Error(t, err, "%q", in)
		}
	})
}

func TestDurationOutputs(t *testing.T) {
	t.Run("Should convert durations to decimal days on 8 hour workdays", func(t *testing.T) {
		days, err := DurationDays("PT40H")
		require.NoError(t, err)
		assert.Equal(t, 5.0, days)

		days, err = DurationDays("PT36H")
		require.NoError(t, err)
		assert.Equal(t, 4.5, days)

		days, err = DurationDays("PT480M")
		require.NoError(t, err)
		assert.Equal(t, 1.0, days)
	})
	t.Run("Should round days to two decimals", func(t *testing.T) {
		days, err := DurationDays("PT1H")
		require.NoError(t, err)
		assert.Equal(t, 0.13, days)
	})
	t.Run("Should render work as hours text without trailing zeros", func(t *testing.T) {
		text, err := DurationHoursText("PT40H")
		require.NoError(t, err)
		assert.Equal(t, "40h", text)

		text, err = DurationHoursText("PT90M")
		require.NoError(t, err)
		assert.Equal(t, "1.5h", text)
	})
}

func TestFormatDate(t *testing.T) {
	t.Run("Should format zoned datetimes as UTC dates", func(t *testing.T) {
		got, err := FormatDate("2024-03-15T23:30:00-05:00")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-16", got)
	})
	t.Run("Should treat zone-less datetimes as UTC", func(t *testing.T) {
		got, err := FormatDate("2024-03-15T10:00:00")
		require.NoError(t, err)
		assert.Equal(t, "2024-03-15", got)
	})
	t.Run("Should pass empty input through", func(t *testing.T) {
		got, err := FormatDate("")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
	t.Run("Should fail on unparseable input", func(t *testing.T) {
		_, err := FormatDate("15/03/2024")
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindData))
	})
}

func TestValueHelpers(t *testing.T) {
	t.Run("Should round currency to two decimals", func(t *testing.T) {
		assert.Equal(t, 75.5, CurrencyValue(75.499999))
		assert.Equal(t, 0.1, CurrencyValue(0.1))
	})
	t.Run("Should render max units as a percentage", func(t *testing.T) {
		assert.Equal(t, "100%", MaxUnitsPercent(1.0))
		assert.Equal(t, "50%", MaxUnitsPercent(0.5))
		assert.Equal(t, "150%", MaxUnitsPercent(1.5))
	})
}
