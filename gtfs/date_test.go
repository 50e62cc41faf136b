package gtfs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{name: "regular", input: "20240315", want: Date{2024, 3, 15}},
		{name: "leap day", input: "20240229", want: Date{2024, 2, 29}},
		{name: "non-leap feb 29", input: "20230229", wantErr: true},
		{name: "month 13", input: "20241301", wantErr: true},
		{name: "day zero", input: "20240100", wantErr: true},
		{name: "too short", input: "2024011", wantErr: true},
		{name: "dashed", input: "2024-01-01", wantErr: true},
		{name: "letters", input: "2024O101", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				var invalid *DateError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, tt.input, invalid.Value)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestDate_Next(t *testing.T) {
	assert.Equal(t, Date{2024, 1, 2}, Date{2024, 1, 1}.Next())
	assert.Equal(t, Date{2024, 2, 29}, Date{2024, 2, 28}.Next())
	assert.Equal(t, Date{2023, 3, 1}, Date{2023, 2, 28}.Next())
	assert.Equal(t, Date{2025, 1, 1}, Date{2024, 12, 31}.Next())
	assert.Equal(t, Date{2024, 5, 1}, Date{2024, 4, 30}.Next())
}

func TestDate_AddYears(t *testing.T) {
	assert.Equal(t, Date{2025, 3, 10}, Date{2024, 3, 10}.AddYears(1))
	assert.Equal(t, Date{2025, 2, 28}, Date{2024, 2, 29}.AddYears(1))
	assert.Equal(t, Date{2028, 2, 29}, Date{2024, 2, 29}.AddYears(4))
}

func TestDate_Weekday(t *testing.T) {
	assert.Equal(t, time.Monday, Date{2024, 1, 1}.Weekday())
	assert.Equal(t, time.Saturday, Date{2024, 1, 6}.Weekday())
	assert.Equal(t, time.Sunday, Date{2024, 1, 7}.Weekday())
}

func TestDate_Ordering(t *testing.T) {
	a, b := Date{2024, 1, 31}, Date{2024, 2, 1}
	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.False(t, a.After(a))
	assert.False(t, a.Before(a))
	assert.Less(t, a.String(), b.String())
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, Date{2025, 1, 1}.Compare(Date{2024, 12, 31}))
	assert.Equal(t, 0, a.Compare(Date{2024, 1, 31}))
}

func TestDate_IsValid(t *testing.T) {
	assert.True(t, Date{2024, 2, 29}.IsValid())
	assert.False(t, Date{2023, 2, 29}.IsValid())
	assert.False(t, Date{2024, 4, 31}.IsValid())
	assert.False(t, Date{2024, 13, 1}.IsValid())
	assert.False(t, Date{2024, 0, 10}.IsValid())
	assert.False(t, Date{2024, 1, 0}.IsValid())
	assert.True(t, Date{2000, 2, 29}.IsValid())
	assert.False(t, Date{1900, 2, 29}.IsValid())
}

func TestDate_TextRoundTrip(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("20241224")))
	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "20241224", string(text))
	assert.Error(t, d.UnmarshalText([]byte("christmas")))
}

func TestDateFromTime(t *testing.T) {
	tm := time.Date(2024, 7, 4, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, Date{2024, 7, 4}, DateFromTime(tm))
}
