package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinancialYearOf(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{
			name: "july starts a new financial year",
			date: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
			want: "2024/2025",
		},
		{
			name: "june belongs to the prior financial year",
			date: time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC),
			want: "2023/2024",
		},
		{
			name: "mid-year december",
			date: time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC),
			want: "2024/2025",
		},
		{
			name: "january falls in the year that started the previous july",
			date: time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC),
			want: "2024/2025",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FinancialYearOf(tt.date).String())
		})
	}
}

func TestFinancialYearBounds(t *testing.T) {
	fy := FinancialYear{StartYear: 2024}

	assert.Equal(t, time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC), fy.Start())
	assert.Equal(t, time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC), fy.End())
	assert.Equal(t, "2023/2024", fy.Prev().String())
}

func TestParseFinancialYear(t *testing.T) {
	fy, err := ParseFinancialYear("2024/2025")
	require.NoError(t, err)
	assert.Equal(t, 2024, fy.StartYear)

	_, err = ParseFinancialYear("2024/2026")
	assert.Error(t, err)

	_, err = ParseFinancialYear("garbage")
	assert.Error(t, err)
}
