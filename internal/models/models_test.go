package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSpent_String(t *testing.T) {
	testCases := []struct {
		name     string
		value    TimeSpent
		expected string
	}{
		{name: "zero", value: 0, expected: "0"},
		{name: "whole minutes", value: 300, expected: "5"},
		{name: "minutes and seconds", value: 185, expected: "3:05"},
		{name: "under a minute", value: 42, expected: "0:42"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.value.String())
		})
	}
}

func TestParseTimeSpent(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected TimeSpent
		wantErr  bool
	}{
		{name: "empty is zero", input: "", expected: 0},
		{name: "minutes only", input: "12", expected: 720},
		{name: "minutes and seconds", input: "12:30", expected: 750},
		{name: "padded seconds", input: "0:05", expected: 5},
		{name: "seconds out of range", input: "1:60", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
		{name: "negative minutes", input: "-3", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimeSpent(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidTimeSpent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestTimeFromMinutes(t *testing.T) {
	assert.Equal(t, TimeSpent(0), TimeFromMinutes(0))
	assert.Equal(t, TimeSpent(0), TimeFromMinutes(-4))
	assert.Equal(t, TimeSpent(90), TimeFromMinutes(1.5))
	// 2.9999 minutes rounds up to a whole three minutes instead of "2:60"
	assert.Equal(t, "3", TimeFromMinutes(2.9999).String())
	assert.Equal(t, "35:30", TimeFromMinutes(35.5).String())
}

func TestTimeSpent_JSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		T TimeSpent `json:"t"`
	}{T: 125})
	require.NoError(t, err)
	assert.JSONEq(t, `{"t":"2:05"}`, string(payload))

	var decoded struct {
		T TimeSpent `json:"t"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"t":"7"}`), &decoded))
	assert.Equal(t, TimeSpent(420), decoded.T)
}

func TestResolveCategory(t *testing.T) {
	testCases := []struct {
		category string
		expected CategoryKind
	}{
		{"Bíblia", CategoryBible},
		{"  biblia ", CategoryBible},
		{"BÍBLIA", CategoryBible},
		{"bíblia", CategoryBible}, // decomposed accent
		{"Bible", CategoryGeneral},
		{"Romance", CategoryGeneral},
		{"", CategoryGeneral},
	}

	for _, tc := range testCases {
		t.Run(tc.category, func(t *testing.T) {
			assert.Equal(t, tc.expected, ResolveCategory(tc.category))
		})
	}
}

func TestParseBibleReference(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected BibleReference
		wantErr  bool
	}{
		{
			name:     "verse range",
			input:    "João 3:16-18",
			expected: BibleReference{Book: "João", Chapter: 3, VerseStart: 16, VerseEnd: 18},
		},
		{
			name:     "numbered book single verse",
			input:    "1 Coríntios 13:4",
			expected: BibleReference{Book: "1 Coríntios", Chapter: 13, VerseStart: 4, VerseEnd: 4},
		},
		{
			name:     "whole chapter",
			input:    "Salmos 23",
			expected: BibleReference{Book: "Salmos", Chapter: 23},
		},
		{name: "missing chapter", input: "Gênesis", wantErr: true},
		{name: "inverted range", input: "Gênesis 1:10-2", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseBibleReference(tc.input)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidBibleReference)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.input, got.String())
		})
	}
}

func TestDaysBetween(t *testing.T) {
	start := time.Date(2024, 1, 1, 22, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 10, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, 9, DaysBetween(end, start))
	assert.Equal(t, -9, DaysBetween(start, end))

	// crosses a year boundary
	assert.Equal(t, 2, DaysBetween(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)))
}

func TestDailyReadingRecord_SetDate(t *testing.T) {
	var r DailyReadingRecord
	r.SetDate(time.Date(2024, time.March, 7, 15, 4, 5, 0, time.UTC))
	assert.Equal(t, time.Date(2024, time.March, 7, 0, 0, 0, 0, time.UTC), r.Date)
	assert.Equal(t, 7, r.Day)
	assert.Equal(t, "março", r.MonthLabel)
}
