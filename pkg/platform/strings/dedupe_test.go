package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "empty", input: "", expected: nil},
		{name: "blank", input: "  ", expected: nil},
		{name: "single", input: "localhost:9092", expected: []string{"localhost:9092"}},
		{
			name:     "trims and dedupes",
			input:    " kafka-1:9092, kafka-2:9092 ,kafka-1:9092,",
			expected: []string{"kafka-1:9092", "kafka-2:9092"},
		},
		{name: "only separators", input: ",,,", expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, ","))
		})
	}
}

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{
			name:     "removes duplicates preserving order",
			input:    []string{"https://a.example", "https://b.example", "https://a.example"},
			expected: []string{"https://a.example", "https://b.example"},
		},
		{
			name:     "case sensitive",
			input:    []string{"Ash", "ash"},
			expected: []string{"Ash", "ash"},
		},
		{
			name:     "combined: trim, dedupe, remove empty",
			input:    []string{"  foo ", "bar", "foo", "", "  ", "bar"},
			expected: []string{"foo", "bar"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}
