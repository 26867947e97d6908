// Package strings provides string list helpers used by configuration parsing.
package strings

import (
	"strings"
)

// SplitList splits v on sep, trims each element and drops empties and duplicates.
// Order of first occurrence is preserved. An empty input yields nil.
//
//	SplitList(" kafka-1:9092, kafka-2:9092 ,kafka-1:9092,", ",")
//	// []string{"kafka-1:9092", "kafka-2:9092"}
func SplitList(v, sep string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return DedupeAndTrim(strings.Split(v, sep))
}

// DedupeAndTrim removes duplicates and empty strings from values, trimming whitespace
// from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
