package testutil

import "testing"

// Given, When, Then and And name subtests after scenario steps so `go test -run`
// output reads like the scenario. Steps run in order and share the parent's state.
func Given(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("Given "+desc, fn)
}

func When(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("When "+desc, fn)
}

func Then(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("Then "+desc, fn)
}

func And(t *testing.T, desc string, fn func(t *testing.T)) bool {
	t.Helper()
	return t.Run("And "+desc, fn)
}

// Steps fails t immediately when a step reports failure, so later steps do not run
// against broken state.
func Steps(t *testing.T, ok ...bool) {
	t.Helper()
	for _, passed := range ok {
		if !passed {
			t.FailNow()
		}
	}
}
