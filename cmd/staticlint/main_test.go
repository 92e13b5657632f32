package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func names(t *testing.T, cfg ConfigData) map[string]bool {
	t.Helper()
	result := map[string]bool{}
	for _, a := range analyzers(cfg) {
		assert.False(t, result[a.Name], "analyzer %s listed twice", a.Name)
		result[a.Name] = true
	}
	return result
}

func TestAnalyzersAlwaysIncludeModuleChecks(t *testing.T) {
	got := names(t, ConfigData{Staticcheck: []string{"SA1000"}})

	for _, name := range []string{"noexit", "envelopeonly", "ineffassign", "nilerr", "printf", "SA1000"} {
		assert.True(t, got[name], name)
	}
	assert.False(t, got["SA4006"])
}

func TestEmptyConfigEnablesEverySA(t *testing.T) {
	got := names(t, ConfigData{})

	assert.True(t, got["SA1000"])
	assert.True(t, got["SA4006"])
	for name := range got {
		assert.NotEqual(t, "ST1000", name)
	}
}
