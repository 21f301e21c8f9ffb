package main

import (
	"bytes"
	"testing"

	"github.com/cyraxred/redblack/internal/stress"
	"github.com/stretchr/testify/assert"
)

func TestRunStress(t *testing.T) {
	logger, logs := testLogger()
	out := &bytes.Buffer{}
	err := runStress(out, logger, stress.Config{
		Trees: 2, Ops: 500, Keys: 100, Seed: 3, VerifyEvery: 100, Workers: 2}, false)
	assert.NoError(t, err)
	assert.Contains(t, logs.String(), "[INFO] all 2 trees passed 10 checks")
	assert.Contains(t, out.String(), "redblack:\n  version: 1\n")
	assert.Contains(t, out.String(), "stress:\n  trees: 2\n  operations: 500\n  keys: 100\n  seed: 3\n")
	assert.Contains(t, out.String(), "total_operations: 1000\n")
	assert.Contains(t, out.String(), "checks: 10\n")
	assert.Contains(t, out.String(), "status: ok\n")
}

func TestRunStressInvalid(t *testing.T) {
	logger, _ := testLogger()
	out := &bytes.Buffer{}
	err := runStress(out, logger, stress.Config{Trees: -1}, false)
	assert.Error(t, err)
	assert.Empty(t, out.String())
}
