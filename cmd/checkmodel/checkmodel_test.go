package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeKey(t *testing.T) {
	assert.Equal(t, []string{
		"Key starts with: None...",
		"Key length: 0",
		"Has whitespace: false",
	}, describeKey(""))

	assert.Equal(t, []string{
		"Key starts with: sk-proj-...",
		"Key length: 14",
		"Has whitespace: true",
	}, describeKey("sk-proj-12345 "))

	assert.Equal(t, "Key starts with: abc...", describeKey("abc")[0])
}
