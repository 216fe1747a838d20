package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvPrefersLoadedMap(t *testing.T) {
	t.Setenv("AFF_TEST_KEY", "from-os")
	Env = map[string]string{"AFF_TEST_KEY": "from-file"}
	defer func() { Env = nil }()

	assert.Equal(t, "from-file", GetEnv("AFF_TEST_KEY", "def"))
}

func TestGetEnvFallsBackToOSAndDefault(t *testing.T) {
	Env = nil
	t.Setenv("AFF_TEST_OS", "os-value")

	assert.Equal(t, "os-value", GetEnv("AFF_TEST_OS", "def"))
	assert.Equal(t, "def", GetEnv("AFF_TEST_MISSING", "def"))
}

func TestGetEnvInt(t *testing.T) {
	Env = map[string]string{"N": "42", "BAD": "x"}
	defer func() { Env = nil }()

	assert.Equal(t, 42, GetEnvInt("N", 1))
	assert.Equal(t, 1, GetEnvInt("BAD", 1))
	assert.Equal(t, 7, GetEnvInt("NOPE", 7))
}

func TestGetEnvBool(t *testing.T) {
	Env = map[string]string{"A": "true", "B": "On", "C": "0"}
	defer func() { Env = nil }()

	assert.True(t, GetEnvBool("A", false))
	assert.True(t, GetEnvBool("B", false))
	assert.False(t, GetEnvBool("C", true))
	assert.True(t, GetEnvBool("D", true))
}
