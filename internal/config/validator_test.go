package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBackend(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateBackend("redis"))
	assert.NoError(t, v.ValidateBackend("memory"))
	assert.Error(t, v.ValidateBackend(""))
	assert.Error(t, v.ValidateBackend("dynamo"))
}

func TestValidateWorkspaceMode(t *testing.T) {
	v := NewValidator()

	for _, mode := range []string{"isolated", "global", "hybrid", ""} {
		assert.NoError(t, v.ValidateWorkspaceMode(mode))
	}
	assert.Error(t, v.ValidateWorkspaceMode("shared"))
}

func TestValidateEmbeddingProvider(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateEmbeddingProvider(EmbeddingConfig{Provider: "mock"}))
	assert.NoError(t, v.ValidateEmbeddingProvider(EmbeddingConfig{Provider: "none"}))
	assert.NoError(t, v.ValidateEmbeddingProvider(EmbeddingConfig{Provider: "openai", APIKey: "sk-test"}))
	assert.Error(t, v.ValidateEmbeddingProvider(EmbeddingConfig{Provider: "openai"}), "openai requires a key")
	assert.Error(t, v.ValidateEmbeddingProvider(EmbeddingConfig{Provider: "openai", APIKey: "bad"}))
	assert.Error(t, v.ValidateEmbeddingProvider(EmbeddingConfig{Provider: "cohere"}))
}

func TestValidateSchedule(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateSchedule(""))
	assert.NoError(t, v.ValidateSchedule("*/10 * * * *"))
	assert.NoError(t, v.ValidateSchedule("@hourly"))
	assert.Error(t, v.ValidateSchedule("every tuesday"))
}

func TestValidateSearchBounds(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateSearchBounds(SearchConfig{DefaultLimit: 100, MaxLimit: 1000, ScanLimit: 1000}))
	assert.Error(t, v.ValidateSearchBounds(SearchConfig{DefaultLimit: -1}))
	assert.Error(t, v.ValidateSearchBounds(SearchConfig{DefaultLimit: 200, MaxLimit: 100}))
}
