package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"media-publisher/infrastructure/cache"
)

// TestNewCredentialCache tests the creation of a new CredentialCache
func TestNewCredentialCache(t *testing.T) {
	// We can't do much more without a Redis server behind the client
	credentialCache := cache.NewCredentialCache(nil)
	assert.NotNil(t, credentialCache)
}

func TestNewAuthTaskStore(t *testing.T) {
	taskStore := cache.NewAuthTaskStore(nil)
	assert.NotNil(t, taskStore)
}
