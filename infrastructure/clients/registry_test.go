package clients_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"media-publisher/infrastructure/clients"
	"media-publisher/infrastructure/clients/tiktok"
)

func TestRegistryLookupIsCaseInsensitive(t *testing.T) {
	adapter := tiktok.NewClient(tiktok.Config{ClientID: "k"}, nil)
	registry := clients.NewRegistry(adapter)

	got, err := registry.Get("TikTok")
	require.NoError(t, err)
	assert.Equal(t, "tiktok", got.Name())
}

func TestRegistryRejectsUnknownPlatform(t *testing.T) {
	registry := clients.NewRegistry(tiktok.NewClient(tiktok.Config{}, nil))

	_, err := registry.Get("myspace")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tiktok")
}
