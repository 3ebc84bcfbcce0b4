// ABOUTME: Tests for the prompt catalogue listing and rendering.
// ABOUTME: Covers required argument enforcement and conditional template branches.

package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	c := NewCatalog()
	prompts := c.List()
	require.Len(t, prompts, 3)
	// Sorted by name.
	assert.Equal(t, "create_compose_screen", prompts[0].Name)
	assert.Equal(t, "generate_mvvm_viewmodel", prompts[1].Name)
	assert.Equal(t, "setup_room_database", prompts[2].Name)
	for _, p := range prompts {
		assert.NotEmpty(t, p.Description)
	}
}

func TestGet(t *testing.T) {
	c := NewCatalog()

	t.Run("unknown prompt", func(t *testing.T) {
		_, err := c.Get("nope", nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("missing required argument", func(t *testing.T) {
		_, err := c.Get("generate_mvvm_viewmodel", map[string]string{})
		require.ErrorIs(t, err, ErrMissingArgument)
		assert.Contains(t, err.Error(), "feature_name")
	})

	t.Run("viewmodel default data source", func(t *testing.T) {
		msgs, err := c.Get("generate_mvvm_viewmodel", map[string]string{"feature_name": "ShoppingCart"})
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "user", msgs[0].Role)
		assert.Contains(t, msgs[0].Content.Text, "ShoppingCart")
		assert.Contains(t, msgs[0].Content.Text, "Repository pattern with network calls")
	})

	t.Run("viewmodel database source", func(t *testing.T) {
		msgs, err := c.Get("generate_mvvm_viewmodel", map[string]string{
			"feature_name": "Orders",
			"data_source":  "database",
		})
		require.NoError(t, err)
		assert.Contains(t, msgs[0].Content.Text, "Room")
	})

	t.Run("compose screen with navigation", func(t *testing.T) {
		msgs, err := c.Get("create_compose_screen", map[string]string{
			"screen_name":    "LoginScreen",
			"has_navigation": "true",
		})
		require.NoError(t, err)
		assert.Contains(t, msgs[0].Content.Text, "LoginScreen")
		assert.Contains(t, msgs[0].Content.Text, "Navigation setup")
	})

	t.Run("compose screen without navigation", func(t *testing.T) {
		msgs, err := c.Get("create_compose_screen", map[string]string{"screen_name": "LoginScreen"})
		require.NoError(t, err)
		assert.NotContains(t, msgs[0].Content.Text, "Navigation setup")
	})

	t.Run("room database entities", func(t *testing.T) {
		msgs, err := c.Get("setup_room_database", map[string]string{
			"database_name": "AppDb",
			"entities":      "User, Order",
		})
		require.NoError(t, err)
		assert.Contains(t, msgs[0].Content.Text, "AppDb")
		assert.Contains(t, msgs[0].Content.Text, "User, Order")
	})
}
