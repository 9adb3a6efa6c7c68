package config_test

import (
	"testing"
	"time"

	"github.com/ardacey/Lexo/config"
	"github.com/ardacey/Lexo/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://lexo.app")
		t.Setenv("JWT_KEY", "key")

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, "5000", cfg.Port)
		assert.Equal(t, []string{"http://localhost:3000", "https://lexo.app"}, cfg.AllowedOrigins)
		assert.Empty(t, cfg.PostgresURL)
		assert.Equal(t, 7*24*time.Hour, cfg.TokenMaxAge)
		assert.Equal(t, game.DefaultSettings(), cfg.Game)
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000")
		t.Setenv("JWT_KEY", "key")
		t.Setenv("GAME_DURATION", "90")
		t.Setenv("BR_ELIMINATION_INTERVAL", "45s")
		t.Setenv("LETTER_POOL_SIZE", "20")
		t.Setenv("BR_MIN_PLAYERS", "4")
		t.Setenv("DEBUG", "true")

		cfg, err := config.Load()
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Game.ClassicDuration)
		assert.Equal(t, 45*time.Second, cfg.Game.BattleRoyaleEliminationInterval)
		assert.Equal(t, 20, cfg.Game.ClassicPoolSize)
		assert.Equal(t, 4, cfg.Game.BattleRoyaleMinPlayers)
		assert.True(t, cfg.Debug)
	})

	t.Run("errors", func(t *testing.T) {
		cases := []struct {
			description string
			env         map[string]string
		}{
			{"missing origins", map[string]string{"ALLOWED_ORIGINS": "", "JWT_KEY": "key"}},
			{"missing jwt key", map[string]string{"ALLOWED_ORIGINS": "http://a", "JWT_KEY": ""}},
			{"bad duration", map[string]string{"ALLOWED_ORIGINS": "http://a", "JWT_KEY": "key", "GAME_DURATION": "soon"}},
			{"bad int", map[string]string{"ALLOWED_ORIGINS": "http://a", "JWT_KEY": "key", "MIN_WORD_LENGTH": "-1"}},
			{"min above max", map[string]string{"ALLOWED_ORIGINS": "http://a", "JWT_KEY": "key", "BR_MIN_PLAYERS": "20"}},
		}
		for _, tc := range cases {
			t.Run(tc.description, func(t *testing.T) {
				for k, v := range tc.env {
					t.Setenv(k, v)
				}
				_, err := config.Load()
				assert.Error(t, err)
			})
		}
	})
}
