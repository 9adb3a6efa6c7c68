package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ardacey/Lexo/game"
	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	PostgresURL    string
	JWTKey         string
	NatsURL        string
	WordsFile      string
	LogLevel       string
	Debug          bool
	TokenMaxAge    time.Duration
	Game           game.Settings
}

// Load reads the environment, after loading a .env file if there is one.
// Only ALLOWED_ORIGINS and JWT_KEY are required; everything else has a
// default, and an unset POSTGRES_URL or NATS_URL turns that integration off.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "5000"),
		PostgresURL: os.Getenv("POSTGRES_URL"),
		JWTKey:      os.Getenv("JWT_KEY"),
		NatsURL:     os.Getenv("NATS_URL"),
		WordsFile:   os.Getenv("WORDS_FILE"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Game:        game.DefaultSettings(),
	}

	origins := os.Getenv("ALLOWED_ORIGINS")
	if origins == "" {
		return Config{}, fmt.Errorf("missing allowed origins")
	}
	for _, origin := range strings.Split(origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}
	if cfg.JWTKey == "" {
		return Config{}, fmt.Errorf("missing jwt signing key")
	}

	var err error
	if cfg.Debug, err = getBool("DEBUG", false); err != nil {
		return Config{}, err
	}
	if cfg.TokenMaxAge, err = getDuration("TOKEN_MAX_AGE", 7*24*time.Hour); err != nil {
		return Config{}, err
	}

	g := &cfg.Game
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"GAME_DURATION", &g.ClassicDuration},
		{"BR_GAME_DURATION", &g.BattleRoyaleDuration},
		{"BR_ELIMINATION_INTERVAL", &g.BattleRoyaleEliminationInterval},
		{"BR_COUNTDOWN", &g.BattleRoyaleCountdown},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.key, *d.dst); err != nil {
			return Config{}, err
		}
	}
	ints := []struct {
		key string
		dst *int
	}{
		{"LETTER_POOL_SIZE", &g.ClassicPoolSize},
		{"MIN_WORD_LENGTH", &g.MinWordLength},
		{"BR_MIN_PLAYERS", &g.BattleRoyaleMinPlayers},
		{"BR_MAX_PLAYERS", &g.BattleRoyaleMaxPlayers},
	}
	for _, i := range ints {
		if *i.dst, err = getInt(i.key, *i.dst); err != nil {
			return Config{}, err
		}
	}
	if g.BattleRoyaleMinPlayers > g.BattleRoyaleMaxPlayers {
		return Config{}, fmt.Errorf("BR_MIN_PLAYERS (%d) is above BR_MAX_PLAYERS (%d)", g.BattleRoyaleMinPlayers, g.BattleRoyaleMaxPlayers)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}

// getDuration accepts plain seconds ("60") or a Go duration ("1m").
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return d, nil
}
