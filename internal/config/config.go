// Package config loads service settings from defaults, an optional config
// file and the environment through viper.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field is one configuration key with its environment variable and default.
type Field struct {
	Key         string
	Env         string
	Value       any
	Description string
}

// Fields lists every supported key.
var Fields = []Field{
	{"server.port", "PORT", "3005", "HTTP listen port"},
	{"server.cors_origin", "CORS_ALLOWED_ORIGIN", "*", "Allowed CORS and websocket origin"},
	{"server.rate_limit_rps", "RATE_LIMIT_RPS", 20, "Requests per second allowed per client IP, 0 disables"},
	{"server.request_timeout", "REQUEST_TIMEOUT", 60 * time.Second, "Per-request timeout"},

	{"redis.url", "REDIS_URL", "", "Redis URL for the catalog cache and event fan-out, empty disables Redis"},

	{"youtube.api_key", "YOUTUBE_API_KEY", "", "YouTube Data API key"},
	{"youtube.search_url", "YOUTUBE_SEARCH_URL", "https://www.googleapis.com/youtube/v3/search", "YouTube search endpoint"},
	{"youtube.videos_url", "YOUTUBE_VIDEOS_URL", "", "YouTube videos endpoint, derived from the search endpoint when empty"},
	{"youtube.player_url", "YOUTUBE_PLAYER_URL", "https://www.youtube.com/youtubei/v1/player", "YouTube player endpoint used for stream lookups"},
	{"youtube.player_key", "YOUTUBE_PLAYER_KEY", "", "Key sent to the player endpoint, omitted when empty"},
	{"youtube.trending_query", "YOUTUBE_TRENDING_QUERY", "top music hits", "Query used for trending tracks"},

	{"spotify.client_id", "SPOTIFY_CLIENT_ID", "", "Spotify client id, empty disables Spotify"},
	{"spotify.client_secret", "SPOTIFY_CLIENT_SECRET", "", "Spotify client secret"},
	{"spotify.token_url", "SPOTIFY_TOKEN_URL", "https://accounts.spotify.com/api/token", "Spotify token endpoint"},
	{"spotify.api_url", "SPOTIFY_API_URL", "https://api.spotify.com/v1", "Spotify Web API base URL"},
	{"spotify.trending_query", "SPOTIFY_TRENDING_QUERY", "top hits", "Query used for Spotify trending tracks"},

	{"catalog.default_limit", "CATALOG_DEFAULT_LIMIT", 20, "Results returned when no limit is given"},
	{"catalog.max_limit", "CATALOG_MAX_LIMIT", 50, "Upper bound for requested limits"},
	{"catalog.timeout", "CATALOG_TIMEOUT", 5 * time.Second, "Timeout for one catalog query"},
	{"catalog.cache_ttl", "CATALOG_CACHE_TTL", 10 * time.Minute, "How long catalog results stay in Redis"},

	{"stream.timeout", "STREAM_TIMEOUT", 8 * time.Second, "Timeout for one stream lookup"},

	{"player.init_attempts", "PLAYER_INIT_ATTEMPTS", 10, "How often mounting the player host is attempted"},
	{"player.init_delay", "PLAYER_INIT_DELAY", 500 * time.Millisecond, "Delay between mount attempts"},
	{"player.initial_volume", "PLAYER_INITIAL_VOLUME", 50, "Volume applied when the player becomes ready"},
	{"player.resolve_providers", "PLAYER_RESOLVE_PROVIDERS", []string{"spotify"}, "Providers whose tracks need a stream URL before playback"},

	{"search.debounce", "SEARCH_DEBOUNCE", 300 * time.Millisecond, "Quiet period before a surface search is sent"},
	{"search.limit", "SEARCH_LIMIT", 10, "Results per surface search"},

	{"log.level", "LOG_LEVEL", "info", "Log level"},
	{"log.json", "LOG_JSON", false, "Log as JSON"},
}

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	YouTube YouTubeConfig
	Spotify SpotifyConfig
	Catalog CatalogConfig
	Stream  StreamConfig
	Player  PlayerConfig
	Search  SearchConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port           string
	CORSOrigin     string
	RateLimitRPS   int
	RequestTimeout time.Duration
}

type RedisConfig struct {
	URL string
}

type YouTubeConfig struct {
	APIKey        string
	SearchURL     string
	VideosURL     string
	PlayerURL     string
	PlayerKey     string
	TrendingQuery string
}

type SpotifyConfig struct {
	ClientID      string
	ClientSecret  string
	TokenURL      string
	APIURL        string
	TrendingQuery string
}

func (c SpotifyConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

type CatalogConfig struct {
	DefaultLimit int
	MaxLimit     int
	Timeout      time.Duration
	CacheTTL     time.Duration
}

type StreamConfig struct {
	Timeout time.Duration
}

type PlayerConfig struct {
	InitAttempts     int
	InitDelay        time.Duration
	InitialVolume    int
	ResolveProviders []string
}

type SearchConfig struct {
	Debounce time.Duration
	Limit    int
}

type LogConfig struct {
	Level string
	JSON  bool
}

// Setup registers defaults and env bindings on v and reads file when given.
func Setup(v *viper.Viper, file string) error {
	v.SetTypeByDefaultValue(true)
	for _, f := range Fields {
		v.SetDefault(f.Key, f.Value)
		if err := v.BindEnv(f.Key, f.Env); err != nil {
			return fmt.Errorf("bind %s: %w", f.Key, err)
		}
	}

	if file == "" {
		return nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", file, err)
	}
	return nil
}

func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			CORSOrigin:     v.GetString("server.cors_origin"),
			RateLimitRPS:   v.GetInt("server.rate_limit_rps"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Redis: RedisConfig{URL: v.GetString("redis.url")},
		YouTube: YouTubeConfig{
			APIKey:        v.GetString("youtube.api_key"),
			SearchURL:     v.GetString("youtube.search_url"),
			VideosURL:     v.GetString("youtube.videos_url"),
			PlayerURL:     v.GetString("youtube.player_url"),
			PlayerKey:     v.GetString("youtube.player_key"),
			TrendingQuery: v.GetString("youtube.trending_query"),
		},
		Spotify: SpotifyConfig{
			ClientID:      v.GetString("spotify.client_id"),
			ClientSecret:  v.GetString("spotify.client_secret"),
			TokenURL:      v.GetString("spotify.token_url"),
			APIURL:        v.GetString("spotify.api_url"),
			TrendingQuery: v.GetString("spotify.trending_query"),
		},
		Catalog: CatalogConfig{
			DefaultLimit: v.GetInt("catalog.default_limit"),
			MaxLimit:     v.GetInt("catalog.max_limit"),
			Timeout:      v.GetDuration("catalog.timeout"),
			CacheTTL:     v.GetDuration("catalog.cache_ttl"),
		},
		Stream: StreamConfig{Timeout: v.GetDuration("stream.timeout")},
		Player: PlayerConfig{
			InitAttempts:     v.GetInt("player.init_attempts"),
			InitDelay:        v.GetDuration("player.init_delay"),
			InitialVolume:    v.GetInt("player.initial_volume"),
			ResolveProviders: splitList(v.GetStringSlice("player.resolve_providers")),
		},
		Search: SearchConfig{
			Debounce: v.GetDuration("search.debounce"),
			Limit:    v.GetInt("search.limit"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			JSON:  v.GetBool("log.json"),
		},
	}
	return cfg, cfg.Validate()
}

// splitList accepts both list values and a single comma separated string
// coming from the environment.
func splitList(in []string) []string {
	out := lo.FlatMap(in, func(s string, _ int) []string {
		return strings.Split(s, ",")
	})
	out = lo.Map(out, func(s string, _ int) string { return strings.TrimSpace(s) })
	return lo.Uniq(lo.Compact(out))
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Catalog.DefaultLimit <= 0 || c.Catalog.MaxLimit <= 0 {
		errs = append(errs, errors.New("catalog limits must be positive"))
	}
	if c.Catalog.DefaultLimit > c.Catalog.MaxLimit {
		errs = append(errs, errors.New("catalog.default_limit exceeds catalog.max_limit"))
	}
	if c.Player.InitAttempts <= 0 || c.Player.InitDelay <= 0 {
		errs = append(errs, errors.New("player init attempts and delay must be positive"))
	}
	if c.Player.InitialVolume < 0 || c.Player.InitialVolume > 100 {
		errs = append(errs, errors.New("player.initial_volume must be within 0..100"))
	}
	if c.Spotify.ClientID != "" && c.Spotify.ClientSecret == "" {
		errs = append(errs, errors.New("spotify.client_secret is required with spotify.client_id"))
	}
	return errors.Join(errs...)
}

// Settings returns the effective value of every key, sorted by key.
func Settings(v *viper.Viper) []Field {
	out := lo.Map(Fields, func(f Field, _ int) Field {
		f.Value = v.Get(f.Key)
		return f
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
