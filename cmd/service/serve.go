package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"playback-service/internal/catalog"
	"playback-service/internal/config"
	"playback-service/internal/logging"
	"playback-service/internal/player"
	"playback-service/internal/realtime"
	"playback-service/internal/server"
	"playback-service/internal/session"
	"playback-service/internal/stream"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			logging.Setup(cfg.Log.Level, cfg.Log.JSON)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringP("port", "p", "", "HTTP listen port")
	lo.Must0(v.BindPFlag("server.port", cmd.Flags().Lookup("port")))
	cmd.Flags().String("redis-url", "", "Redis URL, empty disables Redis")
	lo.Must0(v.BindPFlag("redis.url", cmd.Flags().Lookup("redis-url")))

	return cmd
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		log.Info("redis disabled, events go straight to the local hub")
		return nil, nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warnf("redis ping failed, continuing: %v", err)
	}
	return rdb, nil
}

type catalogStack struct {
	catalog   *catalog.Service
	streams   *stream.Service
	playlists server.PlaylistSource
}

func buildCatalog(cfg config.Config, rdb *redis.Client) (catalogStack, error) {
	yt := catalog.NewYouTubeClient(cfg.YouTube.APIKey, cfg.YouTube.SearchURL, cfg.YouTube.VideosURL, cfg.YouTube.TrendingQuery)
	sources := []catalog.Source{yt}

	streams := stream.NewService(cfg.Stream.Timeout).
		Register(catalog.ProviderYouTube, stream.NewYouTubeResolver(cfg.YouTube.PlayerURL, cfg.YouTube.PlayerKey))

	var playlists server.PlaylistSource
	if cfg.Spotify.Enabled() {
		sp, err := catalog.NewSpotifyClient(
			cfg.Spotify.ClientID,
			cfg.Spotify.ClientSecret,
			cfg.Spotify.TokenURL,
			cfg.Spotify.APIURL,
			cfg.Spotify.TrendingQuery,
			nil,
		)
		if err != nil {
			return catalogStack{}, err
		}
		sources = append(sources, sp)
		streams.Register(catalog.ProviderSpotify, stream.LookupFunc(sp.PreviewURL))
		playlists = sp
	} else {
		log.Info("spotify disabled")
	}

	var source catalog.Source = catalog.NewMulti(sources...)
	if rdb != nil {
		source = catalog.NewCache(source, rdb, cfg.Catalog.CacheTTL)
	}

	return catalogStack{
		catalog:   catalog.NewService(source, cfg.Catalog.Timeout, cfg.Catalog.MaxLimit),
		streams:   streams,
		playlists: playlists,
	}, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	rdb, err := openRedis(ctx, cfg.Redis.URL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	stack, err := buildCatalog(cfg, rdb)
	if err != nil {
		return err
	}

	hub := realtime.NewHub()
	broadcaster := realtime.NewBroadcaster(hub, rdb)

	mount := realtime.NewHostMount(cfg.Server.CORSOrigin)
	adapter := player.NewAdapter(mount.Acquire, player.WithRetry(cfg.Player.InitAttempts, cfg.Player.InitDelay))
	mount.Handle(adapter.HandleRaw)
	mount.OnAttach(func() { adapter.HostAttached(ctx) })

	sess := session.New(adapter, stack.streams, broadcaster,
		session.WithInitialVolume(cfg.Player.InitialVolume),
		session.WithResolveProviders(cfg.Player.ResolveProviders...),
	)

	surfaces := realtime.NewSurfaces(ctx, hub, sess, stack.catalog, realtime.SurfaceConfig{
		SearchDelay:   cfg.Search.Debounce,
		SearchLimit:   cfg.Search.Limit,
		AllowedOrigin: cfg.Server.CORSOrigin,
	})

	opts := []server.Option{
		server.WithDefaultLimit(cfg.Catalog.DefaultLimit),
		server.WithRealtime(surfaces, mount),
	}
	if stack.playlists != nil {
		opts = append(opts, server.WithPlaylists(stack.playlists))
	}
	srv := server.NewServer(stack.catalog, stack.streams, sess, opts...)

	go hub.Run(ctx)
	go broadcaster.RunRedisSubscriber(ctx)
	go sess.Run(ctx)
	go func() {
		if err := adapter.Init(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnf("player init: %v", err)
		}
	}()

	r := srv.Router(
		middleware.RequestID,
		middleware.RealIP,
		server.RequestLogger,
		middleware.Recoverer,
		middleware.Timeout(cfg.Server.RequestTimeout),
		server.CORS(cfg.Server.CORSOrigin),
		server.NewRateLimiter(cfg.Server.RateLimitRPS).Middleware,
	)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("%s listening on :%s", server.ServiceName, cfg.Server.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
