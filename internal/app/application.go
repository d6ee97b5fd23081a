package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"campushub/internal/api"
	"campushub/internal/broadcast"
	"campushub/internal/config"
	"campushub/internal/directory"
	"campushub/internal/hub"
	"campushub/internal/identity"
	"campushub/internal/room"
	"campushub/internal/router"
	"campushub/internal/userstore"
	"campushub/internal/websocket"
)

// Application coordinates all system components. Initialization follows
// dependency order: store, directory, rooms, broadcaster, router,
// resolver, hub, then the HTTP surfaces.
type Application struct {
	config      *config.Config
	users       *userstore.Store
	directory   *directory.Directory
	rooms       *room.Registry
	broadcaster *broadcast.Broadcaster
	msgRouter   *router.Router
	resolver    *identity.Resolver
	realtimeHub *hub.Hub
	apiServer   *api.Server
	httpServer  *http.Server
}

func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	users, err := userstore.Open(cfg.Database.Path, cfg.Database.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to open user store: %w", err)
	}

	dir := directory.New()
	rooms := room.NewRegistry()
	rooms.SeedDefaults()

	broadcaster := broadcast.New(dir, rooms)
	msgRouter := router.NewRouter(rooms, broadcaster)
	resolver := identity.NewResolver(users, cfg.Auth.JWTSecret)
	realtimeHub := hub.NewHub(dir, rooms, broadcaster, msgRouter, resolver, users)

	apiServer := api.NewServer(rooms, dir, cfg.HTTP.AllowedOrigin)
	wsHandler := websocket.NewHandler(realtimeHub, cfg.WebSocket, cfg.HTTP.AllowedOrigin)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", wsHandler.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:      cfg,
		users:       users,
		directory:   dir,
		rooms:       rooms,
		broadcaster: broadcaster,
		msgRouter:   msgRouter,
		resolver:    resolver,
		realtimeHub: realtimeHub,
		apiServer:   apiServer,
		httpServer:  httpServer,
	}, nil
}

// Start brings up the hub loop first, then the HTTP listener.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting campushub on %s", app.httpServer.Addr)

	if err := app.realtimeHub.Start(ctx); err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		_ = app.realtimeHub.Stop()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("campushub started")
		return nil
	case <-ctx.Done():
		_ = app.realtimeHub.Stop()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse order: HTTP, hub, store.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down campushub")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	if err := app.realtimeHub.Stop(); err != nil {
		log.Printf("Hub shutdown error: %v", err)
	}
	if err := app.users.Close(); err != nil {
		log.Printf("User store shutdown error: %v", err)
	}

	log.Printf("campushub shutdown complete")
	return nil
}

// Addr returns the listener address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
