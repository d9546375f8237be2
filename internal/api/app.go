package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ChinmayaKolhe/VicharManthan/internal/config"
	"github.com/ChinmayaKolhe/VicharManthan/internal/database"
	"github.com/ChinmayaKolhe/VicharManthan/internal/server"
	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"
)

// App serves the REST surface and the websocket endpoint. The store is the
// source of truth; the hub only relays.
type App struct {
	log            *log.Logger
	db             database.Repository
	srv            *http.Server
	hub            *server.Hub
	signingKey     []byte
	allowedOrigins []string
	sendQueueSize  int
}

func NewApp(mux *http.ServeMux, logger *log.Logger, hub *server.Hub, db database.Repository, cfg *config.Config) *App {
	a := &App{
		log:            logger,
		db:             db,
		hub:            hub,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
		sendQueueSize:  cfg.SendQueueSize,
	}

	mux.HandleFunc("GET /health", a.healthCheck)
	mux.Handle("GET /api/chats", a.authMiddleware(a.listChats))
	mux.Handle("POST /api/chats", a.authMiddleware(a.createChat))
	mux.Handle("GET /api/chats/{id}/messages", a.authMiddleware(a.getChatMessages))
	mux.Handle("POST /api/chats/{id}/messages", a.authMiddleware(a.sendChatMessage))
	mux.Handle("GET /api/notifications", a.authMiddleware(a.listNotifications))
	mux.Handle("POST /api/notifications", a.authMiddleware(a.createNotification))
	mux.Handle("PUT /api/notifications/{id}/read", a.authMiddleware(a.markNotificationRead))
	mux.Handle("GET /api/presence/{userId}", a.authMiddleware(a.getPresence))
	mux.HandleFunc("GET /ws", a.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = a.errorHandler(h)

	a.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return a
}

func (a *App) Start() error {
	a.log.Infof("starting server on %s", a.srv.Addr)
	return a.srv.ListenAndServe()
}

func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down HTTP server...")
	if err := a.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
