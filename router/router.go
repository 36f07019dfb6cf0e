package router

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"inkwell/config"
	"inkwell/internal/auth"
	docHandler "inkwell/internal/document"
	"inkwell/internal/document/repository"
	"inkwell/internal/document/service"
	"inkwell/middleware"
	"inkwell/pkg/cache"
	"inkwell/socket"
)

func Setup(db *sql.DB, c cache.Cache, hub *socket.Hub, cfg config.Config) http.Handler {
	r := mux.NewRouter()

	protect := middleware.Auth(cfg.JWTSecret)

	// Auth
	authService := auth.NewAuthService(auth.NewUserRepository(db), cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewAuthHandler(authService)

	r.HandleFunc("/signup", authHandler.Signup).Methods(http.MethodPost)
	r.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)
	r.Handle("/auth/check", protect(http.HandlerFunc(authHandler.Check))).Methods(http.MethodGet)

	// Documents
	docRepo := repository.NewDocumentRepository(db)
	docService := service.NewDocumentService(docRepo, c, hub, cfg.CacheTTL)
	documents := docHandler.NewDocumentHandler(docService, hub)

	r.Handle("/documents", protect(http.HandlerFunc(documents.List))).Methods(http.MethodGet)
	r.Handle("/documents", protect(http.HandlerFunc(documents.Create))).Methods(http.MethodPost)
	r.Handle("/documents/{id}", protect(http.HandlerFunc(documents.Get))).Methods(http.MethodGet)
	r.Handle("/documents/{id}", protect(http.HandlerFunc(documents.Update))).Methods(http.MethodPut)
	r.Handle("/documents/{id}", protect(http.HandlerFunc(documents.Delete))).Methods(http.MethodDelete)
	r.Handle("/documents/{id}/grant", protect(http.HandlerFunc(documents.Grant))).Methods(http.MethodPost)
	r.Handle("/documents/{id}/members", protect(http.HandlerFunc(documents.Members))).Methods(http.MethodGet)

	// WebSocket
	r.Handle("/ws", protect(http.HandlerFunc(documents.ServeWS)))

	return middleware.CORS(cfg.AllowedOrigin)(r)
}
