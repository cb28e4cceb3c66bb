package main

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pdutta/courier/internal/auth"
	"github.com/pdutta/courier/internal/config"
	"github.com/pdutta/courier/internal/delivery"
	"github.com/pdutta/courier/internal/handlers"
	"github.com/pdutta/courier/internal/middleware"
	"github.com/pdutta/courier/internal/presence"
	"github.com/pdutta/courier/internal/store/sqlstore"
	"github.com/pdutta/courier/internal/ws"
	"github.com/rs/cors"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()
	auth.SetSecret(cfg.CookieSecret)

	store, err := sqlstore.New("sqlite3", cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	// The registry is the single shared presence state; everything gets it
	// injected here, nothing reaches for a global.
	registry := presence.NewRegistry()

	hub := ws.NewHub(registry)
	go hub.Run()

	router := delivery.NewRouter(store, registry)
	msgHandler := &handlers.MsgHandler{Store: store, Router: router}

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware)

	// Durable message API
	api := r.PathPrefix("/api/msg").Subrouter()
	api.Use(middleware.AuthMiddleware)
	api.HandleFunc("/add-msg", msgHandler.AddMsg).Methods("POST")
	api.HandleFunc("/get-msgs", msgHandler.GetMsgs).Methods("POST")
	api.HandleFunc("/del-msgs", msgHandler.DelMsgs).Methods("POST")
	api.HandleFunc("/unread-msgs", msgHandler.AddUnread).Methods("POST")

	// Live channel: accepted without identity, bound on the user-add announce.
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, w, r)
	})

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.ClientOrigin},
		AllowedMethods:   []string{"GET", "POST"},
		AllowCredentials: true,
	}).Handler(r)

	log.Println("Starting server on", cfg.Addr)
	log.Fatal(http.ListenAndServe(cfg.Addr, handler))
}
