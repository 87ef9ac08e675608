package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Ashika2003/Chat-App/internal/app/server/handlers"
	"github.com/Ashika2003/Chat-App/internal/core/services"
	"github.com/Ashika2003/Chat-App/pkg/middleware"
)

type Server struct {
	mux           *http.ServeMux
	log           *slog.Logger
	name          string
	addr          string
	chatHandler   *handlers.ChatHandler
	statusHandler *handlers.StatusHandler
	tokenSvc      *services.TokenService
}

func NewServer(
	log *slog.Logger,
	name string,
	addr string,
	tokenSvc *services.TokenService,
	chatrooms *services.ChatroomService,
	status *services.StatusService,
) *Server {
	s := &Server{
		mux:           http.NewServeMux(),
		log:           log,
		name:          name,
		addr:          addr,
		chatHandler:   handlers.NewChatHandler(chatrooms),
		statusHandler: handlers.NewStatusHandler(status),
		tokenSvc:      tokenSvc,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	auth := middleware.AuthMiddleware(s.tokenSvc)
	logReq := middleware.RequestLogger(s.log)
	traced := middleware.TracerMiddleware(s.name)

	wrap := func(h http.HandlerFunc) http.Handler {
		return traced(logReq(auth(h)))
	}

	s.mux.Handle("GET /ws/chatroom/{chatroom_name}", wrap(s.chatHandler.Handler))
	s.mux.Handle("GET /ws/online-status", wrap(s.statusHandler.Handler))
}

func (s *Server) Start() error {
	server := &http.Server{
		Addr:        s.addr,
		Handler:     s.mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: websocket connections outlive any sane value.
	}
	s.log.Info("server starting", "addr", s.addr)
	return server.ListenAndServe()
}
