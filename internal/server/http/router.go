package httpserver

import "net/http"

// Server is a thin http.Handler wrapper, kept separate from Handler so a
// caller can mount it alongside other routes without depending on the
// concrete Handler type.
type Server struct {
	h http.Handler
}

func NewServer(h *Handler) *Server {
	return &Server{h: h}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.h.ServeHTTP(w, r)
}
