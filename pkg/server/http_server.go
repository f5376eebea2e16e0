package server

import (
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"

	"github.com/dealdesk/dealdesk/pkg/application"
)

func NewHTTPServer(app application.Application, notFoundHandler http.Handler) *HTTPServer {
	return &HTTPServer{
		Controllers:     app.Controllers(),
		Middlewares:     app.Middleware(),
		NotFoundHandler: notFoundHandler,
	}
}

type HTTPServer struct {
	Controllers     []application.Controller
	Middlewares     []mux.MiddlewareFunc
	NotFoundHandler http.Handler
}

func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.Middlewares...)
	for _, controller := range s.Controllers {
		controller.Register(r)
	}

	if s.NotFoundHandler != nil {
		// Middleware wraps the not-found handler too so logging and panic
		// recovery cover unmatched routes.
		notFound := s.NotFoundHandler
		for i := len(s.Middlewares) - 1; i >= 0; i-- {
			notFound = s.Middlewares[i](notFound)
		}
		r.NotFoundHandler = notFound
	}
	return r
}

func (s *HTTPServer) Handler() http.Handler {
	return gziphandler.GzipHandler(s.Router())
}

func (s *HTTPServer) Start(socketAddress string) error {
	return http.ListenAndServe(socketAddress, s.Handler())
}
