// Package web serves the studio over HTTP: a JSON API for editing, a
// websocket that streams playback frames and a debug dump endpoint.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/chazu/mannequin/pkg/studio"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Server routes HTTP requests to a studio.
type Server struct {
	studio *studio.Studio
	log    *logrus.Logger
	hub    *hub
}

// NewServer returns a server for s. A nil logger selects the standard one.
func NewServer(s *studio.Studio, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	srv := &Server{studio: s, log: log}
	srv.hub = newHub(s, log)
	return srv
}

// Handler returns the routed handler with access logging and panic
// recovery applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/nodes", s.handleTree).Methods(http.MethodGet)
	api.HandleFunc("/nodes", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/nodes/{id}", s.handleNode).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{id}", s.handleRemove).Methods(http.MethodDelete)
	api.HandleFunc("/nodes/{id}/isolate", s.handleIsolate).Methods(http.MethodPost)
	api.HandleFunc("/nodes/{id}/parent", s.handleReparent).Methods(http.MethodPost)
	api.HandleFunc("/nodes/{id}/transform", s.handleGetTransform).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{id}/transform", s.handleSetTransform).Methods(http.MethodPut)
	api.HandleFunc("/nodes/{id}/keyframes", s.handleKeyframes).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{id}/keyframes", s.handleClearKeyframes).Methods(http.MethodDelete)
	api.HandleFunc("/nodes/{id}/keyframes/{frame:-?[0-9]+}", s.handleIsKeyframe).Methods(http.MethodGet)
	api.HandleFunc("/nodes/{id}/keyframes/{frame:-?[0-9]+}", s.handleSaveKeyframe).Methods(http.MethodPut)
	api.HandleFunc("/nodes/{id}/keyframes/{frame:-?[0-9]+}", s.handleRemoveKeyframe).Methods(http.MethodDelete)
	api.HandleFunc("/frame/{frame:-?[0-9]+}", s.handleLoadFrame).Methods(http.MethodPost)
	api.HandleFunc("/pose", s.handlePose).Methods(http.MethodGet)
	api.HandleFunc("/meshes", s.handleMeshes).Methods(http.MethodGet)
	api.HandleFunc("/bounds", s.handleBounds).Methods(http.MethodGet)
	api.HandleFunc("/validate", s.handleValidate).Methods(http.MethodGet)
	api.HandleFunc("/shapes", s.handleShapes).Methods(http.MethodGet)
	api.HandleFunc("/max-frames", s.handleSetMaxFrames).Methods(http.MethodPut)
	api.HandleFunc("/figure", s.handleRebuildFigure).Methods(http.MethodPost)
	api.HandleFunc("/figure/joints/{name}", s.handleJoint).Methods(http.MethodGet)
	api.HandleFunc("/animations", s.handleAnimations).Methods(http.MethodGet)
	api.HandleFunc("/animations/{name}", s.handleApplyAnimation).Methods(http.MethodPost)
	api.HandleFunc("/scripts/eval", s.handleEval).Methods(http.MethodPost)

	r.HandleFunc("/ws/playback", s.hub.serve)
	r.HandleFunc("/debug/nodes/{id}", s.handleDebugNode).Methods(http.MethodGet)

	return handlers.RecoveryHandler(handlers.RecoveryLogger(s.log))(
		handlers.LoggingHandler(s.log.WriterLevel(logrus.DebugLevel), r),
	)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("web server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "web server")
	case <-ctx.Done():
		s.hub.closeAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "web server shutdown")
		}
		return nil
	}
}
