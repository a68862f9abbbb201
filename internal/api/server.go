// Package api exposes the dispatcher over HTTP and streams channel
// snapshots over WebSocket.
//
// Routes:
//
//	POST /v1/sessions                          create a session
//	GET  /v1/sessions/{id}                     read a session
//	POST /v1/sessions/{id}/actions/{action}    perform an action
//	POST /v1/sessions/{id}/close               close a session
//	GET  /v1/channels/{channel}/stream         WebSocket snapshot stream
//	GET  /healthz                              Redis health
//
// Identity is supplied by the fronting identity provider in the X-Actor-Id,
// X-Actor-Name and X-Actor-Role headers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dyluth/huddle/pkg/activity"
)

// maxBodyBytes bounds request bodies; payload size is checked separately
// by the dispatcher.
const maxBodyBytes = 1 << 20

// Actor headers.
const (
	HeaderActorID   = "X-Actor-Id"
	HeaderActorName = "X-Actor-Name"
	HeaderActorRole = "X-Actor-Role"
)

// Service is the session API. Implemented by *dispatch.Dispatcher.
type Service interface {
	CreateSession(ctx context.Context, hostMessageID string, kind activity.Type, creator activity.Actor, setup json.RawMessage) (*activity.Session, error)
	Dispatch(ctx context.Context, sessionID string, kind activity.Type, action string, actor activity.Actor, input json.RawMessage) (*activity.Session, error)
	CloseSession(ctx context.Context, sessionID string, actor activity.Actor) (*activity.Session, error)
	GetSession(ctx context.Context, sessionID string) (*activity.Session, error)
}

// Subscriber opens snapshot subscriptions. Implemented by *activity.Client.
type Subscriber interface {
	SubscribeChannel(ctx context.Context, channelRef string) (*activity.Subscription, error)
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the HTTP front of huddle.
type Server struct {
	service    Service
	subscriber Subscriber
	pinger     Pinger
	mux        *http.ServeMux
	server     *http.Server
}

// NewServer wires the routes.
func NewServer(service Service, subscriber Subscriber, pinger Pinger) *Server {
	s := &Server{
		service:    service,
		subscriber: subscriber,
		pinger:     pinger,
		mux:        http.NewServeMux(),
	}

	s.mux.HandleFunc("POST /v1/sessions", s.handleCreate)
	s.mux.HandleFunc("GET /v1/sessions/{id}", s.handleGet)
	s.mux.HandleFunc("POST /v1/sessions/{id}/actions/{action}", s.handleAction)
	s.mux.HandleFunc("POST /v1/sessions/{id}/close", s.handleClose)
	s.mux.HandleFunc("GET /v1/channels/{channel}/stream", s.handleStream)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start listens on addr in the background.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[API] Server error: %v", err)
		}
	}()

	log.Printf("[API] Listening on %s", addr)
	return nil
}

// Shutdown gracefully stops the server. Open streams end when their
// request contexts are cancelled.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type createRequest struct {
	HostMessageID string          `json:"host_message_id"`
	Type          activity.Type   `json:"type"`
	Setup         json.RawMessage `json:"setup,omitempty"`
}

type actionRequest struct {
	Type  activity.Type   `json:"type"`
	Input json.RawMessage `json:"input,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.HostMessageID == "" {
		writeError(w, activity.InvalidField("host_message_id", "is required"))
		return
	}

	session, err := s.service.CreateSession(r.Context(), req.HostMessageID, req.Type, actorFrom(r), req.Setup)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := s.service.Dispatch(r.Context(), r.PathValue("id"), req.Type, r.PathValue("action"), actorFrom(r), req.Input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.CloseSession(r.Context(), r.PathValue("id"), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// actorFrom reads the caller identity set by the identity provider.
func actorFrom(r *http.Request) activity.Actor {
	actor := activity.Actor{
		ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Name: strings.TrimSpace(r.Header.Get(HeaderActorName)),
		Role: activity.RoleMember,
	}
	if strings.EqualFold(r.Header.Get(HeaderActorRole), string(activity.RoleAdmin)) {
		actor.Role = activity.RoleAdmin
	}
	return actor
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return activity.InvalidField("body", "malformed request: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] Failed to write response: %v", err)
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code   activity.Code `json:"code"`
	Reason string        `json:"reason"`
	Field  string        `json:"field,omitempty"`
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code activity.Code) int {
	switch code {
	case activity.CodeInvalidInput, activity.CodeUnknownActivityType,
		activity.CodeUnsupportedAction, activity.CodeTypeMismatch:
		return http.StatusBadRequest
	case activity.CodeForbidden:
		return http.StatusForbidden
	case activity.CodeSessionNotFound, activity.CodeHostMessageNotFound:
		return http.StatusNotFound
	case activity.CodeSessionClosed, activity.CodeAlreadyClosed, activity.CodeStaleWrite:
		return http.StatusConflict
	case activity.CodeLimitExceeded:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	e, ok := activity.AsError(err)
	if !ok {
		log.Printf("[API] Internal error: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{
			Code:   "Internal",
			Reason: fmt.Sprintf("internal error: %v", err),
		})
		return
	}
	writeJSON(w, StatusFor(e.Code), errorResponse{Code: e.Code, Reason: e.Reason, Field: e.Field})
}
