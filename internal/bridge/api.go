package bridge

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"zapp/internal/logger"
	"zapp/internal/remote"
)

// sessionHandle is the slice of the session surface the handlers drive
type sessionHandle interface {
	Connect()
	Disconnect()
	Forget()
	StartPairing()
	SubmitPIN(pin string) error
	SetPairingCode(chunk string) error
	SendKey(key remote.Key)
	SendText(text string)
	Capabilities() remote.Capabilities
}

// APIServer handles REST control requests over the session registry
type APIServer struct {
	manager *Manager
	server  *http.Server
	logger  zerolog.Logger
}

// NewAPIServer creates a new API server
func NewAPIServer(manager *Manager) *APIServer {
	return &APIServer{
		manager: manager,
		logger:  logger.For("api"),
	}
}

// Router builds the request router
func (api *APIServer) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(api.loggingMiddleware)

	r := router.PathPrefix("/api/v1").Subrouter()
	r.HandleFunc("/devices", api.handleListDevices).Methods("GET")
	r.HandleFunc("/devices", api.handleCreateDevice).Methods("POST")
	r.HandleFunc("/devices/{id}", api.handleGetDevice).Methods("GET")
	r.HandleFunc("/devices/{id}", api.handleRemoveDevice).Methods("DELETE")
	r.HandleFunc("/devices/{id}/connect", api.handleConnect).Methods("POST")
	r.HandleFunc("/devices/{id}/disconnect", api.handleDisconnect).Methods("POST")
	r.HandleFunc("/devices/{id}/forget", api.handleForget).Methods("POST")
	r.HandleFunc("/devices/{id}/pairing", api.handleStartPairing).Methods("POST")
	r.HandleFunc("/devices/{id}/pin", api.handleSubmitPIN).Methods("POST")
	r.HandleFunc("/devices/{id}/code", api.handleSubmitCode).Methods("POST")
	r.HandleFunc("/devices/{id}/keys", api.handleSendKey).Methods("POST")
	r.HandleFunc("/devices/{id}/text", api.handleSendText).Methods("POST")
	return router
}

// Start starts the HTTP API server
func (api *APIServer) Start(address string) error {
	api.server = &http.Server{
		Addr:         address,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	api.logger.Info().Str("address", address).Msg("Starting control API")
	if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the HTTP API server
func (api *APIServer) Stop() error {
	if api.server != nil {
		return api.server.Close()
	}
	return nil
}

// Middleware
func (api *APIServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		api.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("API request")
	})
}

// Response helpers
func (api *APIServer) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			api.logger.Error().Err(err).Msg("Failed to encode response")
		}
	}
}

func (api *APIServer) sendError(w http.ResponseWriter, status int, message string) {
	api.sendJSON(w, status, map[string]string{"error": message})
}

func (api *APIServer) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		api.sendError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// Handlers

func (api *APIServer) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := api.manager.List()
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.sendJSON(w, http.StatusOK, map[string]interface{}{"devices": devices})
}

func (api *APIServer) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Platform string `json:"platform"`
		IP       string `json:"ip"`
		MAC      string `json:"mac"`
	}
	if !api.decode(w, r, &req) {
		return
	}

	platform, err := remote.ParsePlatform(req.Platform)
	if err != nil {
		api.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	dev, err := api.manager.Create(req.Name, platform, req.IP, req.MAC)
	if err != nil {
		api.sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	status, err := api.manager.Status(dev.ID)
	if err != nil {
		api.sendError(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.sendJSON(w, http.StatusCreated, status)
}

func (api *APIServer) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	status, err := api.manager.Status(id)
	if err != nil {
		api.sendError(w, http.StatusNotFound, err.Error())
		return
	}
	api.sendJSON(w, http.StatusOK, status)
}

func (api *APIServer) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := api.manager.Remove(id); err != nil {
		api.sendError(w, http.StatusNotFound, "unknown device "+id)
		return
	}
	api.sendJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

// withSession resolves the device's session or writes a 404
func (api *APIServer) withSession(w http.ResponseWriter, r *http.Request, fn func(s sessionHandle)) {
	id := mux.Vars(r)["id"]
	s, err := api.manager.Session(id)
	if err != nil {
		api.sendError(w, http.StatusNotFound, err.Error())
		return
	}
	fn(s)
}

func (api *APIServer) handleConnect(w http.ResponseWriter, r *http.Request) {
	api.withSession(w, r, func(s sessionHandle) {
		s.Connect()
		api.sendJSON(w, http.StatusAccepted, map[string]string{"status": "connecting"})
	})
}

func (api *APIServer) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	api.withSession(w, r, func(s sessionHandle) {
		s.Disconnect()
		api.sendJSON(w, http.StatusAccepted, map[string]string{"status": "disconnecting"})
	})
}

func (api *APIServer) handleForget(w http.ResponseWriter, r *http.Request) {
	api.withSession(w, r, func(s sessionHandle) {
		s.Forget()
		api.sendJSON(w, http.StatusAccepted, map[string]string{"status": "forgotten"})
	})
}

func (api *APIServer) handleStartPairing(w http.ResponseWriter, r *http.Request) {
	api.withSession(w, r, func(s sessionHandle) {
		s.StartPairing()
		api.sendJSON(w, http.StatusAccepted, map[string]string{"status": "pairing"})
	})
}

func (api *APIServer) handleSubmitPIN(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PIN string `json:"pin"`
	}
	if !api.decode(w, r, &req) {
		return
	}
	api.withSession(w, r, func(s sessionHandle) {
		if err := s.SubmitPIN(req.PIN); err != nil {
			api.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		api.sendJSON(w, http.StatusAccepted, map[string]string{"status": "submitted"})
	})
}

func (api *APIServer) handleSubmitCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if !api.decode(w, r, &req) {
		return
	}
	api.withSession(w, r, func(s sessionHandle) {
		if err := s.SetPairingCode(req.Code); err != nil {
			api.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		api.sendJSON(w, http.StatusAccepted, map[string]string{"status": "submitted"})
	})
}

func (api *APIServer) handleSendKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if !api.decode(w, r, &req) {
		return
	}
	api.withSession(w, r, func(s sessionHandle) {
		key := remote.Key(req.Key)
		if !s.Capabilities().SupportsKey(key) {
			api.sendError(w, http.StatusBadRequest, "key not supported on this platform")
			return
		}
		s.SendKey(key)
		api.sendJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	})
}

func (api *APIServer) handleSendText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !api.decode(w, r, &req) {
		return
	}
	api.withSession(w, r, func(s sessionHandle) {
		if !s.Capabilities().TextInput {
			api.sendError(w, http.StatusBadRequest, "text input not supported on this platform")
			return
		}
		s.SendText(req.Text)
		api.sendJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
	})
}
