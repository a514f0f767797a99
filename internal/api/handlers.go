/*
Package api
File: handlers.go
Description:
    HTTP handlers for the status and command API.
    These functions decode incoming requests, call into the Session (which
    owns its own locking) and return JSON responses.

    Key Responsibilities:
    - Read-only status (tracked players, registered juice, current settings)
    - Config commands (set/add/remove/view/list, reload, save)
    - Juice registration over HTTP, using the same msgpack payload as the hook
*/

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/everforgeworks/deadly-accel/internal/config"
	"github.com/everforgeworks/deadly-accel/internal/game"
	"github.com/everforgeworks/deadly-accel/internal/logging"
)

// maxPayload caps request bodies. Registration payloads are a few dozen bytes.
const maxPayload = 64 << 10

// SettingsRequest is a config command.
type SettingsRequest struct {
	Op    string `json:"op"` // set, add, remove, view or list
	Field string `json:"field"`
	Value string `json:"value"`
}

// SettingsResponse echoes the field's value after the command.
type SettingsResponse struct {
	Field  string   `json:"field,omitempty"`
	Value  string   `json:"value,omitempty"`
	Fields []string `json:"fields,omitempty"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Tick        uint64 `json:"tick"`
	Players     int    `json:"players"`
	Juice       int    `json:"juice"`
	Cushions    int    `json:"cushions"`
	HUDClients  int    `json:"hud_clients"`
	DroppedMsgs uint64 `json:"dropped_messages"`
}

// Server bundles the handlers' dependencies.
type Server struct {
	Session *game.Session
	Store   *config.Store
	Hub     *Hub
	Log     logging.Channels
}

// Routes registers every endpoint on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", s.HandleStatus)
	mux.HandleFunc("GET /api/players", s.HandleGetPlayers)
	mux.HandleFunc("GET /api/juice", s.HandleGetJuice)
	mux.HandleFunc("GET /api/juice/{subtype}", s.HandleGetJuiceType)
	mux.HandleFunc("POST /api/juice", s.HandleRegisterJuice)
	mux.HandleFunc("GET /api/settings", s.HandleGetSettings)
	mux.HandleFunc("POST /api/settings", s.HandleSettingsCommand)
	mux.HandleFunc("POST /api/settings/reload", s.HandleReloadSettings)
	mux.HandleFunc("POST /api/settings/save", s.HandleSaveSettings)
	if s.Hub != nil {
		mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
			ServeWs(s.Hub, w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// HandleStatus reports tick count and feed health.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Tick:    s.Session.CurrentTick(),
		Players: len(s.Session.Players()),
	}
	resp.Juice, resp.Cushions = s.Session.Catalog()
	if s.Hub != nil {
		resp.HUDClients = s.Hub.Clients()
		resp.DroppedMsgs = s.Hub.Dropped()
	}
	writeJSON(w, resp)
}

// HandleGetPlayers returns every tracked player with their toxicity.
func (s *Server) HandleGetPlayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Players())
}

// HandleGetJuice returns the juice catalog in registration order.
func (s *Server) HandleGetJuice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.JuiceDefinitions())
}

// HandleGetJuiceType returns one catalog entry.
func (s *Server) HandleGetJuiceType(w http.ResponseWriter, r *http.Request) {
	def, ok := s.Session.LookupJuice(r.PathValue("subtype"))
	if !ok {
		http.Error(w, "Juice type not registered", http.StatusNotFound)
		return
	}
	writeJSON(w, def)
}

// HandleRegisterJuice feeds a raw msgpack payload through the
// registration hook.
func (s *Server) HandleRegisterJuice(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayload))
	if err != nil || len(payload) == 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := RegisterJuice(s.Session, s.Log, payload); err != nil {
		switch {
		case errors.Is(err, game.ErrDuplicateJuice):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(s.Session.JuiceDefinitions())
}

// HandleGetSettings returns the active settings.
func (s *Server) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.Settings())
}

// HandleSettingsCommand runs one command from the config table.
func (s *Server) HandleSettingsCommand(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxPayload)).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if req.Op == "list" {
		writeJSON(w, SettingsResponse{Fields: config.FieldNames()})
		return
	}

	var value string
	_, err := s.Session.UpdateSettings(func(st *config.Settings) error {
		v, err := config.Apply(st, config.Op(req.Op), req.Field, req.Value)
		value = v
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, config.ErrUnknownField):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	if config.Op(req.Op) != config.OpView {
		s.Log.Game.Info("API: settings changed", "op", req.Op, "field", req.Field, "value", value)
	}
	writeJSON(w, SettingsResponse{Field: req.Field, Value: value})
}

// HandleReloadSettings re-reads the config files. A missing or broken file
// leaves the active settings in place.
func (s *Server) HandleReloadSettings(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "No config store", http.StatusServiceUnavailable)
		return
	}
	current := s.Session.Settings()
	loaded := s.Store.TryLoad(current)
	if err := loaded.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.Session.SetSettings(loaded)
	s.Log.UI.Info("Config reloaded")
	writeJSON(w, s.Session.Settings())
}

// HandleSaveSettings writes the active settings to both tiers.
func (s *Server) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	if s.Store == nil {
		http.Error(w, "No config store", http.StatusServiceUnavailable)
		return
	}
	if err := s.Store.Save(s.Session.Settings(), true); err != nil {
		s.Log.Game.Error("API: failed to save settings", "err", err)
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}
	s.Log.UI.Info("Config saved")
	writeJSON(w, s.Session.Settings())
}
