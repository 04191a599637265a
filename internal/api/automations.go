package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/autoview-core/internal/automation"
	"github.com/nerrad567/autoview-core/internal/graph"
)

// maxQueryParamLen limits URL parameter length to prevent DoS via oversized params.
const maxQueryParamLen = 100

// handleListAutomations returns all registered automations.
func (s *Server) handleListAutomations(w http.ResponseWriter, r *http.Request) {
	automations, err := s.registry.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list automations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"automations": automations, "count": len(automations)})
}

// handleGetAutomation returns a single automation by ID.
func (s *Server) handleGetAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	auto, err := s.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to get automation")
		return
	}

	writeJSON(w, http.StatusOK, auto)
}

// handleCreateAutomation registers a new automation definition.
func (s *Server) handleCreateAutomation(w http.ResponseWriter, r *http.Request) {
	var auto automation.Automation
	if err := json.NewDecoder(r.Body).Decode(&auto); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.registry.Create(r.Context(), &auto); err != nil {
		if errors.Is(err, automation.ErrInvalid) || errors.Is(err, automation.ErrInvalidAlias) ||
			errors.Is(err, automation.ErrInvalidDefinition) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		if errors.Is(err, automation.ErrExists) {
			writeError(w, http.StatusConflict, ErrCodeConflict, err.Error())
			return
		}
		writeInternalError(w, "failed to create automation")
		return
	}

	s.notifyDefinitionChanged(auto.ID)
	writeJSON(w, http.StatusCreated, auto)
}

// handleUpdateAutomation partially updates an automation.
func (s *Server) handleUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	// Get existing automation
	existing, err := s.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to get automation")
		return
	}

	// Decode partial update onto existing automation
	if err := json.NewDecoder(r.Body).Decode(existing); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	existing.ID = id // Ensure ID cannot be changed

	if err := s.registry.Update(r.Context(), existing); err != nil {
		if errors.Is(err, automation.ErrInvalid) || errors.Is(err, automation.ErrInvalidAlias) ||
			errors.Is(err, automation.ErrInvalidDefinition) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to update automation")
		return
	}

	s.notifyDefinitionChanged(id)
	writeJSON(w, http.StatusOK, existing)
}

// handleDeleteAutomation removes an automation by ID.
func (s *Server) handleDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	if err := s.registry.Delete(r.Context(), id); err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to delete automation")
		return
	}

	s.notifyDefinitionChanged(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleGetGraph parses one automation's definition into its node/edge graph.
func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	auto, err := s.registry.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, automation.ErrNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to get automation")
		return
	}

	g, err := s.parseGraph(id, auto)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, ErrCodeValidation, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, g)
}

// graphListEntry is one item of the batch graph listing. Parse failures are
// reported per item so one malformed definition cannot sink the whole batch.
type graphListEntry struct {
	AutomationID string       `json:"automation_id"`
	Alias        string       `json:"alias"`
	Graph        *graph.Graph `json:"graph,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// handleListGraphs parses every registered automation into its graph.
func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	automations, err := s.registry.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list automations")
		return
	}

	entries := make([]graphListEntry, 0, len(automations))
	for i := range automations {
		auto := &automations[i]
		entry := graphListEntry{AutomationID: auto.ID, Alias: auto.Alias}

		g, err := s.parseGraph(auto.ID, auto)
		if err != nil {
			entry.Error = err.Error()
		} else {
			entry.Graph = g
		}
		entries = append(entries, entry)
	}

	writeJSON(w, http.StatusOK, map[string]any{"graphs": entries, "count": len(entries)})
}

// parseGraph runs the parser over one automation's definition, stamping the
// graph metadata with the registry identity and recording parse telemetry.
func (s *Server) parseGraph(id string, auto *automation.Automation) (*graph.Graph, error) {
	definition := auto.Definition
	if definition == nil {
		definition = map[string]any{}
	}
	if _, ok := definition["id"]; !ok {
		definition["id"] = id
	}
	if _, ok := definition["alias"]; !ok && auto.Alias != "" {
		definition["alias"] = auto.Alias
	}

	start := time.Now()
	g, err := graph.Parse(definition)
	if err != nil {
		return nil, err
	}

	if limit := s.analysisCfg.MaxGraphNodes; limit > 0 && len(g.Nodes) > limit {
		s.logger.Warn("graph exceeds node cap",
			"automation_id", id,
			"nodes", len(g.Nodes),
			"cap", limit,
		)
	}

	if s.influx != nil {
		s.influx.WriteParseMetric(id, len(g.Nodes), float64(time.Since(start).Microseconds())/1000.0)
	}

	return g, nil
}
