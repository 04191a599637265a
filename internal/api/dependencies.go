package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/autoview-core/internal/dependency"
)

// handleDependencyGraph returns the full cross-automation dependency graph,
// rebuilt from the current definition snapshot.
func (s *Server) handleDependencyGraph(w http.ResponseWriter, r *http.Request) {
	defs := s.registry.DefinitionSnapshot(r.Context())

	start := time.Now()
	depGraph := s.engine.Build(defs)

	if s.influx != nil {
		s.influx.WriteAnalysisMetric(
			depGraph.TotalAutomations,
			depGraph.TotalDependencies,
			len(depGraph.CircularDependencies),
			float64(time.Since(start).Microseconds())/1000.0,
		)
	}

	writeJSON(w, http.StatusOK, depGraph)
}

// handleDependencyChains returns every dependency chain with its risk
// assessment attached.
func (s *Server) handleDependencyChains(w http.ResponseWriter, r *http.Request) {
	defs := s.registry.DefinitionSnapshot(r.Context())
	chains := s.engine.FindChains(defs)

	type assessedChain struct {
		dependency.Chain
		Assessment dependency.RiskAssessment `json:"assessment"`
	}

	assessed := make([]assessedChain, 0, len(chains))
	for _, chain := range chains {
		assessed = append(assessed, assessedChain{
			Chain:      chain,
			Assessment: s.engine.ChainRisk(chain),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"chains": assessed, "count": len(assessed)})
}

// handleCircularDependencies returns the detected circular chains.
func (s *Server) handleCircularDependencies(w http.ResponseWriter, r *http.Request) {
	defs := s.registry.DefinitionSnapshot(r.Context())
	cycles := s.engine.DetectCircular(defs)

	writeJSON(w, http.StatusOK, map[string]any{
		"circular_dependencies": cycles,
		"count":                 len(cycles),
		"has_circular_deps":     len(cycles) > 0,
	})
}

// handleOpportunities returns suggested simplifications of the automation set.
func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	defs := s.registry.DefinitionSnapshot(r.Context())
	opportunities := s.engine.Opportunities(defs)

	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": opportunities,
		"count":         len(opportunities),
	})
}

// handleImpactAnalysis returns the cascade impact of disabling or modifying
// one automation.
func (s *Server) handleImpactAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	defs := s.registry.DefinitionSnapshot(r.Context())
	impact, err := s.engine.AnalyzeImpact(defs, id)
	if err != nil {
		if errors.Is(err, dependency.ErrAutomationNotFound) {
			writeNotFound(w, "automation not found")
			return
		}
		writeInternalError(w, "failed to analyse impact")
		return
	}

	if s.influx != nil {
		s.influx.WriteRiskMetric(id, riskScoreOf(impact.RiskLevel), impact.TotalAffected)
	}

	writeJSON(w, http.StatusOK, impact)
}

// handleExecutionOrder returns the simulated execution order starting from
// one automation.
func (s *Server) handleExecutionOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" || len(id) > maxQueryParamLen {
		writeBadRequest(w, "invalid automation ID")
		return
	}

	defs := s.registry.DefinitionSnapshot(r.Context())
	if _, ok := defs[id]; !ok {
		writeNotFound(w, "automation not found")
		return
	}

	steps := s.engine.SimulateExecutionOrder(defs, id)
	writeJSON(w, http.StatusOK, map[string]any{"execution_order": steps, "count": len(steps)})
}

// riskScoreOf flattens a risk level into a numeric score for telemetry.
func riskScoreOf(level dependency.RiskLevel) float64 {
	switch level {
	case dependency.RiskHigh:
		return 1.0
	case dependency.RiskMedium:
		return 0.5
	default:
		return 0.1
	}
}
