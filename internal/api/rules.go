package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/codelaboratoryltd/netfab/internal/audit"
)

// RuleResponse represents a rule in API responses. Checks are code, so the
// API only exposes listing and toggling.
type RuleResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

// listRules returns the rule set in evaluation order.
func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	rules := s.engine.Rules()

	response := make([]RuleResponse, 0, len(rules))
	for _, rule := range rules {
		response = append(response, RuleResponse{
			ID:       rule.ID,
			Name:     rule.Name,
			Priority: rule.Priority,
			Enabled:  rule.Enabled,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rules": response,
		"count": len(response),
	})
}

// enableRule turns a rule on.
func (s *Server) enableRule(w http.ResponseWriter, r *http.Request) {
	s.toggleRule(w, r, true)
}

// disableRule turns a rule off.
func (s *Server) disableRule(w http.ResponseWriter, r *http.Request) {
	s.toggleRule(w, r, false)
}

func (s *Server) toggleRule(w http.ResponseWriter, r *http.Request, enabled bool) {
	vars := mux.Vars(r)
	id := vars["id"]

	if err := s.engine.SetEnabled(id, enabled); err != nil {
		respondDomainError(w, err)
		return
	}

	if s.audit != nil {
		s.audit.LogRuleChange(r.Context(), audit.EventRuleToggled, id)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"enabled": enabled,
	})
}
