package handlers

import (
	"encoding/json"
	"net/http"

	"trackup/models"
	"trackup/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// ProjectHandler serves the sidebar's team and member views.
type ProjectHandler struct {
	service *services.ProjectService
	logger  *zap.Logger
}

func NewProjectHandler(service *services.ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{service: service, logger: logger}
}

func (h *ProjectHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/teams", h.GetTeams).Methods("GET")
	router.HandleFunc("/api/teams/{team_name}", h.DeleteTeam).Methods("DELETE")
	router.HandleFunc("/api/teams/{team_name}/members/{member_name}", h.RemoveMember).Methods("DELETE")
	router.HandleFunc("/api/tasks/{task_id}", h.DeleteTask).Methods("DELETE")
	router.HandleFunc("/api/tasks/{task_id}", h.UpdateTaskStatus).Methods("PATCH")
	router.HandleFunc("/api/member/{member_name}", h.GetMember).Methods("GET")
}

// GetTeams returns team name -> members.
func (h *ProjectHandler) GetTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.service.GetAllTeams(r.Context())
	if err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve teams")
		return
	}

	out := make(map[string][]string, len(teams))
	for _, team := range teams {
		members := team.Members
		if members == nil {
			members = []string{}
		}
		out[team.Name] = members
	}

	h.writeJSONResponse(w, http.StatusOK, out)
}

func (h *ProjectHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.writeResult(w, h.service.DeleteTeam(r.Context(), vars["team_name"]))
}

func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.writeResult(w, h.service.RemoveMember(r.Context(), vars["team_name"], vars["member_name"]))
}

func (h *ProjectHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	h.writeResult(w, h.service.DeleteTask(r.Context(), vars["task_id"]))
}

func (h *ProjectHandler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTaskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	vars := mux.Vars(r)
	h.writeResult(w, h.service.UpdateTaskStatus(r.Context(), vars["task_id"], req.Status))
}

func (h *ProjectHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	summary, err := h.service.MemberSummary(r.Context(), vars["member_name"])
	if err != nil {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve member details")
		return
	}
	if summary.Tasks == nil {
		summary.Tasks = []*models.Task{}
	}

	h.writeJSONResponse(w, http.StatusOK, summary)
}

func (h *ProjectHandler) writeResult(w http.ResponseWriter, result models.ToolResult) {
	h.writeJSONResponse(w, statusForResult(result.Kind), map[string]string{"message": result.Message})
}

func statusForResult(kind models.ResultKind) int {
	switch kind {
	case models.ResultOK:
		return http.StatusOK
	case models.ResultNotFound:
		return http.StatusNotFound
	case models.ResultConflict:
		return http.StatusConflict
	case models.ResultInvalid:
		return http.StatusBadRequest
	case models.ResultUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *ProjectHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (h *ProjectHandler) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	h.writeJSONResponse(w, statusCode, map[string]string{"error": message})
}
