package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novamark/agencydesk-backend/internal/http/response"
	"github.com/novamark/agencydesk-backend/internal/pkg/ctxutil"
	"github.com/novamark/agencydesk-backend/internal/services"
)

type DirectoryHandler struct {
	directory services.DirectoryService
}

func NewDirectoryHandler(directory services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directory: directory}
}

type createClientReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
}

// POST /api/admin/clients
func (h *DirectoryHandler) CreateClient(c *gin.Context) {
	var req createClientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	client, err := h.directory.CreateClient(c.Request.Context(), req.Name, req.Email, req.Company)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"client": client})
}

// GET /api/admin/clients
func (h *DirectoryHandler) ListClients(c *gin.Context) {
	clients, err := h.directory.ListClients(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"clients": clients})
}

type createProjectReq struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// POST /api/admin/projects
func (h *DirectoryHandler) CreateProject(c *gin.Context) {
	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	project, err := h.directory.CreateProject(c.Request.Context(), req.ClientID, req.Name)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"project": project})
}

// GET /api/projects
func (h *DirectoryHandler) ListOwnProjects(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	projects, err := h.directory.ListProjectsForClient(c.Request.Context(), rd.UserID.String())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"projects": projects})
}
