package service

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/duongdat/filehub-backend/internal/auth/middleware"
	"github.com/duongdat/filehub-backend/internal/org/biz"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
	"github.com/duongdat/filehub-backend/internal/pkg/response"
)

// OrgService exposes department, project and assignment management over HTTP
type OrgService struct {
	orgUseCase *biz.OrgUseCase
	logger     *logger.Logger
}

func NewOrgService(orgUseCase *biz.OrgUseCase, log *logger.Logger) *OrgService {
	return &OrgService{
		orgUseCase: orgUseCase,
		logger:     log,
	}
}

// RegisterRoutes binds the organization endpoints; all require authentication
func (s *OrgService) RegisterRoutes(rg *gin.RouterGroup) {
	departments := rg.Group("/departments")
	{
		departments.POST("", s.CreateDepartment)
		departments.GET("", s.ListDepartments)
		departments.GET("/:id", s.GetDepartment)
		departments.PUT("/:id", s.UpdateDepartment)
		departments.DELETE("/:id", s.DeleteDepartment)
		departments.GET("/:id/users", s.ListDepartmentUsers)
		departments.POST("/:id/users", s.AssignUserToDepartment)
		departments.PUT("/:id/users/:userId", s.UpdateDepartmentRole)
		departments.DELETE("/:id/users/:userId", s.RemoveUserFromDepartment)
	}

	projects := rg.Group("/projects")
	{
		projects.POST("", s.CreateProject)
		projects.GET("", s.ListProjects)
		projects.GET("/:id", s.GetProject)
		projects.PUT("/:id", s.UpdateProject)
		projects.PATCH("/:id/status", s.UpdateProjectStatus)
		projects.DELETE("/:id", s.DeleteProject)
		projects.GET("/:id/users", s.ListProjectUsers)
		projects.POST("/:id/users", s.AssignUserToProject)
		projects.PUT("/:id/users/:userId", s.UpdateProjectRole)
		projects.DELETE("/:id/users/:userId", s.RemoveUserFromProject)
	}

	users := rg.Group("/users")
	{
		users.GET("/:id/departments", s.ListUserDepartments)
		users.GET("/:id/projects", s.ListUserProjects)
	}
}

type departmentResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ManagerID   *int64 `json:"managerId"`
	ParentID    *int64 `json:"parentId"`
	IsActive    bool   `json:"isActive"`
	UserCount   int64  `json:"userCount"`
	CreatedAt   string `json:"createdAt"`
}

func toDepartmentResponse(d *biz.Department) departmentResponse {
	return departmentResponse{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		ManagerID:   d.ManagerID,
		ParentID:    d.ParentID,
		IsActive:    d.IsActive,
		UserCount:   d.UserCount,
		CreatedAt:   d.CreatedAt.Format(time.RFC3339),
	}
}

type projectResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	DepartmentID int64  `json:"departmentId"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
}

func toProjectResponse(p *biz.Project) projectResponse {
	return projectResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		DepartmentID: p.DepartmentID,
		Status:       p.Status,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
	}
}

type assignmentResponse struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"userId"`
	TargetID   int64  `json:"targetId"`
	Role       string `json:"role"`
	AssignedAt string `json:"assignedAt"`
	AssignedBy int64  `json:"assignedBy"`
}

func toAssignmentResponse(a *biz.Assignment) assignmentResponse {
	return assignmentResponse{
		ID:         a.ID,
		UserID:     a.UserID,
		TargetID:   a.TargetID,
		Role:       a.Role,
		AssignedAt: a.AssignedAt.Format(time.RFC3339),
		AssignedBy: a.AssignedBy,
	}
}

func toAssignmentResponses(assignments []*biz.Assignment) []assignmentResponse {
	out := make([]assignmentResponse, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, toAssignmentResponse(a))
	}
	return out
}

func pathParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "invalid "+name)
		return 0, false
	}
	return id, true
}

func caller(c *gin.Context) (int64, bool) {
	callerID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c)
		return 0, false
	}
	return callerID, true
}

// ---- departments ----

type departmentRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ManagerID   *int64 `json:"managerId"`
	ParentID    *int64 `json:"parentId"`
}

// CreateDepartment handles POST /departments
func (s *OrgService) CreateDepartment(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}

	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dept, err := s.orgUseCase.CreateDepartment(c.Request.Context(), callerID, &biz.Department{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
		ParentID:    req.ParentID,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toDepartmentResponse(dept))
}

// ListDepartments handles GET /departments
func (s *OrgService) ListDepartments(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}

	activeOnly := c.DefaultQuery("activeOnly", "true") != "false"
	depts, err := s.orgUseCase.ListDepartments(c.Request.Context(), c.Query("name"), activeOnly)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]departmentResponse, 0, len(depts))
	for _, d := range depts {
		out = append(out, toDepartmentResponse(d))
	}
	response.Success(c, out)
}

// GetDepartment handles GET /departments/:id
func (s *OrgService) GetDepartment(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	dept, err := s.orgUseCase.GetDepartment(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toDepartmentResponse(dept))
}

// UpdateDepartment handles PUT /departments/:id
func (s *OrgService) UpdateDepartment(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	var req departmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dept, err := s.orgUseCase.UpdateDepartment(c.Request.Context(), callerID, &biz.Department{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
		ParentID:    req.ParentID,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toDepartmentResponse(dept))
}

// DeleteDepartment handles DELETE /departments/:id
func (s *OrgService) DeleteDepartment(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	if err := s.orgUseCase.DeleteDepartment(c.Request.Context(), callerID, id); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "department deleted", nil)
}

// ---- projects ----

type projectRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	DepartmentID int64  `json:"departmentId"`
	Status       string `json:"status"`
}

// CreateProject handles POST /projects
func (s *OrgService) CreateProject(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if req.DepartmentID <= 0 {
		response.ErrorWithCode(c, apperrors.ErrInvalidParams, "departmentId")
		return
	}

	project, err := s.orgUseCase.CreateProject(c.Request.Context(), callerID, &biz.Project{
		Name:         req.Name,
		Description:  req.Description,
		DepartmentID: req.DepartmentID,
		Status:       req.Status,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toProjectResponse(project))
}

// ListProjects handles GET /projects
func (s *OrgService) ListProjects(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}

	var departmentID *int64
	if v, err := strconv.ParseInt(c.Query("departmentId"), 10, 64); err == nil {
		departmentID = &v
	}

	projects, err := s.orgUseCase.ListProjects(c.Request.Context(), departmentID, c.Query("status"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectResponse(p))
	}
	response.Success(c, out)
}

// GetProject handles GET /projects/:id
func (s *OrgService) GetProject(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	project, err := s.orgUseCase.GetProject(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toProjectResponse(project))
}

// UpdateProject handles PUT /projects/:id
func (s *OrgService) UpdateProject(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	var req projectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := s.orgUseCase.UpdateProject(c.Request.Context(), callerID, &biz.Project{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toProjectResponse(project))
}

type projectStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateProjectStatus handles PATCH /projects/:id/status
func (s *OrgService) UpdateProjectStatus(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	var req projectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	project, err := s.orgUseCase.UpdateProjectStatus(c.Request.Context(), callerID, id, req.Status)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toProjectResponse(project))
}

// DeleteProject handles DELETE /projects/:id
func (s *OrgService) DeleteProject(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	if err := s.orgUseCase.DeleteProject(c.Request.Context(), callerID, id); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "project deleted", nil)
}

// ---- assignments ----

type assignRequest struct {
	UserID int64  `json:"userId" binding:"required"`
	Role   string `json:"role"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ListDepartmentUsers handles GET /departments/:id/users
func (s *OrgService) ListDepartmentUsers(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	assignments, err := s.orgUseCase.ListDepartmentUsers(c.Request.Context(), callerID, id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toAssignmentResponses(assignments))
}

// AssignUserToDepartment handles POST /departments/:id/users
func (s *OrgService) AssignUserToDepartment(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	assignment, err := s.orgUseCase.AssignUserToDepartment(c.Request.Context(), callerID, req.UserID, id, req.Role)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toAssignmentResponse(assignment))
}

// UpdateDepartmentRole handles PUT /departments/:id/users/:userId
func (s *OrgService) UpdateDepartmentRole(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathParamID(c, "userId")
	if !ok {
		return
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.orgUseCase.UpdateDepartmentRole(c.Request.Context(), callerID, userID, id, req.Role); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "role updated", nil)
}

// RemoveUserFromDepartment handles DELETE /departments/:id/users/:userId
func (s *OrgService) RemoveUserFromDepartment(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathParamID(c, "userId")
	if !ok {
		return
	}

	if err := s.orgUseCase.RemoveUserFromDepartment(c.Request.Context(), callerID, userID, id); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "user removed", nil)
}

// ListProjectUsers handles GET /projects/:id/users
func (s *OrgService) ListProjectUsers(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	assignments, err := s.orgUseCase.ListProjectUsers(c.Request.Context(), callerID, id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toAssignmentResponses(assignments))
}

// AssignUserToProject handles POST /projects/:id/users
func (s *OrgService) AssignUserToProject(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	assignment, err := s.orgUseCase.AssignUserToProject(c.Request.Context(), callerID, req.UserID, id, req.Role)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, toAssignmentResponse(assignment))
}

// UpdateProjectRole handles PUT /projects/:id/users/:userId
func (s *OrgService) UpdateProjectRole(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathParamID(c, "userId")
	if !ok {
		return
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := s.orgUseCase.UpdateProjectRole(c.Request.Context(), callerID, userID, id, req.Role); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "role updated", nil)
}

// RemoveUserFromProject handles DELETE /projects/:id/users/:userId
func (s *OrgService) RemoveUserFromProject(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathParamID(c, "userId")
	if !ok {
		return
	}

	if err := s.orgUseCase.RemoveUserFromProject(c.Request.Context(), callerID, userID, id); err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMessage(c, "user removed", nil)
}

// ListUserDepartments handles GET /users/:id/departments
func (s *OrgService) ListUserDepartments(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	userID, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	assignments, err := s.orgUseCase.ListUserDepartments(c.Request.Context(), callerID, userID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toAssignmentResponses(assignments))
}

// ListUserProjects handles GET /users/:id/projects
func (s *OrgService) ListUserProjects(c *gin.Context) {
	callerID, ok := caller(c)
	if !ok {
		return
	}
	userID, ok := pathParamID(c, "id")
	if !ok {
		return
	}

	assignments, err := s.orgUseCase.ListUserProjects(c.Request.Context(), callerID, userID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toAssignmentResponses(assignments))
}
