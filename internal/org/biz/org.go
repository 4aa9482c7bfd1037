package biz

import (
	"context"
	"strings"
	"time"

	"github.com/duongdat/filehub-backend/internal/authz"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
)

// Project statuses
const (
	ProjectStatusPlanning  = "PLANNING"
	ProjectStatusActive    = "ACTIVE"
	ProjectStatusCompleted = "COMPLETED"
	ProjectStatusCancelled = "CANCELLED"
)

// Department is an organizational unit owning files and projects
type Department struct {
	ID          int64
	Name        string
	Description string
	ManagerID   *int64
	ParentID    *int64
	IsActive    bool
	UserCount   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Project groups files under a department
type Project struct {
	ID           int64
	Name         string
	Description  string
	DepartmentID int64
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Assignment links a user to a department or project with a role
type Assignment struct {
	ID         int64
	UserID     int64
	TargetID   int64 // department or project id
	Role       string
	IsActive   bool
	AssignedAt time.Time
	AssignedBy int64
}

// DepartmentRepo persists departments
type DepartmentRepo interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id int64) (*Department, error)
	List(ctx context.Context, name string, activeOnly bool) ([]*Department, error)
	Update(ctx context.Context, d *Department) error
	Deactivate(ctx context.Context, id int64) error
	CountUsers(ctx context.Context, departmentID int64) (int64, error)
}

// ProjectRepo persists projects
type ProjectRepo interface {
	Create(ctx context.Context, p *Project) error
	GetByID(ctx context.Context, id int64) (*Project, error)
	List(ctx context.Context, departmentID *int64, status string) ([]*Project, error)
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id int64) error
	CountOpenByDepartment(ctx context.Context, departmentID int64) (int64, error)
}

// AssignmentRepo persists user-to-department and user-to-project links
type AssignmentRepo interface {
	AssignToDepartment(ctx context.Context, a *Assignment) error
	RemoveFromDepartment(ctx context.Context, userID, departmentID int64) error
	UpdateDepartmentRole(ctx context.Context, userID, departmentID int64, role string) error
	ListDepartmentUsers(ctx context.Context, departmentID int64) ([]*Assignment, error)
	ListUserDepartments(ctx context.Context, userID int64) ([]*Assignment, error)

	AssignToProject(ctx context.Context, a *Assignment) error
	RemoveFromProject(ctx context.Context, userID, projectID int64) error
	UpdateProjectRole(ctx context.Context, userID, projectID int64, role string) error
	ListProjectUsers(ctx context.Context, projectID int64) ([]*Assignment, error)
	ListUserProjects(ctx context.Context, userID int64) ([]*Assignment, error)
}

// FileCounter reports how many live files a project still has
type FileCounter interface {
	CountByProject(ctx context.Context, projectID int64) (int64, error)
}

// OrgUseCase implements department, project and assignment management
type OrgUseCase struct {
	departments DepartmentRepo
	projects    ProjectRepo
	assignments AssignmentRepo
	files       FileCounter
	evaluator   *authz.Evaluator
}

func NewOrgUseCase(
	departments DepartmentRepo,
	projects ProjectRepo,
	assignments AssignmentRepo,
	files FileCounter,
	evaluator *authz.Evaluator,
) *OrgUseCase {
	return &OrgUseCase{
		departments: departments,
		projects:    projects,
		assignments: assignments,
		files:       files,
		evaluator:   evaluator,
	}
}

func (uc *OrgUseCase) requireAdmin(ctx context.Context, callerID int64) error {
	admin, err := uc.evaluator.IsAdmin(ctx, callerID)
	if err != nil {
		return err
	}
	if !admin {
		return apperrors.New(apperrors.ErrForbidden)
	}
	return nil
}

// ---- departments ----

// CreateDepartment is admin only
func (uc *OrgUseCase) CreateDepartment(ctx context.Context, callerID int64, d *Department) (*Department, error) {
	if err := uc.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(d.Name) == "" {
		return nil, apperrors.NewValidationError("name")
	}

	d.IsActive = true
	if err := uc.departments.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (uc *OrgUseCase) GetDepartment(ctx context.Context, id int64) (*Department, error) {
	return uc.departments.GetByID(ctx, id)
}

func (uc *OrgUseCase) ListDepartments(ctx context.Context, name string, activeOnly bool) ([]*Department, error) {
	depts, err := uc.departments.List(ctx, name, activeOnly)
	if err != nil {
		return nil, err
	}
	for _, d := range depts {
		if count, err := uc.departments.CountUsers(ctx, d.ID); err == nil {
			d.UserCount = count
		}
	}
	return depts, nil
}

// UpdateDepartment is admin only
func (uc *OrgUseCase) UpdateDepartment(ctx context.Context, callerID int64, d *Department) (*Department, error) {
	if err := uc.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	existing, err := uc.departments.GetByID(ctx, d.ID)
	if err != nil {
		return nil, err
	}

	existing.Name = d.Name
	existing.Description = d.Description
	existing.ManagerID = d.ManagerID
	existing.ParentID = d.ParentID

	if err := uc.departments.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteDepartment deactivates a department. Blocked while users are still
// assigned or open projects remain.
func (uc *OrgUseCase) DeleteDepartment(ctx context.Context, callerID, id int64) error {
	if err := uc.requireAdmin(ctx, callerID); err != nil {
		return err
	}

	if _, err := uc.departments.GetByID(ctx, id); err != nil {
		return err
	}

	users, err := uc.departments.CountUsers(ctx, id)
	if err != nil {
		return err
	}
	if users > 0 {
		return apperrors.New(apperrors.ErrDepartmentHasUsers)
	}

	open, err := uc.projects.CountOpenByDepartment(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return apperrors.New(apperrors.ErrDepartmentHasProjects)
	}

	return uc.departments.Deactivate(ctx, id)
}

// ---- projects ----

func validProjectStatus(status string) bool {
	switch status {
	case ProjectStatusPlanning, ProjectStatusActive, ProjectStatusCompleted, ProjectStatusCancelled:
		return true
	}
	return false
}

// CreateProject requires department management rights
func (uc *OrgUseCase) CreateProject(ctx context.Context, callerID int64, p *Project) (*Project, error) {
	allowed, err := uc.evaluator.CanManageDepartmentUsers(ctx, callerID, p.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrForbidden)
	}

	if strings.TrimSpace(p.Name) == "" {
		return nil, apperrors.NewValidationError("name")
	}
	if _, err := uc.departments.GetByID(ctx, p.DepartmentID); err != nil {
		return nil, err
	}

	if p.Status == "" {
		p.Status = ProjectStatusPlanning
	}
	if !validProjectStatus(p.Status) {
		return nil, apperrors.NewValidationError("status")
	}

	if err := uc.projects.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *OrgUseCase) GetProject(ctx context.Context, id int64) (*Project, error) {
	return uc.projects.GetByID(ctx, id)
}

func (uc *OrgUseCase) ListProjects(ctx context.Context, departmentID *int64, status string) ([]*Project, error) {
	if status != "" && !validProjectStatus(status) {
		return nil, apperrors.NewValidationError("status")
	}
	return uc.projects.List(ctx, departmentID, status)
}

// UpdateProject requires management rights on the owning department
func (uc *OrgUseCase) UpdateProject(ctx context.Context, callerID int64, p *Project) (*Project, error) {
	existing, err := uc.projects.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	allowed, err := uc.evaluator.CanManageDepartmentUsers(ctx, callerID, existing.DepartmentID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrForbidden)
	}

	existing.Name = p.Name
	existing.Description = p.Description

	if err := uc.projects.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// UpdateProjectStatus moves a project through its lifecycle
func (uc *OrgUseCase) UpdateProjectStatus(ctx context.Context, callerID, projectID int64, status string) (*Project, error) {
	if !validProjectStatus(status) {
		return nil, apperrors.NewValidationError("status")
	}

	existing, err := uc.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	allowed, err := uc.evaluator.CanManageProjectUsers(ctx, callerID, projectID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		// Department managers may also drive project status
		allowed, err = uc.evaluator.CanManageDepartmentUsers(ctx, callerID, existing.DepartmentID)
		if err != nil {
			return nil, err
		}
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrForbidden)
	}

	existing.Status = status
	if err := uc.projects.Update(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// DeleteProject is blocked while files are still attached
func (uc *OrgUseCase) DeleteProject(ctx context.Context, callerID, id int64) error {
	existing, err := uc.projects.GetByID(ctx, id)
	if err != nil {
		return err
	}

	allowed, err := uc.evaluator.CanManageDepartmentUsers(ctx, callerID, existing.DepartmentID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.New(apperrors.ErrForbidden)
	}

	count, err := uc.files.CountByProject(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.New(apperrors.ErrProjectHasFiles)
	}

	return uc.projects.Delete(ctx, id)
}

// ---- assignments ----

func validDepartmentRole(role string) bool {
	switch role {
	case authz.DeptRoleMember, authz.DeptRoleManager, authz.DeptRoleDeputy:
		return true
	}
	return false
}

func validProjectRole(role string) bool {
	switch role {
	case authz.ProjectRoleMember, authz.ProjectRoleLead:
		return true
	}
	return false
}

// AssignUserToDepartment adds a user to a department
func (uc *OrgUseCase) AssignUserToDepartment(ctx context.Context, callerID, userID, departmentID int64, role string) (*Assignment, error) {
	allowed, err := uc.evaluator.CanManageDepartmentUsers(ctx, callerID, departmentID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrAssignmentForbidden)
	}

	if role == "" {
		role = authz.DeptRoleMember
	}
	if !validDepartmentRole(role) {
		return nil, apperrors.NewValidationError("role")
	}
	if _, err := uc.departments.GetByID(ctx, departmentID); err != nil {
		return nil, err
	}

	a := &Assignment{
		UserID:     userID,
		TargetID:   departmentID,
		Role:       role,
		IsActive:   true,
		AssignedBy: callerID,
	}
	if err := uc.assignments.AssignToDepartment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RemoveUserFromDepartment deactivates the assignment
func (uc *OrgUseCase) RemoveUserFromDepartment(ctx context.Context, callerID, userID, departmentID int64) error {
	allowed, err := uc.evaluator.CanManageDepartmentUsers(ctx, callerID, departmentID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.New(apperrors.ErrAssignmentForbidden)
	}

	return uc.assignments.RemoveFromDepartment(ctx, userID, departmentID)
}

// UpdateDepartmentRole changes a member's role
func (uc *OrgUseCase) UpdateDepartmentRole(ctx context.Context, callerID, userID, departmentID int64, role string) error {
	allowed, err := uc.evaluator.CanManageDepartmentUsers(ctx, callerID, departmentID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.New(apperrors.ErrAssignmentForbidden)
	}
	if !validDepartmentRole(role) {
		return apperrors.NewValidationError("role")
	}

	return uc.assignments.UpdateDepartmentRole(ctx, userID, departmentID, role)
}

// ListDepartmentUsers lists a department's members, for members and managers
func (uc *OrgUseCase) ListDepartmentUsers(ctx context.Context, callerID, departmentID int64) ([]*Assignment, error) {
	allowed, err := uc.evaluator.CanUploadToDepartment(ctx, callerID, departmentID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrForbidden)
	}

	return uc.assignments.ListDepartmentUsers(ctx, departmentID)
}

// ListUserDepartments is restricted to the user themselves and admins
func (uc *OrgUseCase) ListUserDepartments(ctx context.Context, callerID, userID int64) ([]*Assignment, error) {
	if callerID != userID {
		if err := uc.requireAdmin(ctx, callerID); err != nil {
			return nil, err
		}
	}
	return uc.assignments.ListUserDepartments(ctx, userID)
}

// AssignUserToProject adds a user to a project
func (uc *OrgUseCase) AssignUserToProject(ctx context.Context, callerID, userID, projectID int64, role string) (*Assignment, error) {
	allowed, err := uc.evaluator.CanManageProjectUsers(ctx, callerID, projectID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrAssignmentForbidden)
	}

	if role == "" {
		role = authz.ProjectRoleMember
	}
	if !validProjectRole(role) {
		return nil, apperrors.NewValidationError("role")
	}
	if _, err := uc.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}

	a := &Assignment{
		UserID:     userID,
		TargetID:   projectID,
		Role:       role,
		IsActive:   true,
		AssignedBy: callerID,
	}
	if err := uc.assignments.AssignToProject(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// RemoveUserFromProject deactivates the assignment
func (uc *OrgUseCase) RemoveUserFromProject(ctx context.Context, callerID, userID, projectID int64) error {
	allowed, err := uc.evaluator.CanManageProjectUsers(ctx, callerID, projectID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.New(apperrors.ErrAssignmentForbidden)
	}

	return uc.assignments.RemoveFromProject(ctx, userID, projectID)
}

// UpdateProjectRole changes a member's role
func (uc *OrgUseCase) UpdateProjectRole(ctx context.Context, callerID, userID, projectID int64, role string) error {
	allowed, err := uc.evaluator.CanManageProjectUsers(ctx, callerID, projectID)
	if err != nil {
		return err
	}
	if !allowed {
		return apperrors.New(apperrors.ErrAssignmentForbidden)
	}
	if !validProjectRole(role) {
		return apperrors.NewValidationError("role")
	}

	return uc.assignments.UpdateProjectRole(ctx, userID, projectID, role)
}

// ListProjectUsers lists a project's members, for members and leads
func (uc *OrgUseCase) ListProjectUsers(ctx context.Context, callerID, projectID int64) ([]*Assignment, error) {
	allowed, err := uc.evaluator.CanUploadToProject(ctx, callerID, projectID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrForbidden)
	}

	return uc.assignments.ListProjectUsers(ctx, projectID)
}

// ListUserProjects is restricted to the user themselves and admins
func (uc *OrgUseCase) ListUserProjects(ctx context.Context, callerID, userID int64) ([]*Assignment, error) {
	if callerID != userID {
		if err := uc.requireAdmin(ctx, callerID); err != nil {
			return nil, err
		}
	}
	return uc.assignments.ListUserProjects(ctx, userID)
}
