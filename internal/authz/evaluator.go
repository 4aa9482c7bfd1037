package authz

import (
	"context"
)

// Global roles
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Department roles
const (
	DeptRoleMember  = "MEMBER"
	DeptRoleManager = "MANAGER"
	DeptRoleDeputy  = "DEPUTY"
)

// Project roles
const (
	ProjectRoleMember = "MEMBER"
	ProjectRoleLead   = "LEAD"
)

// File visibility levels
const (
	VisibilityPrivate    = "PRIVATE"
	VisibilityDepartment = "DEPARTMENT"
	VisibilityPublic     = "PUBLIC"
)

// NoAccessID is the sentinel placed in accessible-id sets for callers with
// no memberships at all, so IN-clauses built from the set match nothing.
const NoAccessID int64 = -1

// UserRoles resolves the global role of a user
type UserRoles interface {
	RoleOf(ctx context.Context, userID int64) (string, error)
}

// Membership is an active assignment with its role
type Membership struct {
	Role string
}

// DepartmentMemberships resolves active department assignments.
// ActiveMembership returns nil when the user has no active assignment.
type DepartmentMemberships interface {
	ActiveMembership(ctx context.Context, userID, departmentID int64) (*Membership, error)
	ActiveDepartmentIDs(ctx context.Context, userID int64) ([]int64, error)
}

// ProjectMemberships resolves active project assignments
type ProjectMemberships interface {
	ActiveMembership(ctx context.Context, userID, projectID int64) (*Membership, error)
	ActiveProjectIDs(ctx context.Context, userID int64) ([]int64, error)
}

// FileRef carries the fields of a file relevant to access decisions
type FileRef struct {
	UploaderID   int64
	DepartmentID int64
	ProjectID    *int64
	Visibility   string
}

// Evaluator answers authorization questions from role and membership data.
// All predicates fail closed: a repository error denies access.
type Evaluator struct {
	users    UserRoles
	deptRepo DepartmentMemberships
	projRepo ProjectMemberships
}

func NewEvaluator(users UserRoles, deptRepo DepartmentMemberships, projRepo ProjectMemberships) *Evaluator {
	return &Evaluator{
		users:    users,
		deptRepo: deptRepo,
		projRepo: projRepo,
	}
}

// IsAdmin reports whether the caller holds the global ADMIN role
func (e *Evaluator) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if userID <= 0 {
		return false, nil
	}
	role, err := e.users.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	return role == RoleAdmin, nil
}

// CanUploadToDepartment allows admins and active members of the department
func (e *Evaluator) CanUploadToDepartment(ctx context.Context, userID, departmentID int64) (bool, error) {
	if admin, err := e.IsAdmin(ctx, userID); err != nil || admin {
		return admin, err
	}

	m, err := e.deptRepo.ActiveMembership(ctx, userID, departmentID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// CanUploadToProject allows admins and active members of the project
func (e *Evaluator) CanUploadToProject(ctx context.Context, userID, projectID int64) (bool, error) {
	if admin, err := e.IsAdmin(ctx, userID); err != nil || admin {
		return admin, err
	}

	m, err := e.projRepo.ActiveMembership(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}

// ValidateUpload checks the caller against the upload target. A department is
// always required; when a project is named too, project membership decides.
func (e *Evaluator) ValidateUpload(ctx context.Context, userID, departmentID int64, projectID *int64) (bool, error) {
	if projectID != nil {
		return e.CanUploadToProject(ctx, userID, *projectID)
	}
	return e.CanUploadToDepartment(ctx, userID, departmentID)
}

// CanViewFile decides read access to a file. Admins and the uploader always
// pass. PUBLIC files are open to everyone. Project files require project
// membership regardless of visibility; for files without a project,
// department membership alone grants access.
func (e *Evaluator) CanViewFile(ctx context.Context, userID int64, file FileRef) (bool, error) {
	if admin, err := e.IsAdmin(ctx, userID); err != nil || admin {
		return admin, err
	}

	if file.UploaderID == userID {
		return true, nil
	}

	if file.Visibility == VisibilityPublic {
		return true, nil
	}

	if file.ProjectID != nil {
		m, err := e.projRepo.ActiveMembership(ctx, userID, *file.ProjectID)
		if err != nil {
			return false, err
		}
		return m != nil, nil
	}

	if file.DepartmentID > 0 {
		m, err := e.deptRepo.ActiveMembership(ctx, userID, file.DepartmentID)
		if err != nil {
			return false, err
		}
		return m != nil, nil
	}

	return false, nil
}

// CanDeleteFile allows only admins and the uploader. Elevated department
// and project roles do not extend to deleting other people's files.
func (e *Evaluator) CanDeleteFile(ctx context.Context, userID int64, file FileRef) (bool, error) {
	if admin, err := e.IsAdmin(ctx, userID); err != nil || admin {
		return admin, err
	}
	return file.UploaderID == userID, nil
}

// CanManageDepartmentUsers allows admins, managers and deputies
func (e *Evaluator) CanManageDepartmentUsers(ctx context.Context, userID, departmentID int64) (bool, error) {
	if admin, err := e.IsAdmin(ctx, userID); err != nil || admin {
		return admin, err
	}

	m, err := e.deptRepo.ActiveMembership(ctx, userID, departmentID)
	if err != nil {
		return false, err
	}
	return m != nil && (m.Role == DeptRoleManager || m.Role == DeptRoleDeputy), nil
}

// CanManageProjectUsers allows admins and project leads
func (e *Evaluator) CanManageProjectUsers(ctx context.Context, userID, projectID int64) (bool, error) {
	if admin, err := e.IsAdmin(ctx, userID); err != nil || admin {
		return admin, err
	}

	m, err := e.projRepo.ActiveMembership(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	return m != nil && m.Role == ProjectRoleLead, nil
}

// AccessibleDepartmentIDs returns the departments the caller may browse.
// An empty set means unrestricted access (admins). A set holding only
// NoAccessID means no access at all.
func (e *Evaluator) AccessibleDepartmentIDs(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return []int64{NoAccessID}, nil
	}

	admin, err := e.IsAdmin(ctx, userID)
	if err != nil {
		return []int64{NoAccessID}, err
	}
	if admin {
		return []int64{}, nil
	}

	ids, err := e.deptRepo.ActiveDepartmentIDs(ctx, userID)
	if err != nil {
		return []int64{NoAccessID}, err
	}
	if len(ids) == 0 {
		return []int64{NoAccessID}, nil
	}
	return ids, nil
}

// AccessibleProjectIDs mirrors AccessibleDepartmentIDs for projects
func (e *Evaluator) AccessibleProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	if userID <= 0 {
		return []int64{NoAccessID}, nil
	}

	admin, err := e.IsAdmin(ctx, userID)
	if err != nil {
		return []int64{NoAccessID}, err
	}
	if admin {
		return []int64{}, nil
	}

	ids, err := e.projRepo.ActiveProjectIDs(ctx, userID)
	if err != nil {
		return []int64{NoAccessID}, err
	}
	if len(ids) == 0 {
		return []int64{NoAccessID}, nil
	}
	return ids, nil
}
