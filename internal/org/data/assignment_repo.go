package data

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/duongdat/filehub-backend/internal/authz"
	"github.com/duongdat/filehub-backend/internal/org/biz"
	"github.com/duongdat/filehub-backend/internal/pkg/database"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
)

// UserDepartmentPO links users to departments
type UserDepartmentPO struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	UserID       int64     `gorm:"not null;uniqueIndex:idx_user_department"`
	DepartmentID int64     `gorm:"not null;uniqueIndex:idx_user_department;index"`
	Role         string    `gorm:"size:20;not null;default:MEMBER"`
	IsActive     bool      `gorm:"not null;default:true;index"`
	AssignedAt   time.Time `gorm:"autoCreateTime"`
	AssignedBy   int64     `gorm:"not null"`
}

func (UserDepartmentPO) TableName() string {
	return "user_departments"
}

// UserProjectPO links users to projects
type UserProjectPO struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	UserID     int64     `gorm:"not null;uniqueIndex:idx_user_project"`
	ProjectID  int64     `gorm:"not null;uniqueIndex:idx_user_project;index"`
	Role       string    `gorm:"size:20;not null;default:MEMBER"`
	IsActive   bool      `gorm:"not null;default:true;index"`
	AssignedAt time.Time `gorm:"autoCreateTime"`
	AssignedBy int64     `gorm:"not null"`
}

func (UserProjectPO) TableName() string {
	return "user_projects"
}

// AssignmentRepo persists user assignments. It doubles as the membership
// source for authorization decisions.
type AssignmentRepo struct {
	db *database.DB
}

func NewAssignmentRepo(db *database.DB) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// ---- biz.AssignmentRepo ----

func (r *AssignmentRepo) AssignToDepartment(ctx context.Context, a *biz.Assignment) error {
	// The existence check and the write that follows must see the same
	// row state, so both run inside one transaction.
	return r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		// Reactivate a previously removed assignment instead of
		// inserting a second row for the same pair.
		var existing UserDepartmentPO
		err := tx.Where("user_id = ? AND department_id = ?", a.UserID, a.TargetID).
			First(&existing).Error
		if err == nil {
			if existing.IsActive {
				return apperrors.New(apperrors.ErrAssignmentExists)
			}
			result := tx.Model(&UserDepartmentPO{}).
				Where("id = ?", existing.ID).
				Updates(map[string]interface{}{
					"is_active":   true,
					"role":        a.Role,
					"assigned_at": time.Now().UTC(),
					"assigned_by": a.AssignedBy,
				})
			if result.Error != nil {
				return result.Error
			}
			a.ID = existing.ID
			return nil
		}
		if !database.IsRecordNotFoundError(err) {
			return err
		}

		po := &UserDepartmentPO{
			UserID:       a.UserID,
			DepartmentID: a.TargetID,
			Role:         a.Role,
			IsActive:     true,
			AssignedBy:   a.AssignedBy,
		}
		if err := tx.Create(po).Error; err != nil {
			if database.IsDuplicateKeyError(err) {
				return apperrors.New(apperrors.ErrAssignmentExists)
			}
			return err
		}
		a.ID = po.ID
		a.AssignedAt = po.AssignedAt
		return nil
	})
}

func (r *AssignmentRepo) RemoveFromDepartment(ctx context.Context, userID, departmentID int64) error {
	result := r.db.WithContext(ctx).
		Model(&UserDepartmentPO{}).
		Where("user_id = ? AND department_id = ? AND is_active = true", userID, departmentID).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrAssignmentNotFound)
	}
	return nil
}

func (r *AssignmentRepo) UpdateDepartmentRole(ctx context.Context, userID, departmentID int64, role string) error {
	result := r.db.WithContext(ctx).
		Model(&UserDepartmentPO{}).
		Where("user_id = ? AND department_id = ? AND is_active = true", userID, departmentID).
		UpdateColumn("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrAssignmentNotFound)
	}
	return nil
}

func (r *AssignmentRepo) ListDepartmentUsers(ctx context.Context, departmentID int64) ([]*biz.Assignment, error) {
	var pos []UserDepartmentPO
	err := r.db.WithContext(ctx).
		Where("department_id = ? AND is_active = true", departmentID).
		Order("assigned_at ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	out := make([]*biz.Assignment, 0, len(pos))
	for i := range pos {
		out = append(out, toDeptAssignment(&pos[i]))
	}
	return out, nil
}

func (r *AssignmentRepo) ListUserDepartments(ctx context.Context, userID int64) ([]*biz.Assignment, error) {
	var pos []UserDepartmentPO
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = true", userID).
		Order("assigned_at ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	out := make([]*biz.Assignment, 0, len(pos))
	for i := range pos {
		out = append(out, toDeptAssignment(&pos[i]))
	}
	return out, nil
}

func (r *AssignmentRepo) AssignToProject(ctx context.Context, a *biz.Assignment) error {
	return r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		var existing UserProjectPO
		err := tx.Where("user_id = ? AND project_id = ?", a.UserID, a.TargetID).
			First(&existing).Error
		if err == nil {
			if existing.IsActive {
				return apperrors.New(apperrors.ErrAssignmentExists)
			}
			result := tx.Model(&UserProjectPO{}).
				Where("id = ?", existing.ID).
				Updates(map[string]interface{}{
					"is_active":   true,
					"role":        a.Role,
					"assigned_at": time.Now().UTC(),
					"assigned_by": a.AssignedBy,
				})
			if result.Error != nil {
				return result.Error
			}
			a.ID = existing.ID
			return nil
		}
		if !database.IsRecordNotFoundError(err) {
			return err
		}

		po := &UserProjectPO{
			UserID:     a.UserID,
			ProjectID:  a.TargetID,
			Role:       a.Role,
			IsActive:   true,
			AssignedBy: a.AssignedBy,
		}
		if err := tx.Create(po).Error; err != nil {
			if database.IsDuplicateKeyError(err) {
				return apperrors.New(apperrors.ErrAssignmentExists)
			}
			return err
		}
		a.ID = po.ID
		a.AssignedAt = po.AssignedAt
		return nil
	})
}

func (r *AssignmentRepo) RemoveFromProject(ctx context.Context, userID, projectID int64) error {
	result := r.db.WithContext(ctx).
		Model(&UserProjectPO{}).
		Where("user_id = ? AND project_id = ? AND is_active = true", userID, projectID).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrAssignmentNotFound)
	}
	return nil
}

func (r *AssignmentRepo) UpdateProjectRole(ctx context.Context, userID, projectID int64, role string) error {
	result := r.db.WithContext(ctx).
		Model(&UserProjectPO{}).
		Where("user_id = ? AND project_id = ? AND is_active = true", userID, projectID).
		UpdateColumn("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrAssignmentNotFound)
	}
	return nil
}

func (r *AssignmentRepo) ListProjectUsers(ctx context.Context, projectID int64) ([]*biz.Assignment, error) {
	var pos []UserProjectPO
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND is_active = true", projectID).
		Order("assigned_at ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	out := make([]*biz.Assignment, 0, len(pos))
	for i := range pos {
		out = append(out, toProjAssignment(&pos[i]))
	}
	return out, nil
}

func (r *AssignmentRepo) ListUserProjects(ctx context.Context, userID int64) ([]*biz.Assignment, error) {
	var pos []UserProjectPO
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = true", userID).
		Order("assigned_at ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	out := make([]*biz.Assignment, 0, len(pos))
	for i := range pos {
		out = append(out, toProjAssignment(&pos[i]))
	}
	return out, nil
}

// ---- authorization views ----

// DeptMembershipView adapts the repo to authz.DepartmentMemberships
type DeptMembershipView struct {
	r *AssignmentRepo
}

// Departments returns the department membership view
func (r *AssignmentRepo) Departments() *DeptMembershipView {
	return &DeptMembershipView{r: r}
}

func (v *DeptMembershipView) ActiveMembership(ctx context.Context, userID, departmentID int64) (*authz.Membership, error) {
	var po UserDepartmentPO
	err := v.r.db.WithContext(ctx).
		Where("user_id = ? AND department_id = ? AND is_active = true", userID, departmentID).
		First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &authz.Membership{Role: po.Role}, nil
}

func (v *DeptMembershipView) ActiveDepartmentIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := v.r.db.WithContext(ctx).
		Model(&UserDepartmentPO{}).
		Where("user_id = ? AND is_active = true", userID).
		Pluck("department_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ProjMembershipView adapts the repo to authz.ProjectMemberships
type ProjMembershipView struct {
	r *AssignmentRepo
}

// Projects returns the project membership view
func (r *AssignmentRepo) Projects() *ProjMembershipView {
	return &ProjMembershipView{r: r}
}

func (v *ProjMembershipView) ActiveMembership(ctx context.Context, userID, projectID int64) (*authz.Membership, error) {
	var po UserProjectPO
	err := v.r.db.WithContext(ctx).
		Where("user_id = ? AND project_id = ? AND is_active = true", userID, projectID).
		First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return &authz.Membership{Role: po.Role}, nil
}

func (v *ProjMembershipView) ActiveProjectIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	err := v.r.db.WithContext(ctx).
		Model(&UserProjectPO{}).
		Where("user_id = ? AND is_active = true", userID).
		Pluck("project_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func toDeptAssignment(po *UserDepartmentPO) *biz.Assignment {
	return &biz.Assignment{
		ID:         po.ID,
		UserID:     po.UserID,
		TargetID:   po.DepartmentID,
		Role:       po.Role,
		IsActive:   po.IsActive,
		AssignedAt: po.AssignedAt,
		AssignedBy: po.AssignedBy,
	}
}

func toProjAssignment(po *UserProjectPO) *biz.Assignment {
	return &biz.Assignment{
		ID:         po.ID,
		UserID:     po.UserID,
		TargetID:   po.ProjectID,
		Role:       po.Role,
		IsActive:   po.IsActive,
		AssignedAt: po.AssignedAt,
		AssignedBy: po.AssignedBy,
	}
}
