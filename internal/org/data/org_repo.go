package data

import (
	"context"
	"time"

	"github.com/duongdat/filehub-backend/internal/org/biz"
	"github.com/duongdat/filehub-backend/internal/pkg/database"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
)

// DepartmentPO is the gorm model for departments
type DepartmentPO struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"size:100;uniqueIndex;not null"`
	Description string  `gorm:"type:text"`
	ManagerID   *int64  `gorm:"index"`
	ParentID    *int64  `gorm:"index"`
	IsActive    bool    `gorm:"not null;default:true;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

func (DepartmentPO) TableName() string {
	return "departments"
}

// ProjectPO is the gorm model for projects
type ProjectPO struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"size:100;not null"`
	Description  string `gorm:"type:text"`
	DepartmentID int64  `gorm:"not null;index"`
	Status       string `gorm:"size:20;not null;default:PLANNING;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (ProjectPO) TableName() string {
	return "projects"
}

// DepartmentRepo persists departments via gorm
type DepartmentRepo struct {
	db *database.DB
}

func NewDepartmentRepo(db *database.DB) *DepartmentRepo {
	return &DepartmentRepo{db: db}
}

func (r *DepartmentRepo) Create(ctx context.Context, d *biz.Department) error {
	po := toDepartmentPO(d)
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		if database.IsDuplicateKeyError(err) {
			return apperrors.New(apperrors.ErrDepartmentExists)
		}
		return err
	}
	d.ID = po.ID
	d.CreatedAt = po.CreatedAt
	d.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *DepartmentRepo) GetByID(ctx context.Context, id int64) (*biz.Department, error) {
	var po DepartmentPO
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = true", id).
		First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrDepartmentNotFound)
		}
		return nil, err
	}
	return toBizDepartment(&po), nil
}

func (r *DepartmentRepo) List(ctx context.Context, name string, activeOnly bool) ([]*biz.Department, error) {
	var pos []DepartmentPO
	err := r.db.WithContext(ctx).
		Scopes(
			database.WhereIf(name != "", "name ILIKE ?", "%"+name+"%"),
			database.WhereIf(activeOnly, "is_active = true"),
		).
		Order("name ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	depts := make([]*biz.Department, 0, len(pos))
	for i := range pos {
		depts = append(depts, toBizDepartment(&pos[i]))
	}
	return depts, nil
}

func (r *DepartmentRepo) Update(ctx context.Context, d *biz.Department) error {
	result := r.db.WithContext(ctx).
		Model(&DepartmentPO{}).
		Where("id = ? AND is_active = true", d.ID).
		Updates(map[string]interface{}{
			"name":        d.Name,
			"description": d.Description,
			"manager_id":  d.ManagerID,
			"parent_id":   d.ParentID,
		})
	if result.Error != nil {
		if database.IsDuplicateKeyError(result.Error) {
			return apperrors.New(apperrors.ErrDepartmentExists)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrDepartmentNotFound)
	}
	return nil
}

func (r *DepartmentRepo) Deactivate(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&DepartmentPO{}).
		Where("id = ? AND is_active = true", id).
		UpdateColumn("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrDepartmentNotFound)
	}
	return nil
}

func (r *DepartmentRepo) CountUsers(ctx context.Context, departmentID int64) (int64, error) {
	return database.Count(ctx, r.db.DB, &UserDepartmentPO{},
		"department_id = ? AND is_active = true", departmentID)
}

// ProjectRepo persists projects via gorm
type ProjectRepo struct {
	db *database.DB
}

func NewProjectRepo(db *database.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, p *biz.Project) error {
	po := toProjectPO(p)
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return err
	}
	p.ID = po.ID
	p.CreatedAt = po.CreatedAt
	p.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id int64) (*biz.Project, error) {
	var po ProjectPO
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrProjectNotFound)
		}
		return nil, err
	}
	return toBizProject(&po), nil
}

func (r *ProjectRepo) List(ctx context.Context, departmentID *int64, status string) ([]*biz.Project, error) {
	var pos []ProjectPO
	err := r.db.WithContext(ctx).
		Scopes(
			database.WhereIf(departmentID != nil, "department_id = ?", departmentID),
			database.WhereIf(status != "", "status = ?", status),
		).
		Order("created_at DESC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	projects := make([]*biz.Project, 0, len(pos))
	for i := range pos {
		projects = append(projects, toBizProject(&pos[i]))
	}
	return projects, nil
}

func (r *ProjectRepo) Update(ctx context.Context, p *biz.Project) error {
	result := r.db.WithContext(ctx).
		Model(&ProjectPO{}).
		Where("id = ?", p.ID).
		Updates(map[string]interface{}{
			"name":        p.Name,
			"description": p.Description,
			"status":      p.Status,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrProjectNotFound)
	}
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&ProjectPO{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrProjectNotFound)
	}
	return nil
}

// CountOpenByDepartment counts projects that are not yet finished
func (r *ProjectRepo) CountOpenByDepartment(ctx context.Context, departmentID int64) (int64, error) {
	return database.Count(ctx, r.db.DB, &ProjectPO{},
		"department_id = ? AND status IN ?", departmentID,
		[]string{biz.ProjectStatusPlanning, biz.ProjectStatusActive})
}

func toDepartmentPO(d *biz.Department) *DepartmentPO {
	return &DepartmentPO{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		ManagerID:   d.ManagerID,
		ParentID:    d.ParentID,
		IsActive:    d.IsActive,
	}
}

func toBizDepartment(po *DepartmentPO) *biz.Department {
	return &biz.Department{
		ID:          po.ID,
		Name:        po.Name,
		Description: po.Description,
		ManagerID:   po.ManagerID,
		ParentID:    po.ParentID,
		IsActive:    po.IsActive,
		CreatedAt:   po.CreatedAt,
		UpdatedAt:   po.UpdatedAt,
	}
}

func toProjectPO(p *biz.Project) *ProjectPO {
	return &ProjectPO{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		DepartmentID: p.DepartmentID,
		Status:       p.Status,
	}
}

func toBizProject(po *ProjectPO) *biz.Project {
	return &biz.Project{
		ID:           po.ID,
		Name:         po.Name,
		Description:  po.Description,
		DepartmentID: po.DepartmentID,
		Status:       po.Status,
		CreatedAt:    po.CreatedAt,
		UpdatedAt:    po.UpdatedAt,
	}
}
