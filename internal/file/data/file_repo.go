package data

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/duongdat/filehub-backend/internal/authz"
	"github.com/duongdat/filehub-backend/internal/file/biz"
	"github.com/duongdat/filehub-backend/internal/pkg/database"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
)

// FilePO is the gorm model for file metadata
type FilePO struct {
	ID                   int64      `gorm:"primaryKey;autoIncrement"`
	OriginalFilename     string     `gorm:"size:255;not null"`
	StoredFilename       string     `gorm:"size:255;not null"`
	FileHash             string     `gorm:"size:64;uniqueIndex;not null"`
	FileSize             int64      `gorm:"not null"`
	ContentType          string     `gorm:"size:100"`
	Title                string     `gorm:"size:255"`
	Description          string     `gorm:"type:text"`
	Tags                 *string    `gorm:"size:500"`
	Visibility           string     `gorm:"size:20;not null;default:PRIVATE;index"`
	DownloadCount        int64      `gorm:"not null;default:0"`
	Version              int        `gorm:"not null;default:1"`
	UploaderID           int64      `gorm:"not null;index"`
	DepartmentID         int64      `gorm:"not null;index"`
	DepartmentCategoryID *int64     `gorm:"index"`
	ProjectID            *int64     `gorm:"index"`
	FileTypeID           int64      `gorm:"not null"`
	ObjectKey            *string    `gorm:"size:255"`
	LocalPath            *string    `gorm:"size:255"`
	IsDeleted            bool       `gorm:"not null;default:false;index"`
	DeletedAt            *time.Time
	UploadedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

func (FilePO) TableName() string {
	return "files"
}

// sortColumns maps API sort keys to columns; anything else falls back
// to the upload timestamp.
var sortColumns = map[string]string{
	"uploadedAt":    "uploaded_at",
	"title":         "title",
	"size":          "file_size",
	"downloadCount": "download_count",
}

func sortColumn(key string) string {
	if col, ok := sortColumns[key]; ok {
		return col
	}
	return "uploaded_at"
}

// FileRepo persists file metadata via gorm
type FileRepo struct {
	db *database.DB
}

func NewFileRepo(db *database.DB) *FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Create(ctx context.Context, file *biz.File) error {
	po := toFilePO(file)
	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		// The hash column carries a unique index; a duplicate insert
		// means an identical file raced us in.
		if database.IsDuplicateKeyError(err) {
			return apperrors.New(apperrors.ErrFileAlreadyExists)
		}
		return err
	}
	file.ID = po.ID
	file.UploadedAt = po.UploadedAt
	file.UpdatedAt = po.UpdatedAt
	return nil
}

func (r *FileRepo) GetByID(ctx context.Context, id int64) (*biz.File, error) {
	var po FilePO
	if err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = false", id).
		First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrFileNotFound)
		}
		return nil, err
	}
	return toBizFile(&po), nil
}

// GetByHash returns nil when no live file carries the hash
func (r *FileRepo) GetByHash(ctx context.Context, hash string) (*biz.File, error) {
	var po FilePO
	if err := r.db.WithContext(ctx).
		Where("file_hash = ? AND is_deleted = false", hash).
		First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return toBizFile(&po), nil
}

// applyFilters narrows a listing by the optional query filters
func applyFilters(base *gorm.DB, q biz.ListQuery) *gorm.DB {
	return base.Scopes(
		database.WhereIf(q.Filename != "", "LOWER(original_filename) LIKE ?", "%"+strings.ToLower(q.Filename)+"%"),
		database.WhereIf(q.ContentType != "", "content_type LIKE ?", q.ContentType+"%"),
		database.WhereIf(q.DepartmentID != nil, "department_id = ?", q.DepartmentID),
		database.WhereIf(q.ProjectID != nil, "project_id = ?", q.ProjectID),
		database.WhereIf(q.FileTypeID != nil, "file_type_id = ?", q.FileTypeID),
	)
}

func (r *FileRepo) list(ctx context.Context, base *gorm.DB, q biz.ListQuery) ([]*biz.File, int64, error) {
	base = applyFilters(base, q)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var pos []FilePO
	err := base.
		Scopes(
			database.OrderBy(sortColumn(q.SortBy), q.Desc),
			database.Paginate(q.Page, q.Size),
		).
		Find(&pos).Error
	if err != nil {
		return nil, 0, err
	}

	files := make([]*biz.File, 0, len(pos))
	for i := range pos {
		files = append(files, toBizFile(&pos[i]))
	}
	return files, total, nil
}

func (r *FileRepo) ListByUploader(ctx context.Context, uploaderID int64, q biz.ListQuery) ([]*biz.File, int64, error) {
	base := r.db.WithContext(ctx).Model(&FilePO{}).
		Where("uploader_id = ? AND is_deleted = false", uploaderID)
	return r.list(ctx, base, q)
}

func (r *FileRepo) ListShared(ctx context.Context, callerID int64, deptIDs, projIDs []int64, q biz.ListQuery) ([]*biz.File, int64, error) {
	base := r.db.WithContext(ctx).Model(&FilePO{}).
		Where("is_deleted = false")

	// Empty id sets mean unrestricted access; otherwise a file is shared
	// with the caller when it is public, belongs to one of their
	// projects, or is a department file of one of their departments.
	if len(deptIDs) > 0 || len(projIDs) > 0 {
		base = base.Where(
			"visibility = ? OR (project_id IS NOT NULL AND project_id IN ?) OR (project_id IS NULL AND department_id IN ?)",
			authz.VisibilityPublic, projIDs, deptIDs,
		)
	}

	return r.list(ctx, base, q)
}

func (r *FileRepo) ListByDepartment(ctx context.Context, callerID, departmentID int64, q biz.ListQuery) ([]*biz.File, int64, error) {
	base := r.db.WithContext(ctx).Model(&FilePO{}).
		Where("department_id = ? AND project_id IS NULL AND is_deleted = false", departmentID).
		Where("visibility IN ?", []string{authz.VisibilityPublic, authz.VisibilityDepartment})
	return r.list(ctx, base, q)
}

func (r *FileRepo) ListByProject(ctx context.Context, callerID, projectID int64, q biz.ListQuery) ([]*biz.File, int64, error) {
	base := r.db.WithContext(ctx).Model(&FilePO{}).
		Where("project_id = ? AND is_deleted = false", projectID).
		Where("visibility IN ?", []string{authz.VisibilityPublic, authz.VisibilityDepartment})
	return r.list(ctx, base, q)
}

func (r *FileRepo) ListAll(ctx context.Context, q biz.ListQuery) ([]*biz.File, int64, error) {
	base := r.db.WithContext(ctx).Model(&FilePO{}).
		Where("is_deleted = false")
	return r.list(ctx, base, q)
}

func (r *FileRepo) IncrementDownloadCount(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&FilePO{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + 1")).Error
}

func (r *FileRepo) SoftDelete(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&FilePO{}).
		Where("id = ? AND is_deleted = false", id).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrFileNotFound)
	}
	return nil
}

// CountByProject counts live files attached to a project
func (r *FileRepo) CountByProject(ctx context.Context, projectID int64) (int64, error) {
	return database.Count(ctx, r.db.DB, &FilePO{}, "project_id = ? AND is_deleted = false", projectID)
}

func toFilePO(f *biz.File) *FilePO {
	return &FilePO{
		ID:                   f.ID,
		OriginalFilename:     f.OriginalFilename,
		StoredFilename:       f.StoredFilename,
		FileHash:             f.FileHash,
		FileSize:             f.Size,
		ContentType:          f.ContentType,
		Title:                f.Title,
		Description:          f.Description,
		Tags:                 f.Tags,
		Visibility:           f.Visibility,
		DownloadCount:        f.DownloadCount,
		Version:              f.Version,
		UploaderID:           f.UploaderID,
		DepartmentID:         f.DepartmentID,
		DepartmentCategoryID: f.DepartmentCategoryID,
		ProjectID:            f.ProjectID,
		FileTypeID:           f.FileTypeID,
		ObjectKey:            f.ObjectKey,
		LocalPath:            f.LocalPath,
		IsDeleted:            f.IsDeleted,
		UploadedAt:           f.UploadedAt,
		UpdatedAt:            f.UpdatedAt,
	}
}

func toBizFile(po *FilePO) *biz.File {
	return &biz.File{
		ID:                   po.ID,
		OriginalFilename:     po.OriginalFilename,
		StoredFilename:       po.StoredFilename,
		FileHash:             po.FileHash,
		Size:                 po.FileSize,
		ContentType:          po.ContentType,
		Title:                po.Title,
		Description:          po.Description,
		Tags:                 po.Tags,
		Visibility:           po.Visibility,
		DownloadCount:        po.DownloadCount,
		Version:              po.Version,
		UploaderID:           po.UploaderID,
		DepartmentID:         po.DepartmentID,
		DepartmentCategoryID: po.DepartmentCategoryID,
		ProjectID:            po.ProjectID,
		FileTypeID:           po.FileTypeID,
		ObjectKey:            po.ObjectKey,
		LocalPath:            po.LocalPath,
		IsDeleted:            po.IsDeleted,
		UploadedAt:           po.UploadedAt,
		UpdatedAt:            po.UpdatedAt,
	}
}
