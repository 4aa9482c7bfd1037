package biz

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/duongdat/filehub-backend/internal/authz"
	"github.com/duongdat/filehub-backend/internal/file/storage"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
)

// File is the domain model for an uploaded file
type File struct {
	ID                   int64
	OriginalFilename     string
	StoredFilename       string
	FileHash             string
	Size                 int64
	ContentType          string
	Title                string
	Description          string
	Tags                 *string
	Visibility           string
	DownloadCount        int64
	Version              int
	UploaderID           int64
	DepartmentID         int64
	DepartmentCategoryID *int64
	ProjectID            *int64
	FileTypeID           int64
	ObjectKey            *string // primary store pointer
	LocalPath            *string // fallback store pointer
	IsDeleted            bool
	UploadedAt           time.Time
	UpdatedAt            time.Time
}

// Ref projects a file onto the fields access decisions need
func (f *File) Ref() authz.FileRef {
	return authz.FileRef{
		UploaderID:   f.UploaderID,
		DepartmentID: f.DepartmentID,
		ProjectID:    f.ProjectID,
		Visibility:   f.Visibility,
	}
}

// ListQuery carries pagination, ordering and optional filters for listings
type ListQuery struct {
	Page   int
	Size   int
	SortBy string
	Desc   bool

	// Optional filters
	Filename     string // substring match on the original filename
	ContentType  string // prefix match, e.g. "image/"
	DepartmentID *int64
	ProjectID    *int64
	FileTypeID   *int64
}

// FileRepo is the metadata persistence contract
type FileRepo interface {
	Create(ctx context.Context, file *File) error
	GetByID(ctx context.Context, id int64) (*File, error)
	GetByHash(ctx context.Context, hash string) (*File, error)
	ListByUploader(ctx context.Context, uploaderID int64, q ListQuery) ([]*File, int64, error)
	// ListShared applies the sharing rules against the caller's accessible
	// id sets. Empty sets mean unrestricted access.
	ListShared(ctx context.Context, callerID int64, deptIDs, projIDs []int64, q ListQuery) ([]*File, int64, error)
	ListByDepartment(ctx context.Context, callerID, departmentID int64, q ListQuery) ([]*File, int64, error)
	ListByProject(ctx context.Context, callerID, projectID int64, q ListQuery) ([]*File, int64, error)
	ListAll(ctx context.Context, q ListQuery) ([]*File, int64, error)
	IncrementDownloadCount(ctx context.Context, id int64) error
	SoftDelete(ctx context.Context, id int64) error
}

// UploadConfig tunes the upload pipeline
type UploadConfig struct {
	MaxSizeBytes    int64
	KeepLocalBackup bool
}

// FileUseCase implements the file lifecycle: upload with dedup and
// dual-write, listings, download with read-through, preview and delete.
type FileUseCase struct {
	repo      FileRepo
	evaluator *authz.Evaluator
	primary   storage.BlobStore
	fallback  storage.BlobStore
	cfg       UploadConfig
	logger    *logger.Logger
}

func NewFileUseCase(
	repo FileRepo,
	evaluator *authz.Evaluator,
	primary storage.BlobStore,
	fallback storage.BlobStore,
	cfg UploadConfig,
	log *logger.Logger,
) *FileUseCase {
	if cfg.MaxSizeBytes == 0 {
		cfg.MaxSizeBytes = 100 << 20
	}
	return &FileUseCase{
		repo:      repo,
		evaluator: evaluator,
		primary:   primary,
		fallback:  fallback,
		cfg:       cfg,
		logger:    log,
	}
}

// UploadInput carries an upload request
type UploadInput struct {
	Filename             string
	Size                 int64
	ContentType          string
	Content              io.Reader
	Title                string
	Description          string
	Tags                 string
	Visibility           string
	DepartmentID         int64
	DepartmentCategoryID *int64
	ProjectID            *int64
	FileTypeID           int64
}

func normalizeVisibility(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case authz.VisibilityPublic:
		return authz.VisibilityPublic
	case authz.VisibilityDepartment:
		return authz.VisibilityDepartment
	default:
		return authz.VisibilityPrivate
	}
}

// Upload validates, deduplicates and stores a file, writing the blob to the
// primary store with the local store as fallback. Metadata is persisted only
// after at least one blob write succeeded.
func (uc *FileUseCase) Upload(ctx context.Context, callerID int64, in UploadInput) (*File, error) {
	if in.Size <= 0 {
		return nil, apperrors.New(apperrors.ErrFileEmpty)
	}
	if in.Size > uc.cfg.MaxSizeBytes {
		return nil, apperrors.New(apperrors.ErrFileTooLarge,
			fmt.Sprintf("max %d bytes", uc.cfg.MaxSizeBytes))
	}
	if in.DepartmentID <= 0 {
		return nil, apperrors.New(apperrors.ErrFileMissingField, "departmentId")
	}
	if in.FileTypeID <= 0 {
		return nil, apperrors.New(apperrors.ErrFileMissingField, "fileTypeId")
	}

	allowed, err := uc.evaluator.ValidateUpload(ctx, callerID, in.DepartmentID, in.ProjectID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrFileUploadForbidden)
	}

	// The content is needed twice (hashing plus up to two writes), so
	// buffer it; uploads are capped by MaxSizeBytes.
	content, err := io.ReadAll(io.LimitReader(in.Content, uc.cfg.MaxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(content)) > uc.cfg.MaxSizeBytes {
		return nil, apperrors.New(apperrors.ErrFileTooLarge)
	}
	if len(content) == 0 {
		return nil, apperrors.New(apperrors.ErrFileEmpty)
	}

	sum := sha256.Sum256(content)
	fileHash := hex.EncodeToString(sum[:])

	if existing, err := uc.repo.GetByHash(ctx, fileHash); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, apperrors.New(apperrors.ErrFileAlreadyExists, existing.OriginalFilename)
	}

	storedName := uuid.New().String() + strings.ToLower(filepath.Ext(in.Filename))

	var objectKey, localPath *string

	if err := uc.primary.Put(ctx, storedName, bytes.NewReader(content), int64(len(content)), in.ContentType); err != nil {
		uc.logger.Warn("primary storage write failed, falling back",
			zap.String("stored_name", storedName),
			zap.Error(err))
	} else {
		objectKey = &storedName
	}

	if objectKey == nil || uc.cfg.KeepLocalBackup {
		if err := uc.fallback.Put(ctx, storedName, bytes.NewReader(content), int64(len(content)), in.ContentType); err != nil {
			uc.logger.Warn("fallback storage write failed",
				zap.String("stored_name", storedName),
				zap.Error(err))
		} else {
			localPath = &storedName
		}
	}

	if objectKey == nil && localPath == nil {
		return nil, apperrors.New(apperrors.ErrFileStorageFailed)
	}

	var tags *string
	if trimmed := strings.TrimSpace(in.Tags); trimmed != "" {
		tags = &trimmed
	}

	file := &File{
		OriginalFilename:     in.Filename,
		StoredFilename:       storedName,
		FileHash:             fileHash,
		Size:                 int64(len(content)),
		ContentType:          in.ContentType,
		Title:                in.Title,
		Description:          in.Description,
		Tags:                 tags,
		Visibility:           normalizeVisibility(in.Visibility),
		Version:              1,
		UploaderID:           callerID,
		DepartmentID:         in.DepartmentID,
		DepartmentCategoryID: in.DepartmentCategoryID,
		ProjectID:            in.ProjectID,
		FileTypeID:           in.FileTypeID,
		ObjectKey:            objectKey,
		LocalPath:            localPath,
	}

	if err := uc.repo.Create(ctx, file); err != nil {
		// A concurrent upload of the same content won the race; drop
		// the orphaned blobs.
		if apperrors.Is(err, apperrors.ErrFileAlreadyExists) {
			uc.removeBlobs(ctx, file)
		}
		return nil, err
	}

	uc.logger.Info("file uploaded",
		zap.Int64("file_id", file.ID),
		zap.Int64("uploader_id", callerID),
		zap.String("stored_name", storedName),
		zap.Bool("primary", objectKey != nil),
		zap.Bool("fallback", localPath != nil))

	return file, nil
}

// Get returns file metadata after an access check
func (uc *FileUseCase) Get(ctx context.Context, callerID, fileID int64) (*File, error) {
	file, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}

	allowed, err := uc.evaluator.CanViewFile(ctx, callerID, file.Ref())
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, apperrors.New(apperrors.ErrFileViewForbidden)
	}

	return file, nil
}

// DownloadResult is an open blob plus the metadata a handler needs
type DownloadResult struct {
	File    *File
	Content io.ReadCloser
}

// Download opens the file content, reading through from the primary store
// to the fallback, and increments the download counter on success.
func (uc *FileUseCase) Download(ctx context.Context, callerID, fileID int64) (*DownloadResult, error) {
	file, err := uc.Get(ctx, callerID, fileID)
	if err != nil {
		return nil, err
	}

	content, err := uc.openContent(ctx, file)
	if err != nil {
		return nil, err
	}

	if err := uc.repo.IncrementDownloadCount(ctx, file.ID); err != nil {
		uc.logger.Warn("failed to increment download count",
			zap.Int64("file_id", file.ID),
			zap.Error(err))
	} else {
		file.DownloadCount++
	}

	return &DownloadResult{File: file, Content: content}, nil
}

// Previewable content types
var previewablePrefixes = []string{"image/", "text/"}
var previewableExact = map[string]bool{
	"application/pdf":  true,
	"application/json": true,
	"application/xml":  true,
}

// IsPreviewable reports whether a content type may be rendered inline
func IsPreviewable(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, p := range previewablePrefixes {
		if strings.HasPrefix(ct, p) {
			return true
		}
	}
	return previewableExact[ct]
}

// Preview opens the content for inline rendering. Only a small allow-list
// of content types is served; the download counter is not touched.
func (uc *FileUseCase) Preview(ctx context.Context, callerID, fileID int64) (*DownloadResult, error) {
	file, err := uc.Get(ctx, callerID, fileID)
	if err != nil {
		return nil, err
	}

	if !IsPreviewable(file.ContentType) {
		return nil, apperrors.New(apperrors.ErrFilePreviewDenied, file.ContentType)
	}

	content, err := uc.openContent(ctx, file)
	if err != nil {
		return nil, err
	}

	return &DownloadResult{File: file, Content: content}, nil
}

// openContent tries the primary store first and falls back to local disk
func (uc *FileUseCase) openContent(ctx context.Context, file *File) (io.ReadCloser, error) {
	if file.ObjectKey != nil {
		rc, err := uc.primary.Get(ctx, *file.ObjectKey)
		if err == nil {
			return rc, nil
		}
		uc.logger.Warn("primary storage read failed, trying fallback",
			zap.Int64("file_id", file.ID),
			zap.Error(err))
	}

	if file.LocalPath != nil {
		rc, err := uc.fallback.Get(ctx, *file.LocalPath)
		if err == nil {
			return rc, nil
		}
		uc.logger.Warn("fallback storage read failed",
			zap.Int64("file_id", file.ID),
			zap.Error(err))
	}

	return nil, apperrors.New(apperrors.ErrFileNotInStorage)
}

// Delete soft-deletes the metadata row, then removes the blobs best-effort.
// An unknown or already-deleted file is a quiet no-op reported as false, so
// repeated deletes cannot fail.
func (uc *FileUseCase) Delete(ctx context.Context, callerID, fileID int64) (bool, error) {
	file, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrFileNotFound) {
			return false, nil
		}
		return false, err
	}

	allowed, err := uc.evaluator.CanDeleteFile(ctx, callerID, file.Ref())
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, apperrors.New(apperrors.ErrFileDeleteForbidden)
	}

	if err := uc.repo.SoftDelete(ctx, file.ID); err != nil {
		if apperrors.Is(err, apperrors.ErrFileNotFound) {
			return false, nil
		}
		return false, err
	}

	uc.removeBlobs(ctx, file)

	uc.logger.Info("file deleted",
		zap.Int64("file_id", file.ID),
		zap.Int64("caller_id", callerID))

	return true, nil
}

// removeBlobs deletes the stored content from both backends, logging failures
func (uc *FileUseCase) removeBlobs(ctx context.Context, file *File) {
	if file.ObjectKey != nil {
		if _, err := uc.primary.Delete(ctx, *file.ObjectKey); err != nil {
			uc.logger.Warn("failed to delete blob from primary storage",
				zap.String("key", *file.ObjectKey),
				zap.Error(err))
		}
	}
	if file.LocalPath != nil {
		if _, err := uc.fallback.Delete(ctx, *file.LocalPath); err != nil {
			uc.logger.Warn("failed to delete blob from fallback storage",
				zap.String("key", *file.LocalPath),
				zap.Error(err))
		}
	}
}

// ListMine lists the caller's own files
func (uc *FileUseCase) ListMine(ctx context.Context, callerID int64, q ListQuery) ([]*File, int64, error) {
	return uc.repo.ListByUploader(ctx, callerID, q)
}

// ListShared lists files shared with the caller: public files, files of
// projects the caller belongs to, and department-level files of the
// caller's departments.
func (uc *FileUseCase) ListShared(ctx context.Context, callerID int64, q ListQuery) ([]*File, int64, error) {
	deptIDs, err := uc.evaluator.AccessibleDepartmentIDs(ctx, callerID)
	if err != nil {
		return nil, 0, err
	}
	projIDs, err := uc.evaluator.AccessibleProjectIDs(ctx, callerID)
	if err != nil {
		return nil, 0, err
	}

	return uc.repo.ListShared(ctx, callerID, deptIDs, projIDs, q)
}

// ListSharedByDepartment lists a department's shared files for its members
func (uc *FileUseCase) ListSharedByDepartment(ctx context.Context, callerID, departmentID int64, q ListQuery) ([]*File, int64, error) {
	allowed, err := uc.evaluator.CanUploadToDepartment(ctx, callerID, departmentID)
	if err != nil {
		return nil, 0, err
	}
	if !allowed {
		return nil, 0, apperrors.New(apperrors.ErrFileViewForbidden)
	}

	return uc.repo.ListByDepartment(ctx, callerID, departmentID, q)
}

// ListSharedByProject lists a project's files for its members
func (uc *FileUseCase) ListSharedByProject(ctx context.Context, callerID, projectID int64, q ListQuery) ([]*File, int64, error) {
	allowed, err := uc.evaluator.CanUploadToProject(ctx, callerID, projectID)
	if err != nil {
		return nil, 0, err
	}
	if !allowed {
		return nil, 0, apperrors.New(apperrors.ErrFileViewForbidden)
	}

	return uc.repo.ListByProject(ctx, callerID, projectID, q)
}

// ListAll lists every live file; admin only
func (uc *FileUseCase) ListAll(ctx context.Context, callerID int64, q ListQuery) ([]*File, int64, error) {
	admin, err := uc.evaluator.IsAdmin(ctx, callerID)
	if err != nil {
		return nil, 0, err
	}
	if !admin {
		return nil, 0, apperrors.New(apperrors.ErrForbidden)
	}

	return uc.repo.ListAll(ctx, q)
}
