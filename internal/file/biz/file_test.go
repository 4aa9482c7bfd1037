package biz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duongdat/filehub-backend/internal/authz"
	"github.com/duongdat/filehub-backend/internal/file/storage"
	apperrors "github.com/duongdat/filehub-backend/internal/pkg/errors"
	"github.com/duongdat/filehub-backend/internal/pkg/logger"
)

// ---- fakes ----

type fakeUsers struct{ roles map[int64]string }

func (f *fakeUsers) RoleOf(_ context.Context, id int64) (string, error) {
	return f.roles[id], nil
}

type fakeDepts struct{ members map[int64][]int64 }

func (f *fakeDepts) ActiveMembership(_ context.Context, userID, deptID int64) (*authz.Membership, error) {
	for _, id := range f.members[userID] {
		if id == deptID {
			return &authz.Membership{Role: authz.DeptRoleMember}, nil
		}
	}
	return nil, nil
}

func (f *fakeDepts) ActiveDepartmentIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.members[userID], nil
}

type fakeProjs struct{ members map[int64][]int64 }

func (f *fakeProjs) ActiveMembership(_ context.Context, userID, projID int64) (*authz.Membership, error) {
	for _, id := range f.members[userID] {
		if id == projID {
			return &authz.Membership{Role: authz.ProjectRoleMember}, nil
		}
	}
	return nil, nil
}

func (f *fakeProjs) ActiveProjectIDs(_ context.Context, userID int64) ([]int64, error) {
	return f.members[userID], nil
}

type fakeBlobStore struct {
	blobs    map[string][]byte
	failPut  bool
	failGet  bool
	putCalls int
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: map[string][]byte{}}
}

func (s *fakeBlobStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	s.putCalls++
	if s.failPut {
		return errors.New("backend unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.blobs[key] = data
	return nil
}

func (s *fakeBlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if s.failGet {
		return nil, errors.New("backend unavailable")
	}
	data, ok := s.blobs[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeBlobStore) Delete(_ context.Context, key string) (bool, error) {
	if _, ok := s.blobs[key]; !ok {
		return false, nil
	}
	delete(s.blobs, key)
	return true, nil
}

func (s *fakeBlobStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.blobs[key]
	return ok, nil
}

type fakeFileRepo struct {
	files  map[int64]*File
	nextID int64
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{files: map[int64]*File{}, nextID: 1}
}

func (r *fakeFileRepo) Create(_ context.Context, file *File) error {
	for _, f := range r.files {
		if f.FileHash == file.FileHash && !f.IsDeleted {
			return apperrors.New(apperrors.ErrFileAlreadyExists)
		}
	}
	file.ID = r.nextID
	r.nextID++
	cp := *file
	r.files[file.ID] = &cp
	return nil
}

func (r *fakeFileRepo) GetByID(_ context.Context, id int64) (*File, error) {
	f, ok := r.files[id]
	if !ok || f.IsDeleted {
		return nil, apperrors.New(apperrors.ErrFileNotFound)
	}
	cp := *f
	return &cp, nil
}

func (r *fakeFileRepo) GetByHash(_ context.Context, hash string) (*File, error) {
	for _, f := range r.files {
		if f.FileHash == hash && !f.IsDeleted {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeFileRepo) ListByUploader(_ context.Context, uploaderID int64, _ ListQuery) ([]*File, int64, error) {
	var out []*File
	for _, f := range r.files {
		if f.UploaderID == uploaderID && !f.IsDeleted {
			out = append(out, f)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeFileRepo) ListShared(_ context.Context, _ int64, deptIDs, projIDs []int64, _ ListQuery) ([]*File, int64, error) {
	unrestricted := len(deptIDs) == 0 && len(projIDs) == 0
	contains := func(ids []int64, id int64) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	}
	var out []*File
	for _, f := range r.files {
		if f.IsDeleted {
			continue
		}
		switch {
		case unrestricted:
			out = append(out, f)
		case f.Visibility == authz.VisibilityPublic:
			out = append(out, f)
		case f.ProjectID != nil && contains(projIDs, *f.ProjectID):
			out = append(out, f)
		case f.ProjectID == nil && contains(deptIDs, f.DepartmentID):
			out = append(out, f)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeFileRepo) ListByDepartment(_ context.Context, _, departmentID int64, _ ListQuery) ([]*File, int64, error) {
	var out []*File
	for _, f := range r.files {
		if !f.IsDeleted && f.DepartmentID == departmentID && f.ProjectID == nil && f.Visibility != authz.VisibilityPrivate {
			out = append(out, f)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeFileRepo) ListByProject(_ context.Context, _, projectID int64, _ ListQuery) ([]*File, int64, error) {
	var out []*File
	for _, f := range r.files {
		if !f.IsDeleted && f.ProjectID != nil && *f.ProjectID == projectID && f.Visibility != authz.VisibilityPrivate {
			out = append(out, f)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeFileRepo) ListAll(_ context.Context, _ ListQuery) ([]*File, int64, error) {
	var out []*File
	for _, f := range r.files {
		if !f.IsDeleted {
			out = append(out, f)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeFileRepo) IncrementDownloadCount(_ context.Context, id int64) error {
	if f, ok := r.files[id]; ok {
		f.DownloadCount++
	}
	return nil
}

func (r *fakeFileRepo) SoftDelete(_ context.Context, id int64) error {
	f, ok := r.files[id]
	if !ok || f.IsDeleted {
		return apperrors.New(apperrors.ErrFileNotFound)
	}
	f.IsDeleted = true
	return nil
}

// ---- fixture ----

type fixture struct {
	uc       *FileUseCase
	repo     *fakeFileRepo
	primary  *fakeBlobStore
	fallback *fakeBlobStore
}

// Users: 1 admin, 2 member of dept 10 and project 100, 4 no memberships
func newFixture(t *testing.T, cfg UploadConfig) *fixture {
	t.Helper()

	evaluator := authz.NewEvaluator(
		&fakeUsers{roles: map[int64]string{1: authz.RoleAdmin, 2: authz.RoleUser, 4: authz.RoleUser}},
		&fakeDepts{members: map[int64][]int64{2: {10}}},
		&fakeProjs{members: map[int64][]int64{2: {100}}},
	)

	repo := newFakeFileRepo()
	primary := newFakeBlobStore()
	fallback := newFakeBlobStore()

	log, err := logger.New(nil)
	require.NoError(t, err)

	return &fixture{
		uc:       NewFileUseCase(repo, evaluator, primary, fallback, cfg, log),
		repo:     repo,
		primary:  primary,
		fallback: fallback,
	}
}

func uploadInput(content string) UploadInput {
	return UploadInput{
		Filename:     "report.pdf",
		Size:         int64(len(content)),
		ContentType:  "application/pdf",
		Content:      strings.NewReader(content),
		Title:        "Quarterly Report",
		DepartmentID: 10,
		FileTypeID:   1,
	}
}

// ---- tests ----

func TestUploadStoresPrimaryOnly(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	ctx := context.Background()

	file, err := fx.uc.Upload(ctx, 2, uploadInput("hello world"))
	require.NoError(t, err)

	require.NotNil(t, file.ObjectKey)
	assert.Nil(t, file.LocalPath)
	assert.Contains(t, fx.primary.blobs, *file.ObjectKey)
	assert.Empty(t, fx.fallback.blobs)
	assert.Equal(t, authz.VisibilityPrivate, file.Visibility)
	assert.Equal(t, 1, file.Version)
	assert.Nil(t, file.Tags)
}

func TestUploadKeepsLocalBackup(t *testing.T) {
	fx := newFixture(t, UploadConfig{KeepLocalBackup: true})

	file, err := fx.uc.Upload(context.Background(), 2, uploadInput("hello world"))
	require.NoError(t, err)

	require.NotNil(t, file.ObjectKey)
	require.NotNil(t, file.LocalPath)
	assert.Contains(t, fx.primary.blobs, *file.ObjectKey)
	assert.Contains(t, fx.fallback.blobs, *file.LocalPath)
}

func TestUploadFallsBackWhenPrimaryFails(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	fx.primary.failPut = true

	file, err := fx.uc.Upload(context.Background(), 2, uploadInput("hello world"))
	require.NoError(t, err)

	assert.Nil(t, file.ObjectKey)
	require.NotNil(t, file.LocalPath)
	assert.Contains(t, fx.fallback.blobs, *file.LocalPath)
}

func TestUploadFailsWhenBothStoresFail(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	fx.primary.failPut = true
	fx.fallback.failPut = true

	_, err := fx.uc.Upload(context.Background(), 2, uploadInput("hello world"))
	assert.True(t, apperrors.Is(err, apperrors.ErrFileStorageFailed))
	assert.Empty(t, fx.repo.files, "no metadata row without a stored blob")
}

func TestUploadRejectsDuplicateContent(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	ctx := context.Background()

	_, err := fx.uc.Upload(ctx, 2, uploadInput("identical bytes"))
	require.NoError(t, err)

	_, err = fx.uc.Upload(ctx, 2, uploadInput("identical bytes"))
	assert.True(t, apperrors.Is(err, apperrors.ErrFileAlreadyExists))
	assert.Len(t, fx.repo.files, 1)
	assert.Len(t, fx.primary.blobs, 1, "duplicate upload leaves no orphaned blob")
}

func TestUploadValidation(t *testing.T) {
	fx := newFixture(t, UploadConfig{MaxSizeBytes: 10})
	ctx := context.Background()

	tests := []struct {
		name     string
		mutate   func(*UploadInput)
		wantCode int
	}{
		{"empty file", func(in *UploadInput) { in.Size = 0 }, apperrors.ErrFileEmpty},
		{"oversized file", func(in *UploadInput) {
			in.Size = 11
			in.Content = strings.NewReader("0123456789x")
		}, apperrors.ErrFileTooLarge},
		{"missing department", func(in *UploadInput) { in.DepartmentID = 0 }, apperrors.ErrFileMissingField},
		{"missing file type", func(in *UploadInput) { in.FileTypeID = 0 }, apperrors.ErrFileMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := uploadInput("x")
			tt.mutate(&in)
			_, err := fx.uc.Upload(ctx, 2, in)
			assert.True(t, apperrors.Is(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestUploadForbiddenForOutsiders(t *testing.T) {
	fx := newFixture(t, UploadConfig{})

	_, err := fx.uc.Upload(context.Background(), 4, uploadInput("hello"))
	assert.True(t, apperrors.Is(err, apperrors.ErrFileUploadForbidden))
}

func TestUploadNormalizesUnknownVisibility(t *testing.T) {
	fx := newFixture(t, UploadConfig{})

	in := uploadInput("visible")
	in.Visibility = "SHARED"

	file, err := fx.uc.Upload(context.Background(), 2, in)
	require.NoError(t, err)
	assert.Equal(t, authz.VisibilityPrivate, file.Visibility)
}

func TestDownloadReadsThroughToFallback(t *testing.T) {
	fx := newFixture(t, UploadConfig{KeepLocalBackup: true})
	ctx := context.Background()

	file, err := fx.uc.Upload(ctx, 2, uploadInput("payload"))
	require.NoError(t, err)

	// Primary lost the blob; the fallback copy must serve the download
	delete(fx.primary.blobs, *file.ObjectKey)

	result, err := fx.uc.Download(ctx, 2, file.ID)
	require.NoError(t, err)
	defer result.Content.Close()

	data, err := io.ReadAll(result.Content)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, int64(1), result.File.DownloadCount)
}

func TestDownloadFailsWhenNoCopyRemains(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	ctx := context.Background()

	file, err := fx.uc.Upload(ctx, 2, uploadInput("payload"))
	require.NoError(t, err)

	delete(fx.primary.blobs, *file.ObjectKey)

	_, err = fx.uc.Download(ctx, 2, file.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileNotInStorage))
}

func TestPreviewAllowList(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"text/plain", true},
		{"text/csv; charset=utf-8", true},
		{"application/pdf", true},
		{"application/json", true},
		{"application/xml", true},
		{"application/zip", false},
		{"application/octet-stream", false},
		{"video/mp4", false},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPreviewable(tt.contentType))
		})
	}
}

func TestPreviewDeniesNonPreviewableFile(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	ctx := context.Background()

	in := uploadInput("binary")
	in.Filename = "archive.zip"
	in.ContentType = "application/zip"

	file, err := fx.uc.Upload(ctx, 2, in)
	require.NoError(t, err)

	_, err = fx.uc.Preview(ctx, 2, file.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrFilePreviewDenied))
}

func TestGetEnforcesViewPermission(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	ctx := context.Background()

	file, err := fx.uc.Upload(ctx, 2, uploadInput("secret"))
	require.NoError(t, err)

	// Outsider cannot view a private file
	_, err = fx.uc.Get(ctx, 4, file.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileViewForbidden))

	// Admin can
	got, err := fx.uc.Get(ctx, 1, file.ID)
	require.NoError(t, err)
	assert.Equal(t, file.ID, got.ID)
}

func TestDeleteSoftDeletesAndRemovesBlobs(t *testing.T) {
	fx := newFixture(t, UploadConfig{KeepLocalBackup: true})
	ctx := context.Background()

	file, err := fx.uc.Upload(ctx, 2, uploadInput("ephemeral"))
	require.NoError(t, err)

	deleted, err := fx.uc.Delete(ctx, 2, file.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	assert.Empty(t, fx.primary.blobs)
	assert.Empty(t, fx.fallback.blobs)

	_, err = fx.uc.Get(ctx, 2, file.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileNotFound))
}

func TestDeleteIsIdempotent(t *testing.T) {
	fx := newFixture(t, UploadConfig{KeepLocalBackup: true})
	ctx := context.Background()

	file, err := fx.uc.Upload(ctx, 2, uploadInput("gone soon"))
	require.NoError(t, err)

	deleted, err := fx.uc.Delete(ctx, 2, file.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	// Deleting again is a quiet no-op, not an error
	deleted, err = fx.uc.Delete(ctx, 2, file.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// As is deleting a file that never existed
	deleted, err = fx.uc.Delete(ctx, 2, 424242)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteForbiddenForPlainMember(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	ctx := context.Background()

	file, err := fx.uc.Upload(ctx, 2, uploadInput("owned by user 2"))
	require.NoError(t, err)

	_, err = fx.uc.Delete(ctx, 4, file.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrFileDeleteForbidden))
}

func TestListSharedUsesAccessibleSets(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	ctx := context.Background()

	// Department file shared at department level
	in := uploadInput("dept file")
	in.Visibility = "DEPARTMENT"
	_, err := fx.uc.Upload(ctx, 2, in)
	require.NoError(t, err)

	// Member of dept 10 sees it
	files, total, err := fx.uc.ListShared(ctx, 2, ListQuery{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, files, 1)

	// User without memberships sees nothing
	_, total, err = fx.uc.ListShared(ctx, 4, ListQuery{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Zero(t, total)

	// Admin sees everything
	_, total, err = fx.uc.ListShared(ctx, 1, ListQuery{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestListAllRequiresAdmin(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	ctx := context.Background()

	_, _, err := fx.uc.ListAll(ctx, 2, ListQuery{})
	assert.True(t, apperrors.Is(err, apperrors.ErrForbidden))

	_, _, err = fx.uc.ListAll(ctx, 1, ListQuery{})
	assert.NoError(t, err)
}

func TestUploadUniqueStoredNames(t *testing.T) {
	fx := newFixture(t, UploadConfig{})
	ctx := context.Background()

	names := map[string]bool{}
	for i := 0; i < 5; i++ {
		in := uploadInput(fmt.Sprintf("content %d", i))
		file, err := fx.uc.Upload(ctx, 2, in)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(file.StoredFilename, ".pdf"))
		assert.False(t, names[file.StoredFilename], "stored names must be unique")
		names[file.StoredFilename] = true
	}
}
