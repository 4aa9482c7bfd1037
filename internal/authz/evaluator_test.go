package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUserRoles struct {
	roles map[int64]string
	err   error
}

func (f *fakeUserRoles) RoleOf(_ context.Context, userID int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.roles[userID], nil
}

type deptKey struct{ user, dept int64 }

type fakeDeptMemberships struct {
	memberships map[deptKey]string
	err         error
}

func (f *fakeDeptMemberships) ActiveMembership(_ context.Context, userID, departmentID int64) (*Membership, error) {
	if f.err != nil {
		return nil, f.err
	}
	if role, ok := f.memberships[deptKey{userID, departmentID}]; ok {
		return &Membership{Role: role}, nil
	}
	return nil, nil
}

func (f *fakeDeptMemberships) ActiveDepartmentIDs(_ context.Context, userID int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []int64
	for k := range f.memberships {
		if k.user == userID {
			ids = append(ids, k.dept)
		}
	}
	return ids, nil
}

type projKey struct{ user, proj int64 }

type fakeProjMemberships struct {
	memberships map[projKey]string
	err         error
}

func (f *fakeProjMemberships) ActiveMembership(_ context.Context, userID, projectID int64) (*Membership, error) {
	if f.err != nil {
		return nil, f.err
	}
	if role, ok := f.memberships[projKey{userID, projectID}]; ok {
		return &Membership{Role: role}, nil
	}
	return nil, nil
}

func (f *fakeProjMemberships) ActiveProjectIDs(_ context.Context, userID int64) ([]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	var ids []int64
	for k := range f.memberships {
		if k.user == userID {
			ids = append(ids, k.proj)
		}
	}
	return ids, nil
}

func newTestEvaluator() (*Evaluator, *fakeUserRoles, *fakeDeptMemberships, *fakeProjMemberships) {
	users := &fakeUserRoles{roles: map[int64]string{
		1: RoleAdmin,
		2: RoleUser,
		3: RoleUser,
		4: RoleUser,
	}}
	depts := &fakeDeptMemberships{memberships: map[deptKey]string{
		{2, 10}: DeptRoleMember,
		{3, 10}: DeptRoleManager,
		{3, 11}: DeptRoleMember,
	}}
	projs := &fakeProjMemberships{memberships: map[projKey]string{
		{2, 100}: ProjectRoleMember,
		{3, 100}: ProjectRoleLead,
	}}
	return NewEvaluator(users, depts, projs), users, depts, projs
}

func int64Ptr(v int64) *int64 { return &v }

func TestIsAdmin(t *testing.T) {
	e, _, _, _ := newTestEvaluator()
	ctx := context.Background()

	admin, err := e.IsAdmin(ctx, 1)
	require.NoError(t, err)
	assert.True(t, admin)

	admin, err = e.IsAdmin(ctx, 2)
	require.NoError(t, err)
	assert.False(t, admin)

	// Unauthenticated callers are never admins
	admin, err = e.IsAdmin(ctx, 0)
	require.NoError(t, err)
	assert.False(t, admin)
}

func TestCanUploadToDepartment(t *testing.T) {
	e, _, _, _ := newTestEvaluator()
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		deptID int64
		want   bool
	}{
		{"admin bypasses membership", 1, 99, true},
		{"member can upload", 2, 10, true},
		{"non-member cannot upload", 2, 11, false},
		{"user with no memberships", 4, 10, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.CanUploadToDepartment(ctx, tt.userID, tt.deptID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateUploadPrefersProject(t *testing.T) {
	e, _, _, _ := newTestEvaluator()
	ctx := context.Background()

	// User 2 is a member of dept 10 and project 100
	ok, err := e.ValidateUpload(ctx, 2, 10, int64Ptr(100))
	require.NoError(t, err)
	assert.True(t, ok)

	// Department membership does not grant access to an unrelated project
	ok, err = e.ValidateUpload(ctx, 2, 10, int64Ptr(200))
	require.NoError(t, err)
	assert.False(t, ok)

	// No project named: department membership decides
	ok, err = e.ValidateUpload(ctx, 2, 10, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanViewFile(t *testing.T) {
	e, _, _, _ := newTestEvaluator()
	ctx := context.Background()

	tests := []struct {
		name   string
		userID int64
		file   FileRef
		want   bool
	}{
		{
			"admin sees everything",
			1,
			FileRef{UploaderID: 4, DepartmentID: 99, Visibility: VisibilityPrivate},
			true,
		},
		{
			"uploader sees own private file",
			4,
			FileRef{UploaderID: 4, DepartmentID: 99, Visibility: VisibilityPrivate},
			true,
		},
		{
			"public file open to anyone",
			4,
			FileRef{UploaderID: 2, DepartmentID: 10, Visibility: VisibilityPublic},
			true,
		},
		{
			"department visibility requires membership",
			2,
			FileRef{UploaderID: 3, DepartmentID: 10, Visibility: VisibilityDepartment},
			true,
		},
		{
			"department visibility denies outsiders",
			4,
			FileRef{UploaderID: 3, DepartmentID: 10, Visibility: VisibilityDepartment},
			false,
		},
		{
			"project file requires project membership even with department visibility",
			4,
			FileRef{UploaderID: 3, DepartmentID: 10, ProjectID: int64Ptr(100), Visibility: VisibilityDepartment},
			false,
		},
		{
			"project member sees project file",
			2,
			FileRef{UploaderID: 3, DepartmentID: 10, ProjectID: int64Ptr(100), Visibility: VisibilityDepartment},
			true,
		},
		{
			"department membership grants access regardless of visibility",
			3,
			FileRef{UploaderID: 2, DepartmentID: 10, Visibility: VisibilityPrivate},
			true,
		},
		{
			"private department file hidden from outsiders",
			4,
			FileRef{UploaderID: 2, DepartmentID: 10, Visibility: VisibilityPrivate},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.CanViewFile(ctx, tt.userID, tt.file)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanViewPrivateDepartmentFileAsMember(t *testing.T) {
	e, _, _, _ := newTestEvaluator()
	ctx := context.Background()

	// User 2 holds a plain MEMBER role in department 10. A colleague's
	// PRIVATE file without a project is still visible to them, matching
	// the listing query which filters department files by membership only.
	file := FileRef{UploaderID: 3, DepartmentID: 10, Visibility: VisibilityPrivate}

	ok, err := e.CanViewFile(ctx, 2, file)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanDeleteFile(t *testing.T) {
	e, _, _, _ := newTestEvaluator()
	ctx := context.Background()

	deptFile := FileRef{UploaderID: 2, DepartmentID: 10, Visibility: VisibilityDepartment}
	projFile := FileRef{UploaderID: 2, DepartmentID: 10, ProjectID: int64Ptr(100), Visibility: VisibilityDepartment}

	// Uploader may delete
	ok, err := e.CanDeleteFile(ctx, 2, deptFile)
	require.NoError(t, err)
	assert.True(t, ok)

	// Admin may delete
	ok, err = e.CanDeleteFile(ctx, 1, deptFile)
	require.NoError(t, err)
	assert.True(t, ok)

	// Department manager may not delete a colleague's file
	ok, err = e.CanDeleteFile(ctx, 3, deptFile)
	require.NoError(t, err)
	assert.False(t, ok)

	// Project lead may not delete a member's project file
	ok, err = e.CanDeleteFile(ctx, 3, projFile)
	require.NoError(t, err)
	assert.False(t, ok)

	// Plain members and outsiders may not
	ok, err = e.CanDeleteFile(ctx, 4, deptFile)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanManageUsers(t *testing.T) {
	e, _, _, _ := newTestEvaluator()
	ctx := context.Background()

	ok, err := e.CanManageDepartmentUsers(ctx, 3, 10)
	require.NoError(t, err)
	assert.True(t, ok, "manager can manage department users")

	ok, err = e.CanManageDepartmentUsers(ctx, 2, 10)
	require.NoError(t, err)
	assert.False(t, ok, "plain member cannot manage department users")

	ok, err = e.CanManageProjectUsers(ctx, 3, 100)
	require.NoError(t, err)
	assert.True(t, ok, "lead can manage project users")

	ok, err = e.CanManageProjectUsers(ctx, 2, 100)
	require.NoError(t, err)
	assert.False(t, ok, "plain member cannot manage project users")
}

func TestAccessibleDepartmentIDs(t *testing.T) {
	e, _, _, _ := newTestEvaluator()
	ctx := context.Background()

	// Admin gets the unrestricted (empty) set
	ids, err := e.AccessibleDepartmentIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)

	// Member gets their departments
	ids, err = e.AccessibleDepartmentIDs(ctx, 3)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{10, 11}, ids)

	// No memberships yields the sentinel
	ids, err = e.AccessibleDepartmentIDs(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{NoAccessID}, ids)

	// Unauthenticated yields the sentinel
	ids, err = e.AccessibleDepartmentIDs(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{NoAccessID}, ids)
}

func TestAccessibleProjectIDs(t *testing.T) {
	e, _, _, _ := newTestEvaluator()
	ctx := context.Background()

	ids, err := e.AccessibleProjectIDs(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = e.AccessibleProjectIDs(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, ids)

	ids, err = e.AccessibleProjectIDs(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []int64{NoAccessID}, ids)
}

func TestEvaluatorFailsClosed(t *testing.T) {
	users := &fakeUserRoles{err: errors.New("db down")}
	depts := &fakeDeptMemberships{}
	projs := &fakeProjMemberships{}
	e := NewEvaluator(users, depts, projs)
	ctx := context.Background()

	ok, err := e.CanUploadToDepartment(ctx, 2, 10)
	assert.Error(t, err)
	assert.False(t, ok)

	ok, err = e.CanViewFile(ctx, 2, FileRef{UploaderID: 3, DepartmentID: 10, Visibility: VisibilityPublic})
	assert.Error(t, err)
	assert.False(t, ok)

	ids, err := e.AccessibleDepartmentIDs(ctx, 2)
	assert.Error(t, err)
	assert.Equal(t, []int64{NoAccessID}, ids)
}
