package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/school-logistics/roster-api/internal/models"
	appErrors "github.com/school-logistics/roster-api/pkg/errors"
)

type mockStudentRepo struct {
	students     map[string]*models.Student
	ownerNames   map[string]string
	listAllCalls int
}

func (m *mockStudentRepo) ListAll(ctx context.Context) ([]models.StudentDetail, error) {
	m.listAllCalls++
	var out []models.StudentDetail
	for _, st := range m.students {
		detail := models.StudentDetail{Student: *st}
		if name, ok := m.ownerNames[st.OwnerUserID]; ok {
			owner := name
			detail.OwnerUsername = &owner
		}
		out = append(out, detail)
	}
	return out, nil
}

func (m *mockStudentRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]models.Student, error) {
	var out []models.Student
	for _, st := range m.students {
		if st.OwnerUserID == ownerUserID {
			out = append(out, *st)
		}
	}
	return out, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if st, ok := m.students[id]; ok {
		copy := *st
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]*models.Student)
	}
	if student.ID == "" {
		student.ID = student.Name
	}
	copy := *student
	m.students[student.ID] = &copy
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	if _, ok := m.students[student.ID]; !ok {
		return sql.ErrNoRows
	}
	copy := *student
	m.students[student.ID] = &copy
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.students, id)
	return nil
}

type mockListCache struct {
	entries         map[string][]byte
	deletedPatterns []string
}

func (m *mockListCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.Clone(appErrors.ErrCacheMiss, "")
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockListCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[key] = raw
	return nil
}

func (m *mockListCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deletedPatterns = append(m.deletedPatterns, pattern)
	m.entries = nil
	return nil
}

func adminClaims() *models.TokenClaims {
	return &models.TokenClaims{UserID: "admin-1", Role: models.RoleAdmin}
}

func userClaims(id string) *models.TokenClaims {
	return &models.TokenClaims{UserID: id, Role: models.RoleUser}
}

func intPtr(v int) *int { return &v }

func newRosterRepo() *mockStudentRepo {
	return &mockStudentRepo{
		students: map[string]*models.Student{
			"s1": {ID: "s1", Name: "Ana", Age: 20, Courses: pq.StringArray{"math"}, OwnerUserID: "user-1"},
			"s2": {ID: "s2", Name: "Ben", Age: 22, Courses: pq.StringArray{}, OwnerUserID: "user-2"},
		},
		ownerNames: map[string]string{"user-1": "alice", "user-2": "bob"},
	}
}

func TestStudentServiceListAdmin(t *testing.T) {
	repo := newRosterRepo()
	svc := NewStudentService(repo, nil, time.Minute, NewValidator(), zap.NewNop(), nil)

	students, err := svc.List(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Len(t, students, 2)
	for _, st := range students {
		require.NotNil(t, st.OwnerUsername)
	}
}

func TestStudentServiceListUserScoped(t *testing.T) {
	repo := newRosterRepo()
	svc := NewStudentService(repo, nil, time.Minute, NewValidator(), zap.NewNop(), nil)

	students, err := svc.List(context.Background(), userClaims("user-1"))
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ana", students[0].Name)
	assert.Nil(t, students[0].OwnerUsername)
}

func TestStudentServiceListCaching(t *testing.T) {
	repo := newRosterRepo()
	cache := &mockListCache{}
	svc := NewStudentService(repo, cache, time.Minute, NewValidator(), zap.NewNop(), nil)

	_, err := svc.List(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listAllCalls)

	// Second read is served from cache.
	students, err := svc.List(context.Background(), adminClaims())
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, 1, repo.listAllCalls)

	// Admin and per-owner scopes cache under separate keys.
	_, err = svc.List(context.Background(), userClaims("user-1"))
	require.NoError(t, err)
	assert.Len(t, cache.entries, 2)
}

func TestStudentServiceGetOwnership(t *testing.T) {
	repo := newRosterRepo()
	svc := NewStudentService(repo, nil, time.Minute, NewValidator(), zap.NewNop(), nil)

	student, err := svc.Get(context.Background(), userClaims("user-1"), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", student.Name)

	_, err = svc.Get(context.Background(), userClaims("user-1"), "s2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))

	student, err = svc.Get(context.Background(), adminClaims(), "s2")
	require.NoError(t, err)
	assert.Equal(t, "Ben", student.Name)
}

func TestStudentServiceGetNotFound(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, nil, time.Minute, NewValidator(), zap.NewNop(), nil)

	_, err := svc.Get(context.Background(), adminClaims(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestStudentServiceCreateForcesOwner(t *testing.T) {
	repo := &mockStudentRepo{}
	cache := &mockListCache{entries: map[string][]byte{"students:list:all": []byte("[]")}}
	svc := NewStudentService(repo, cache, time.Minute, NewValidator(), zap.NewNop(), nil)

	student, err := svc.Create(context.Background(), userClaims("user-7"), CreateStudentRequest{Name: "Cleo", Age: intPtr(19)})
	require.NoError(t, err)
	assert.Equal(t, "user-7", student.OwnerUserID)
	assert.NotNil(t, student.Courses)
	assert.Empty(t, student.Courses)
	assert.Equal(t, []string{"students:list:*"}, cache.deletedPatterns)
}

func TestStudentServiceCreateValidation(t *testing.T) {
	svc := NewStudentService(&mockStudentRepo{}, nil, time.Minute, NewValidator(), zap.NewNop(), nil)

	cases := []struct {
		name string
		req  CreateStudentRequest
	}{
		{"missing name", CreateStudentRequest{Age: intPtr(19)}},
		{"missing age", CreateStudentRequest{Name: "Cleo"}},
		{"negative age", CreateStudentRequest{Name: "Cleo", Age: intPtr(-1)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), userClaims("user-1"), tc.req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
		})
	}
}

func TestStudentServiceUpdateOwnership(t *testing.T) {
	repo := newRosterRepo()
	svc := NewStudentService(repo, nil, time.Minute, NewValidator(), zap.NewNop(), nil)
	req := UpdateStudentRequest{Name: "Ana Maria", Age: intPtr(21), Courses: []string{"math", "physics"}}

	// Non-owner cannot touch the record.
	_, err := svc.Update(context.Background(), userClaims("user-2"), "s1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))

	// The owner can.
	student, err := svc.Update(context.Background(), userClaims("user-1"), "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", student.Name)
	assert.Equal(t, 21, student.Age)
	assert.Equal(t, pq.StringArray{"math", "physics"}, student.Courses)
	assert.Equal(t, "user-1", student.OwnerUserID)

	// So can an admin who owns nothing.
	student, err = svc.Update(context.Background(), adminClaims(), "s2", UpdateStudentRequest{Name: "Ben K", Age: intPtr(23)})
	require.NoError(t, err)
	assert.Equal(t, "Ben K", student.Name)
}

func TestStudentServiceDeleteOwnership(t *testing.T) {
	repo := newRosterRepo()
	cache := &mockListCache{}
	svc := NewStudentService(repo, cache, time.Minute, NewValidator(), zap.NewNop(), nil)

	err := svc.Delete(context.Background(), userClaims("user-2"), "s1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))

	require.NoError(t, svc.Delete(context.Background(), userClaims("user-1"), "s1"))
	assert.NotContains(t, repo.students, "s1")
	assert.Contains(t, cache.deletedPatterns, "students:list:*")

	require.NoError(t, svc.Delete(context.Background(), adminClaims(), "s2"))

	err = svc.Delete(context.Background(), adminClaims(), "s2")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestStudentServiceExportAll(t *testing.T) {
	repo := newRosterRepo()
	svc := NewStudentService(repo, nil, time.Minute, NewValidator(), zap.NewNop(), nil)

	students, err := svc.ExportAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, students, 2)
}
