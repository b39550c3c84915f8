package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/school-logistics/roster-api/internal/models"
	appErrors "github.com/school-logistics/roster-api/pkg/errors"
)

const (
	cacheKeyStudentsAll     = "students:list:all"
	cacheKeyStudentsOwnerFm = "students:list:owner:%s"
	cacheKeyStudentsPattern = "students:list:*"
)

type studentRepository interface {
	ListAll(ctx context.Context) ([]models.StudentDetail, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]models.Student, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type listCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateStudentRequest is the payload for creating a student. The owner is
// never taken from the payload; it is forced to the authenticated caller.
type CreateStudentRequest struct {
	Name    string   `json:"name" validate:"required"`
	Age     *int     `json:"age" validate:"required,gte=0"`
	Courses []string `json:"courses"`
}

// UpdateStudentRequest is the payload for updating a student.
type UpdateStudentRequest struct {
	Name    string   `json:"name" validate:"required"`
	Age     *int     `json:"age" validate:"required,gte=0"`
	Courses []string `json:"courses"`
}

// StudentService implements owner-scoped CRUD over the roster: admins see
// and touch everything, other users only the students they created.
type StudentService struct {
	repo      studentRepository
	cache     listCache
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
}

// NewStudentService constructs a StudentService. cache and metrics may be
// nil; both degrade to no-ops.
func NewStudentService(repo studentRepository, cache listCache, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &StudentService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger, metrics: metrics}
}

// List returns students visible to the caller: all of them (with owner
// usernames) for admins, otherwise only the caller's own. Responses are
// cached per viewer scope.
func (s *StudentService) List(ctx context.Context, claims *models.TokenClaims) ([]models.StudentDetail, error) {
	key := cacheKeyStudentsAll
	if claims.Role != models.RoleAdmin {
		key = fmt.Sprintf(cacheKeyStudentsOwnerFm, claims.UserID)
	}

	if s.cache != nil {
		start := time.Now()
		var cached []models.StudentDetail
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return cached, nil
		}
		var appErr *appErrors.Error
		if !errors.As(err, &appErr) || appErr.Code != appErrors.ErrCacheMiss.Code {
			s.logger.Warn("student list cache lookup failed", zap.Error(err))
		}
	}

	var result []models.StudentDetail
	if claims.Role == models.RoleAdmin {
		students, err := s.repo.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		result = students
	} else {
		students, err := s.repo.ListByOwner(ctx, claims.UserID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
		}
		result = make([]models.StudentDetail, 0, len(students))
		for _, st := range students {
			result = append(result, models.StudentDetail{Student: st})
		}
	}

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
			s.logger.Warn("student list cache write failed", zap.Error(err))
		}
		s.metrics.ObserveCacheWrite(time.Since(start))
	}

	return result, nil
}

// Get returns a single student. Non-admins can only fetch students they own.
func (s *StudentService) Get(ctx context.Context, claims *models.TokenClaims, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	owns := student.OwnerUserID == claims.UserID
	if claims.Role != models.RoleAdmin && !owns {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	return student, nil
}

// Create inserts a student owned by the caller. Any client-supplied owner
// is ignored by construction: the request carries no owner field.
func (s *StudentService) Create(ctx context.Context, claims *models.TokenClaims, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	courses := req.Courses
	if courses == nil {
		courses = []string{}
	}

	student := &models.Student{
		Name:        req.Name,
		Age:         *req.Age,
		Courses:     pq.StringArray(courses),
		OwnerUserID: claims.UserID,
	}

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}

	s.invalidateListCache(ctx)

	return student, nil
}

// Update modifies a student's editable fields, honoring the ownership rule.
func (s *StudentService) Update(ctx context.Context, claims *models.TokenClaims, id string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}

	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	owns := student.OwnerUserID == claims.UserID
	if !Allowed(claims.Role, ActionStudentUpdate, owns) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	student.Name = req.Name
	student.Age = *req.Age
	if req.Courses != nil {
		student.Courses = pq.StringArray(req.Courses)
	} else {
		student.Courses = pq.StringArray{}
	}

	if err := s.repo.Update(ctx, student); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}

	s.invalidateListCache(ctx)

	return student, nil
}

// Delete removes a student, honoring the ownership rule.
func (s *StudentService) Delete(ctx context.Context, claims *models.TokenClaims, id string) error {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	owns := student.OwnerUserID == claims.UserID
	if !Allowed(claims.Role, ActionStudentDelete, owns) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}

	s.invalidateListCache(ctx)

	return nil
}

// ExportAll returns every student with owner usernames for roster export.
func (s *StudentService) ExportAll(ctx context.Context) ([]models.StudentDetail, error) {
	students, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export students")
	}
	return students, nil
}

func (s *StudentService) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, cacheKeyStudentsPattern); err != nil {
		s.logger.Warn("student list cache invalidation failed", zap.Error(err))
	}
}
