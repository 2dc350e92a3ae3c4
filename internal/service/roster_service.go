package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

type studentRoster interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
}

type teacherRoster interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
}

// CreateStudentRequest registers a student on the roster.
type CreateStudentRequest struct {
	NIM      string  `json:"nim" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"full_name" validate:"required"`
	GPA      float64 `json:"gpa" validate:"gte=0,lte=4"`
	Credits  int     `json:"credits" validate:"gte=0"`
}

// UpdateStudentRequest refreshes roster data for a student.
type UpdateStudentRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"full_name" validate:"required"`
	GPA      float64 `json:"gpa" validate:"gte=0,lte=4"`
	Credits  int     `json:"credits" validate:"gte=0"`
	Active   bool    `json:"active"`
}

// CreateTeacherRequest registers a teacher on the roster.
type CreateTeacherRequest struct {
	NIP       *string `json:"nip"`
	Email     string  `json:"email" validate:"required,email"`
	FullName  string  `json:"full_name" validate:"required"`
	Expertise *string `json:"expertise"`
}

// UpdateTeacherRequest refreshes roster data for a teacher.
type UpdateTeacherRequest struct {
	NIP       *string `json:"nip"`
	Email     string  `json:"email" validate:"required,email"`
	FullName  string  `json:"full_name" validate:"required"`
	Expertise *string `json:"expertise"`
	Active    bool    `json:"active"`
}

// RosterService is the admin surface over student and teacher records.
type RosterService struct {
	students  studentRoster
	teachers  teacherRoster
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(students studentRoster, teachers teacherRoster, validate *validator.Validate, logger *zap.Logger) *RosterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{students: students, teachers: teachers, validator: validate, logger: logger}
}

// ListStudents returns students matching the filter.
func (s *RosterService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetStudent returns one roster row.
func (s *RosterService) GetStudent(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load student")
	}
	return student, nil
}

// CreateStudent registers a student.
func (s *RosterService) CreateStudent(ctx context.Context, actor models.Actor, req CreateStudentRequest) (*models.Student, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators manage the roster")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid student payload")
	}
	student := &models.Student{
		NIM:      req.NIM,
		Email:    req.Email,
		FullName: req.FullName,
		GPA:      req.GPA,
		Credits:  req.Credits,
		Active:   true,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create student")
	}
	return student, nil
}

// UpdateStudent refreshes a roster row.
func (s *RosterService) UpdateStudent(ctx context.Context, actor models.Actor, id string, req UpdateStudentRequest) (*models.Student, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators manage the roster")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid student payload")
	}
	student, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	student.Email = req.Email
	student.FullName = req.FullName
	student.GPA = req.GPA
	student.Credits = req.Credits
	student.Active = req.Active
	if err := s.students.Update(ctx, student); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to update student")
	}
	return student, nil
}

// ListTeachers returns teachers matching the filter.
func (s *RosterService) ListTeachers(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.teachers.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return teachers, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetTeacher returns one roster row.
func (s *RosterService) GetTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.teachers.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to load teacher")
	}
	return teacher, nil
}

// CreateTeacher registers a teacher.
func (s *RosterService) CreateTeacher(ctx context.Context, actor models.Actor, req CreateTeacherRequest) (*models.Teacher, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators manage the roster")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid teacher payload")
	}
	teacher := &models.Teacher{
		NIP:       req.NIP,
		Email:     req.Email,
		FullName:  req.FullName,
		Expertise: req.Expertise,
		Active:    true,
	}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to create teacher")
	}
	return teacher, nil
}

// UpdateTeacher refreshes a roster row.
func (s *RosterService) UpdateTeacher(ctx context.Context, actor models.Actor, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if !actor.CanOperate() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators manage the roster")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrValidation, "invalid teacher payload")
	}
	teacher, err := s.GetTeacher(ctx, id)
	if err != nil {
		return nil, err
	}
	teacher.NIP = req.NIP
	teacher.Email = req.Email
	teacher.FullName = req.FullName
	teacher.Expertise = req.Expertise
	teacher.Active = req.Active
	if err := s.teachers.Update(ctx, teacher); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "failed to update teacher")
	}
	return teacher, nil
}
