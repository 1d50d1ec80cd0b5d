package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/saltyorg/projects/internal/database"
)

// ErrProjectNotFound is matched by the error FetchProjectByID returns for an
// unknown id.
var ErrProjectNotFound = errors.New("project not found")

// ProjectStore is the persistence the service relies on.
type ProjectStore interface {
	InsertProject(ctx context.Context, project *database.Project) (*database.Project, error)
	FetchAllProjects(ctx context.Context) ([]database.Project, error)
	FetchProjectByID(ctx context.Context, id int64) (database.Optional[database.Project], error)
}

// NotFoundError reports a project id that does not exist.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("project with ID=%d does not exist", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrProjectNotFound }

// FieldError names one rejected input field and the rule it broke.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (f FieldError) String() string {
	if f.Param != "" {
		return fmt.Sprintf("%s must satisfy %s=%s", f.Field, f.Rule, f.Param)
	}
	return fmt.Sprintf("%s is %s", f.Field, f.Rule)
}

// ValidationError is returned by AddProject before anything is written.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "invalid project: " + strings.Join(parts, "; ")
}

type projectInput struct {
	Name           string           `label:"project name" validate:"required,max=128"`
	EstimatedHours *decimal.Decimal `label:"estimated hours" validate:"omitempty,gte=0"`
	ActualHours    *decimal.Decimal `label:"actual hours" validate:"omitempty,gte=0"`
	Difficulty     *int             `label:"difficulty" validate:"omitempty,min=1,max=5"`
}

// ProjectService sits between the menu and the store.
type ProjectService struct {
	store    ProjectStore
	validate *validator.Validate
}

// New returns a service backed by store.
func New(store ProjectStore) *ProjectService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("label")
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.InexactFloat64()
		}
		return nil
	}, decimal.Decimal{})

	return &ProjectService{store: store, validate: v}
}

// AddProject validates project and persists it.
func (s *ProjectService) AddProject(ctx context.Context, project *database.Project) (*database.Project, error) {
	if project == nil {
		return nil, errors.New("project is nil")
	}

	if err := s.check(project); err != nil {
		return nil, err
	}

	saved, err := s.store.InsertProject(ctx, project)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("project_id", saved.ProjectID).Str("name", saved.ProjectName).Msg("Project added")
	return saved, nil
}

// FetchAllProjects returns every project ordered by name.
func (s *ProjectService) FetchAllProjects(ctx context.Context) ([]database.Project, error) {
	return s.store.FetchAllProjects(ctx)
}

// FetchProjectByID returns the fully loaded project, or an error matching
// ErrProjectNotFound when there is none.
func (s *ProjectService) FetchProjectByID(ctx context.Context, id int64) (*database.Project, error) {
	found, err := s.store.FetchProjectByID(ctx, id)
	if err != nil {
		return nil, err
	}

	project, ok := found.Get()
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return &project, nil
}

func (s *ProjectService) check(project *database.Project) error {
	in := projectInput{
		Name:           strings.TrimSpace(project.ProjectName),
		EstimatedHours: project.EstimatedHours,
		ActualHours:    project.ActualHours,
		Difficulty:     project.Difficulty,
	}

	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate project: %w", err)
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()}
	}
	return &ValidationError{Fields: fields}
}
