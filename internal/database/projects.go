package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const projectTable = "project"

// Project is a tracked project. ProjectID is zero until the store assigns it.
type Project struct {
	ProjectID      int64            `db:"project_id"`
	ProjectName    string           `db:"project_name"`
	EstimatedHours *decimal.Decimal `db:"estimated_hours"`
	ActualHours    *decimal.Decimal `db:"actual_hours"`
	Difficulty     *int             `db:"difficulty"`
	Notes          *string          `db:"notes"`

	Materials  []Material
	Steps      []Step
	Categories []Category
}

// Material is something a project consumes.
type Material struct {
	MaterialID   int64            `db:"material_id"`
	ProjectID    int64            `db:"project_id"`
	MaterialName string           `db:"material_name"`
	NumRequired  *int             `db:"num_required"`
	Cost         *decimal.Decimal `db:"cost"`
}

// Step is one ordered instruction of a project.
type Step struct {
	StepID    int64  `db:"step_id"`
	ProjectID int64  `db:"project_id"`
	StepText  string `db:"step_text"`
	StepOrder int    `db:"step_order"`
}

// Category is a label shared by any number of projects.
type Category struct {
	CategoryID   int64  `db:"category_id"`
	CategoryName string `db:"category_name"`
}

const (
	insertProjectSQL = `
		INSERT INTO project (project_name, estimated_hours, actual_hours, difficulty, notes)
		VALUES (?, ?, ?, ?, ?)`

	selectProjectsSQL = `
		SELECT project_id, project_name, estimated_hours, actual_hours, difficulty, notes
		FROM project
		ORDER BY project_name`

	selectProjectSQL = `
		SELECT project_id, project_name, estimated_hours, actual_hours, difficulty, notes
		FROM project
		WHERE project_id = ?`

	selectMaterialsSQL = `
		SELECT material_id, project_id, material_name, num_required, cost
		FROM material
		WHERE project_id = ?
		ORDER BY material_id`

	selectStepsSQL = `
		SELECT step_id, project_id, step_text, step_order
		FROM step
		WHERE project_id = ?
		ORDER BY step_order, step_id`

	selectCategoriesSQL = `
		SELECT c.category_id, c.category_name
		FROM project_category pc
		JOIN category c ON c.category_id = pc.category_id
		WHERE pc.project_id = ?
		ORDER BY c.category_name`
)

// ProjectDAO reads and writes projects. Every method runs on its own
// connection inside its own transaction.
type ProjectDAO struct {
	provider Provider
}

// NewProjectDAO returns a DAO that acquires connections from provider.
func NewProjectDAO(provider Provider) *ProjectDAO {
	return &ProjectDAO{provider: provider}
}

// InsertProject persists project and assigns its generated ProjectID once the
// insert has committed. On failure project is left untouched.
func (d *ProjectDAO) InsertProject(ctx context.Context, project *Project) (*Project, error) {
	if project == nil {
		return nil, errors.New("project is nil")
	}
	if project.ProjectID != 0 {
		return nil, fmt.Errorf("failed to insert project %d: %w", project.ProjectID, ErrAlreadyPersisted)
	}

	conn, err := d.provider.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release(conn)

	dialect := d.provider.Dialect()
	var id int64
	err = InTransaction(ctx, conn, "insert project", func(tx *Transaction) error {
		stmt, err := Prepare(ctx, tx, dialect, insertProjectSQL)
		if err != nil {
			return err
		}
		defer closeStmt(stmt)

		if err := bindAll(stmt, projectParams(project)...); err != nil {
			return err
		}

		if _, err := stmt.Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert project: %w", err)
		}

		id, err = LastInsertID(ctx, tx, dialect, projectTable)
		return err
	})
	if err != nil {
		return nil, err
	}

	project.ProjectID = id
	log.Debug().Str("op", "insert project").Int64("project_id", id).Msg("Project inserted")
	return project, nil
}

// FetchAllProjects returns every project ordered by name, without children.
func (d *ProjectDAO) FetchAllProjects(ctx context.Context) ([]Project, error) {
	conn, err := d.provider.Connect(ctx)
	if err != nil {
		return nil, err
	}
	defer release(conn)

	dialect := d.provider.Dialect()
	var projects []Project
	err = InTransaction(ctx, conn, "fetch all projects", func(tx *Transaction) error {
		projects, err = queryAll[Project](ctx, tx, dialect, selectProjectsSQL)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Debug().Str("op", "fetch all projects").Int("count", len(projects)).Msg("Projects fetched")
	return projects, nil
}

// FetchProjectByID returns the project with id together with its materials,
// steps and categories. An unknown id is reported as absent, not as an error.
func (d *ProjectDAO) FetchProjectByID(ctx context.Context, id int64) (Optional[Project], error) {
	conn, err := d.provider.Connect(ctx)
	if err != nil {
		return Absent[Project](), err
	}
	defer release(conn)

	dialect := d.provider.Dialect()
	result := Absent[Project]()
	err = InTransaction(ctx, conn, "fetch project", func(tx *Transaction) error {
		rows, err := queryAll[Project](ctx, tx, dialect, selectProjectSQL, param{id, ParamInt})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		project := rows[0]

		if project.Materials, err = queryAll[Material](ctx, tx, dialect, selectMaterialsSQL, param{id, ParamInt}); err != nil {
			return err
		}
		if project.Steps, err = queryAll[Step](ctx, tx, dialect, selectStepsSQL, param{id, ParamInt}); err != nil {
			return err
		}
		if project.Categories, err = queryAll[Category](ctx, tx, dialect, selectCategoriesSQL, param{id, ParamInt}); err != nil {
			return err
		}

		result = Present(project)
		return nil
	})
	if err != nil {
		return Absent[Project](), err
	}

	log.Debug().Str("op", "fetch project").Int64("project_id", id).Bool("found", result.IsPresent()).Msg("Project fetched")
	return result, nil
}

type param struct {
	value any
	typ   ParamType
}

// projectParams lists the insert parameters in column order.
var projectParams = func(p *Project) []param {
	return []param{
		{p.ProjectName, ParamString},
		{p.EstimatedHours, ParamDecimal},
		{p.ActualHours, ParamDecimal},
		{p.Difficulty, ParamInt},
		{p.Notes, ParamString},
	}
}

func bindAll(stmt *Statement, params ...param) error {
	for i, p := range params {
		if err := stmt.Bind(i+1, p.value, p.typ); err != nil {
			return err
		}
	}
	return nil
}

// queryAll prepares query on tx, binds params in order and extracts every row.
func queryAll[T any](ctx context.Context, tx *Transaction, dialect Dialect, query string, params ...param) ([]T, error) {
	stmt, err := Prepare(ctx, tx, dialect, query)
	if err != nil {
		return nil, err
	}
	defer closeStmt(stmt)

	if err := bindAll(stmt, params...); err != nil {
		return nil, err
	}

	rows, err := stmt.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	defer closeRows(rows)

	return extractAll[T](rows)
}

func closeStmt(stmt *Statement) {
	if err := stmt.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close prepared statement")
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close result set")
	}
}
