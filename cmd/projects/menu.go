package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/saltyorg/projects/internal/database"
	"github.com/saltyorg/projects/internal/service"
)

var operations = []string{
	"1) Add a project",
	"2) List projects",
	"3) Select a project",
}

// errInput marks a line the user typed that could not be used.
var errInput = errors.New("invalid input")

// menu is the interactive loop. A blank selection or end of input quits.
type menu struct {
	svc     *service.ProjectService
	in      *bufio.Scanner
	out     io.Writer
	current *database.Project
}

func newMenu(svc *service.ProjectService, in io.Reader, out io.Writer) *menu {
	return &menu{svc: svc, in: bufio.NewScanner(in), out: out}
}

func (m *menu) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		m.printOperations()
		selection, ok, err := m.intInput("\nEnter a menu selection")
		if errors.Is(err, io.EOF) || (err == nil && !ok) {
			fmt.Fprintln(m.out, "Exiting the menu...")
			return nil
		}

		if err == nil {
			switch selection {
			case 1:
				err = m.createProject(ctx)
			case 2:
				_, err = m.listProjects(ctx)
			case 3:
				err = m.selectProject(ctx)
			default:
				fmt.Fprintf(m.out, "\n%d is not valid. Try again.\n", selection)
				continue
			}
		}

		if errors.Is(err, io.EOF) {
			fmt.Fprintln(m.out, "Exiting the menu...")
			return nil
		}
		if err != nil {
			log.Debug().Err(err).Int("selection", selection).Msg("Menu operation failed")
			fmt.Fprintf(m.out, "\nError: %v. Try again.\n", err)
		}
	}
}

func (m *menu) printOperations() {
	fmt.Fprintln(m.out, "\nThese are the available selections. Press Enter to quit:")
	for _, line := range operations {
		fmt.Fprintln(m.out, "   "+line)
	}

	if m.current == nil {
		fmt.Fprintln(m.out, "\nYou are not working with a project.")
	} else {
		fmt.Fprintf(m.out, "\nYou are working with project: %s\n", summary(m.current))
	}
}

func (m *menu) createProject(ctx context.Context) error {
	name, _, err := m.stringInput("Enter the project name")
	if err != nil {
		return err
	}
	estimated, err := m.decimalInput("Enter the estimated hours")
	if err != nil {
		return err
	}
	actual, err := m.decimalInput("Enter the actual hours")
	if err != nil {
		return err
	}
	difficulty, err := m.optionalInt("Enter the project difficulty (1-5)")
	if err != nil {
		return err
	}
	notes, hasNotes, err := m.stringInput("Enter the project notes")
	if err != nil {
		return err
	}

	project := &database.Project{
		ProjectName:    name,
		EstimatedHours: estimated,
		ActualHours:    actual,
		Difficulty:     difficulty,
	}
	if hasNotes {
		project.Notes = &notes
	}

	saved, err := m.svc.AddProject(ctx, project)
	if err != nil {
		return err
	}

	fmt.Fprintln(m.out, "You added this project:")
	printProject(m.out, saved)
	return nil
}

func (m *menu) listProjects(ctx context.Context) ([]database.Project, error) {
	projects, err := m.svc.FetchAllProjects(ctx)
	if err != nil {
		return nil, err
	}
	printProjectList(m.out, projects)
	return projects, nil
}

func (m *menu) selectProject(ctx context.Context) error {
	if _, err := m.listProjects(ctx); err != nil {
		return err
	}

	id, ok, err := m.intInput("Enter a project ID to select a project")
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	project, err := m.svc.FetchProjectByID(ctx, int64(id))
	if err != nil {
		return err
	}
	m.current = project
	return nil
}

// stringInput prompts and reads one trimmed line. ok is false for a blank line.
func (m *menu) stringInput(prompt string) (string, bool, error) {
	fmt.Fprint(m.out, prompt+": ")
	if !m.in.Scan() {
		if err := m.in.Err(); err != nil {
			return "", false, fmt.Errorf("failed to read input: %w", err)
		}
		return "", false, io.EOF
	}

	line := strings.TrimSpace(m.in.Text())
	return line, line != "", nil
}

func (m *menu) intInput(prompt string) (int, bool, error) {
	s, ok, err := m.stringInput(prompt)
	if err != nil || !ok {
		return 0, false, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s is not a valid number", errInput, s)
	}
	return n, true, nil
}

func (m *menu) optionalInt(prompt string) (*int, error) {
	n, ok, err := m.intInput(prompt)
	if err != nil || !ok {
		return nil, err
	}
	return &n, nil
}

func (m *menu) decimalInput(prompt string) (*decimal.Decimal, error) {
	s, ok, err := m.stringInput(prompt)
	if err != nil || !ok {
		return nil, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid number", errInput, s)
	}
	return &d, nil
}
