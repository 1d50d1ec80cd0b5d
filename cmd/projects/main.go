package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/saltyorg/projects/internal/config"
	"github.com/saltyorg/projects/internal/database"
	"github.com/saltyorg/projects/internal/logging"
	"github.com/saltyorg/projects/internal/service"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// CLI flags
var (
	envFile   string
	driver    string
	dbPath    string
	host      string
	port      int
	schema    string
	user      string
	password  string
	logFile   string
	verbosity int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "projects",
		Short: "Projects - track DIY projects, materials and steps",
		Long:  `Projects keeps a list of projects with their materials, steps and categories in a relational database.`,
		RunE:  runMenu,

		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&envFile, "env-file", ".env", "Optional .env file with PROJECTS_* settings")
	flags.StringVar(&driver, "driver", "", "Database driver: sqlite, mysql or postgres (or set PROJECTS_DATABASE_DRIVER)")
	flags.StringVarP(&dbPath, "db", "d", "", "SQLite database path (or set PROJECTS_DATABASE_PATH)")
	flags.StringVar(&host, "host", "", "Database host for mysql/postgres")
	flags.IntVarP(&port, "port", "p", 0, "Database port for mysql/postgres (defaults per driver)")
	flags.StringVar(&schema, "schema", "", "Database schema for mysql/postgres")
	flags.StringVar(&user, "user", "", "Database user")
	flags.StringVar(&password, "password", "", "Database password (prefer PROJECTS_DATABASE_PASSWORD)")
	flags.StringVar(&logFile, "log-file", "", "Also write logs to this rotating file")
	flags.CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "menu",
			Short: "Run the interactive menu (default)",
			Args:  cobra.NoArgs,
			RunE:  runMenu,
		},
		newAddCmd(),
		&cobra.Command{
			Use:   "list",
			Short: "List all projects by name",
			Args:  cobra.NoArgs,
			RunE:  runList,
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show a project with its materials, steps and categories",
			Args:  cobra.ExactArgs(1),
			RunE:  runShow,
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Create any missing project tables",
			Args:  cobra.NoArgs,
			RunE:  runSchema,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "projects %s (commit: %s, built: %s)\n", version, commit, date)
			},
		},
	)

	return rootCmd
}

func newAddCmd() *cobra.Command {
	var (
		name       string
		estimated  string
		actual     string
		difficulty int
		notes      string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			project := &database.Project{ProjectName: name}
			if cmd.Flags().Changed("estimated-hours") {
				if project.EstimatedHours, err = parseDecimal(estimated); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("actual-hours") {
				if project.ActualHours, err = parseDecimal(actual); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("difficulty") {
				project.Difficulty = &difficulty
			}
			if cmd.Flags().Changed("notes") {
				project.Notes = &notes
			}

			saved, err := a.svc.AddProject(cmd.Context(), project)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "You added this project:")
			printProject(cmd.OutOrStdout(), saved)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Project name (required)")
	cmd.Flags().StringVar(&estimated, "estimated-hours", "", "Estimated hours, e.g. 4.5")
	cmd.Flags().StringVar(&actual, "actual-hours", "", "Actual hours, e.g. 5.25")
	cmd.Flags().IntVar(&difficulty, "difficulty", 0, "Difficulty from 1 to 5")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form notes")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

type app struct {
	db  *database.DB
	svc *service.ProjectService
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close database")
	}
}

// setup loads configuration, applies flag overrides, configures logging and
// opens the store. SQLite files get their tables created on first use and
// log next to the database unless a log file is configured.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	if cfg.Log.File == "" && cfg.Database.Driver == "sqlite" {
		cfg.Log.File = logging.FilePathForDB(cfg.Database.Path)
	}
	logging.Apply(cfg.Log, verbosity)

	log.Debug().
		Str("version", version).
		Str("driver", cfg.Database.Driver).
		Str("database", describeTarget(cfg.Database)).
		Msg("Starting projects")

	db, err := database.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "sqlite" {
		if err := db.CreateSchema(cmd.Context()); err != nil {
			db.Close()
			return nil, err
		}
	}

	return &app{db: db, svc: service.New(database.NewProjectDAO(db))}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Database.Driver = driver
	}
	if flags.Changed("db") {
		cfg.Database.Path = dbPath
	}
	if flags.Changed("host") {
		cfg.Database.Host = host
	}
	if flags.Changed("port") {
		cfg.Database.Port = port
	}
	if flags.Changed("schema") {
		cfg.Database.Schema = schema
	}
	if flags.Changed("user") {
		cfg.Database.User = user
	}
	if flags.Changed("password") {
		cfg.Database.Password = password
	}
	if flags.Changed("log-file") {
		cfg.Log.File = logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func describeTarget(cfg config.DatabaseConfig) string {
	if cfg.Driver == "sqlite" {
		return cfg.Path
	}
	return fmt.Sprintf("%s:%d/%s", cfg.Host, cfg.Port, cfg.Schema)
}

func runMenu(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	return newMenu(a.svc, cmd.InOrStdin(), cmd.OutOrStdout()).run(cmd.Context())
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	projects, err := a.svc.FetchAllProjects(cmd.Context())
	if err != nil {
		return err
	}
	printProjectList(cmd.OutOrStdout(), projects)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("%s is not a valid project ID", args[0])
	}

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	project, err := a.svc.FetchProjectByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	printProject(cmd.OutOrStdout(), project)
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.db.CreateSchema(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Schema ready on %s\n", a.db.Dialect().Name())
	return nil
}

func parseDecimal(s string) (*decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%s is not a valid number", s)
	}
	return &d, nil
}
