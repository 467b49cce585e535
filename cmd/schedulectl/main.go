package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shift-rota-api/internal/dto"
	"github.com/noah-isme/shift-rota-api/internal/models"
	"github.com/noah-isme/shift-rota-api/internal/repository"
	"github.com/noah-isme/shift-rota-api/internal/service"
	"github.com/noah-isme/shift-rota-api/pkg/config"
	"github.com/noah-isme/shift-rota-api/pkg/database"
	"github.com/noah-isme/shift-rota-api/pkg/logger"
	"github.com/noah-isme/shift-rota-api/pkg/storage"
)

const usage = `usage: schedulectl <command> [flags] [args]

commands:
  migrate                              apply database migrations
  generate [-parent id] [-name n]      generate the next schedule
  revert <ROOT|id>                     move the current schedule pointer
  show <id>                            print a schedule as JSON
  export <id> [-format f] [-out dir]   render a schedule (csv, sheets-export, pdf)
  use-availability <id>                activate an availability set
  prune-exports [-dir d] [-older-than dur]
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type scheduleCommands interface {
	Get(ctx context.Context, rawID string) (*dto.ScheduleResponse, error)
	Export(ctx context.Context, rawID, format string) (*dto.ExportResult, error)
	Revert(ctx context.Context, req dto.RevertScheduleRequest) (*models.Parameters, error)
}

type generateCommand interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
}

type parametersCommand interface {
	Update(ctx context.Context, req dto.UpdateParametersRequest) (*models.Parameters, error)
}

type app struct {
	db        *sqlx.DB
	logger    *zap.Logger
	params    parametersCommand
	schedules scheduleCommands
	generator generateCommand
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cmd, rest := args[0], args[1:]

	if cmd == "prune-exports" {
		return pruneExports(rest, stdout, stderr)
	}
	if !knownCommand(cmd) {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	defer a.close()

	if err := a.dispatch(ctx, cmd, rest, stdout); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", cmd, err)
		return 1
	}
	return 0
}

func knownCommand(cmd string) bool {
	switch cmd {
	case "migrate", "generate", "revert", "show", "export", "use-availability":
		return true
	}
	return false
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	subjectRepo := repository.NewSubjectRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	paramsRepo := repository.NewParametersRepository(db)

	availability := service.NewAvailabilityService(db, availabilityRepo, subjectRepo, slotRepo, paramsRepo, nil, nil, logr)
	return &app{
		db:        db,
		logger:    logr,
		params:    service.NewParametersService(db, paramsRepo, scheduleRepo, availabilityRepo, nil, logr),
		schedules: service.NewScheduleService(db, scheduleRepo, paramsRepo, nil, nil, cfg.Scheduler, cfg.Export, nil, logr),
		generator: service.NewScheduleGeneratorService(db, scheduleRepo, paramsRepo, availability, nil, nil, cfg.Scheduler, nil, logr),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
	_ = a.db.Close()
}

func (a *app) dispatch(ctx context.Context, cmd string, args []string, stdout io.Writer) error {
	switch cmd {
	case "migrate":
		return database.Migrate(ctx, a.db, a.logger)

	case "generate":
		fs := flag.NewFlagSet("generate", flag.ContinueOnError)
		parent := fs.String("parent", "", "parent schedule id (defaults to the current schedule)")
		name := fs.String("name", "", "schedule name")
		if err := fs.Parse(args); err != nil {
			return err
		}
		resp, err := a.generator.Generate(ctx, dto.GenerateScheduleRequest{Parent: *parent, Name: *name})
		if err != nil {
			return err
		}
		return printJSON(stdout, resp)

	case "revert":
		target, err := single(args, "ROOT or schedule id")
		if err != nil {
			return err
		}
		params, err := a.schedules.Revert(ctx, dto.RevertScheduleRequest{Target: target})
		if err != nil {
			return err
		}
		return printJSON(stdout, params)

	case "show":
		id, err := single(args, "schedule id")
		if err != nil {
			return err
		}
		detail, err := a.schedules.Get(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(stdout, detail)

	case "export":
		opts, err := parseExportArgs(args)
		if err != nil {
			return err
		}
		result, err := a.schedules.Export(ctx, opts.id, opts.format)
		if err != nil {
			return err
		}
		if opts.out == "" {
			_, err := stdout.Write(result.Body)
			return err
		}
		store, err := storage.NewLocalStorage(opts.out)
		if err != nil {
			return err
		}
		path, err := store.Save(result.Filename, result.Body)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, path)
		return nil

	case "use-availability":
		id, err := single(args, "availability id")
		if err != nil {
			return err
		}
		params, err := a.params.Update(ctx, dto.UpdateParametersRequest{AvailabilityID: id})
		if err != nil {
			return err
		}
		return printJSON(stdout, params)
	}
	return fmt.Errorf("unknown command %q", cmd)
}

type exportOptions struct {
	id     string
	format string
	out    string
}

// parseExportArgs accepts the schedule id either before or after the flags.
func parseExportArgs(args []string) (exportOptions, error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", string(dto.ExportFormatCSV), "csv, sheets-export or pdf")
	out := fs.String("out", "", "directory to write the file to (stdout when empty)")

	var id string
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		id, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		return exportOptions{}, err
	}
	if id == "" {
		parsed, err := single(fs.Args(), "schedule id")
		if err != nil {
			return exportOptions{}, err
		}
		id = parsed
	} else if fs.NArg() > 0 {
		return exportOptions{}, fmt.Errorf("unexpected arguments after flags: %s", strings.Join(fs.Args(), " "))
	}
	return exportOptions{id: id, format: *format, out: *out}, nil
}

func pruneExports(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("prune-exports", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dir := fs.String("dir", "./exports", "export directory")
	olderThan := fs.Duration("older-than", 7*24*time.Hour, "remove files last written before now minus this duration")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	store, err := storage.NewLocalStorage(*dir)
	if err != nil {
		fmt.Fprintf(stderr, "prune-exports: %v\n", err)
		return 1
	}
	deleted, err := store.CleanupOlderThan(*olderThan)
	if err != nil {
		fmt.Fprintf(stderr, "prune-exports: %v\n", err)
		return 1
	}
	for _, name := range deleted {
		fmt.Fprintln(stdout, name)
	}
	return 0
}

func single(args []string, what string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one argument: %s", what)
	}
	return args[0], nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
