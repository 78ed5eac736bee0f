package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/orderdesk/backend/internal/infrastructure/config"
	"github.com/orderdesk/backend/internal/infrastructure/logger"
	"github.com/orderdesk/backend/internal/infrastructure/migration"
	"github.com/orderdesk/backend/migrations"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// env carries what a command may need. migrator is nil for offline commands.
type env struct {
	args     []string
	dir      string
	source   fs.FS
	log      *zap.Logger
	migrator *migration.Migrator
}

type command struct {
	usage   string
	offline bool // runs without a database connection
	minArgs int
	run     func(e *env) error
}

var commands = map[string]command{
	"up":   {usage: "up                    Apply all pending migrations", run: func(e *env) error { return e.migrator.Up() }},
	"down": {usage: "down                  Roll back all migrations", run: func(e *env) error { return e.migrator.Down() }},
	"step": {usage: "step <n>              Apply n migrations (negative rolls back)", minArgs: 1, run: func(e *env) error {
		n, err := strconv.Atoi(e.args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", e.args[0])
		}
		return e.migrator.Steps(n)
	}},
	"goto": {usage: "goto <version>        Migrate up or down to version", minArgs: 1, run: func(e *env) error {
		v, err := strconv.ParseUint(e.args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", e.args[0])
		}
		return e.migrator.GoTo(uint(v))
	}},
	"status": {usage: "status                Show the current version and pending migrations", run: printStatus},
	"force": {usage: "force <version>       Mark version applied and clear the dirty flag", minArgs: 1, run: func(e *env) error {
		v, err := strconv.Atoi(e.args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", e.args[0])
		}
		return e.migrator.Force(v)
	}},
	"drop": {usage: "drop --confirm        Drop every database object", run: func(e *env) error {
		if !confirmDrop {
			return errors.New("drop needs --confirm")
		}
		return e.migrator.Drop()
	}},
	"create": {usage: "create <name> [desc]  Write a new up/down migration pair", offline: true, minArgs: 1, run: createMigration},
	"list":   {usage: "list                  List available migrations", offline: true, run: listMigrations},
}

var commandOrder = []string{"up", "down", "step", "goto", "status", "force", "drop", "create", "list"}

var confirmDrop bool

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	dir := flags.String("path", "", "read migrations from this directory instead of the embedded set")
	logLevel := flags.String("log-level", "info", "debug, info, warn or error")
	configFile := flags.String("config", "", "config file (default: config.toml search path)")
	flags.BoolVar(&confirmDrop, "confirm", false, "required by drop")
	flags.String("database.host", "", "override database host")
	flags.Int("database.port", 0, "override database port")
	flags.String("database.dbname", "", "override database name")
	flags.String("database.user", "", "override database user")
	flags.String("database.sslmode", "", "override sslmode")
	flags.Usage = func() { printUsage(flags) }
	_ = flags.Parse(os.Args[1:])

	if flags.NArg() == 0 {
		flags.Usage()
		os.Exit(2)
	}
	name := flags.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		flags.Usage()
		os.Exit(2)
	}
	args := flags.Args()[1:]
	if len(args) < cmd.minArgs {
		fmt.Fprintf(os.Stderr, "usage: migrate %s\n", cmd.usage)
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{Level: *logLevel})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	e := &env{args: args, dir: *dir, source: migrations.FS, log: log}
	if *dir != "" {
		e.source = os.DirFS(*dir)
	}

	if !cmd.offline {
		opts := []config.Option{config.WithFlags(flags)}
		if *configFile != "" {
			opts = append(opts, config.WithConfigFile(*configFile))
		}
		closeDB, err := connect(e, opts)
		if err != nil {
			log.Fatal("Cannot reach database", zap.Error(err))
		}
		defer closeDB()
	}

	if err := cmd.run(e); err != nil {
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func connect(e *env, opts []config.Option) (func(), error) {
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	m, err := migration.New(db, e.source, e.log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	e.migrator = m
	return func() {
		_ = m.Close()
		_ = db.Close()
	}, nil
}

func printStatus(e *env) error {
	status, err := e.migrator.Status()
	if err != nil {
		return err
	}
	e.log.Info("Migration status",
		zap.Uint("version", status.Version),
		zap.Bool("dirty", status.Dirty),
		zap.Strings("pending", status.Pending),
	)
	return nil
}

func createMigration(e *env) error {
	dir := e.dir
	if dir == "" {
		dir = "migrations"
	}
	var description string
	if len(e.args) > 1 {
		description = e.args[1]
	}
	mf, err := migration.CreateMigration(dir, e.args[0], description)
	if err != nil {
		return err
	}
	e.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func listMigrations(e *env) error {
	names, err := migration.ListMigrations(e.source)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func printUsage(flags *pflag.FlagSet) {
	fmt.Fprintln(os.Stderr, "Orderdesk database migrations\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range commandOrder {
		fmt.Fprintln(os.Stderr, "  "+commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nFlags:")
	fmt.Fprint(os.Stderr, flags.FlagUsages())
	fmt.Fprintln(os.Stderr, "\nDatabase settings also come from config.toml, .env and ORDERDESK_DATABASE_* variables.")
}
