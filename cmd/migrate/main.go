package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	"github.com/rxsupply/backend/internal/infrastructure/config"
	"github.com/rxsupply/backend/internal/infrastructure/logger"
	"github.com/rxsupply/backend/internal/infrastructure/migration"
	"go.uber.org/zap"
)

var errUsage = errors.New("invalid usage")

// session carries what a command needs. migrator is nil for offline
// commands (create, list).
type session struct {
	log      *zap.Logger
	path     string
	migrator *migration.Migrator
}

type command struct {
	usage   string
	summary string
	offline bool
	run     func(s *session, args []string) error
}

var commands = map[string]command{
	"up": {
		usage: "up", summary: "Apply all pending lot schema migrations",
		run: func(s *session, _ []string) error { return s.migrator.Up() },
	},
	"down": {
		usage: "down", summary: "Roll back every migration",
		run: func(s *session, _ []string) error { return s.migrator.Down() },
	},
	"step": {
		usage: "step <n>", summary: "Apply n migrations (negative rolls back)",
		run: func(s *session, args []string) error {
			n, err := intArg(args, "step count")
			if err != nil {
				return err
			}
			return s.migrator.Steps(n)
		},
	},
	"goto": {
		usage: "goto <version>", summary: "Migrate up or down to a version",
		run: func(s *session, args []string) error {
			v, err := intArg(args, "version")
			if err != nil {
				return err
			}
			if v < 0 {
				return fmt.Errorf("%w: version must not be negative", errUsage)
			}
			return s.migrator.GoTo(uint(v))
		},
	},
	"version": {
		usage: "version", summary: "Show the applied version",
		run: func(s *session, _ []string) error {
			version, dirty, err := s.migrator.Version()
			if err != nil {
				return err
			}
			if version == 0 {
				s.log.Info("No migrations applied")
				return nil
			}
			s.log.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
			return nil
		},
	},
	"force": {
		usage: "force <version>", summary: "Mark a version as applied after a failed run",
		run: func(s *session, args []string) error {
			v, err := intArg(args, "version")
			if err != nil {
				return err
			}
			s.log.Warn("Forcing migration version; the schema is not touched", zap.Int("version", v))
			return s.migrator.Force(v)
		},
	},
	"drop": {
		usage: "drop -confirm", summary: "Drop the lot, movement and size tables",
		run: func(s *session, args []string) error {
			if !hasConfirm(args) {
				return fmt.Errorf("%w: drop needs -confirm", errUsage)
			}
			return s.migrator.Drop()
		},
	},
	"create": {
		usage: "create <name> [description]", summary: "Write a new numbered up/down pair",
		offline: true,
		run: func(s *session, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: migration name required", errUsage)
			}
			mf, err := migration.CreateMigration(s.path, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			s.log.Info("Migration created",
				zap.String("version", mf.Version),
				zap.String("up_file", mf.UpPath),
				zap.String("down_file", mf.DownPath),
			)
			return nil
		},
	},
	"list": {
		usage: "list", summary: "List migration files",
		offline: true,
		run: func(s *session, _ []string) error {
			files, err := migration.ListMigrations(s.path)
			if err != nil {
				return err
			}
			s.log.Info("Available migrations", zap.Int("count", len(files)))
			for _, f := range files {
				fmt.Println("  -", f)
			}
			return nil
		},
	},
}

func main() {
	var (
		migrationsPath string
		logLevel       string
		embedded       bool
	)
	flag.StringVar(&migrationsPath, "path", "", "Migrations directory (default: database.migrations_path)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&embedded, "embedded", false, "Use the migrations compiled into this binary instead of -path")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		printUsage()
		os.Exit(2)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logLevel
	logCfg.TimeFormat = "2006-01-02 15:04:05"
	log, err := logger.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	s := &session{log: log}
	if migrationsPath == "" {
		migrationsPath = resolveMigrationsPath(cfg.Database.MigrationsPath)
	}
	if s.path, err = filepath.Abs(migrationsPath); err != nil {
		log.Fatal("Failed to resolve migrations path", zap.Error(err))
	}
	if cmd.offline && embedded {
		log.Fatal("The embedded migrations are read-only", zap.String("command", name))
	}

	log.Info("Migration CLI started",
		zap.String("command", name),
		zap.String("migrations_path", s.path),
		zap.Bool("embedded", embedded),
	)

	if !cmd.offline {
		db, err := sql.Open("postgres", cfg.Database.DSN())
		if err != nil {
			log.Fatal("Failed to open database", zap.Error(err))
		}
		if err := db.Ping(); err != nil {
			log.Fatal("Failed to ping database", zap.Error(err))
		}
		if embedded {
			s.migrator, err = migration.NewEmbedded(db, log)
		} else {
			s.migrator, err = migration.New(db, s.path, log)
		}
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		// closes db as well
		defer func() { _ = s.migrator.Close() }()
	}

	if err := cmd.run(s, rest); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%v\nusage: migrate %s\n", err, cmd.usage)
			os.Exit(2)
		}
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func intArg(args []string, what string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: %s required", errUsage, what)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errUsage, what, args[0])
	}
	return n, nil
}

func hasConfirm(args []string) bool {
	for _, arg := range args {
		if arg == "-confirm" || arg == "--confirm" {
			return true
		}
	}
	return false
}

// resolveMigrationsPath looks for the configured directory in the working
// directory first, then relative to the binary (bin/<name> inside a checkout)
func resolveMigrationsPath(configured string) string {
	if filepath.IsAbs(configured) {
		return configured
	}
	if _, err := os.Stat(configured); err == nil {
		return configured
	}
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), "..", configured)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return configured
}

func usageText() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Lot inventory schema migrations\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "  %-28s %s\n", commands[name].usage, commands[name].summary)
	}
	b.WriteString(`
Flags:
  -path string       Migrations directory (default: database.migrations_path)
  -embedded          Apply the migrations compiled into this binary
  -log-level string  debug, info, warn, error (default: info)

Connection settings come from RX_DATABASE_* (HOST, PORT, USER, PASSWORD,
DBNAME, SSLMODE, MIGRATIONS_PATH).

Examples:
  migrate up
  migrate -embedded version
  migrate step -1
  migrate create add_lot_recall_flag "Track recalled lots"
`)
	return b.String()
}

func printUsage() {
	fmt.Fprint(os.Stderr, usageText())
}
