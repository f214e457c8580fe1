package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/syssam/dao"
	"github.com/syssam/dao/dialect"
	"github.com/syssam/dao/dialect/sql"

	// Engines selectable with --dialect.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/syssam/dao/dialect/sql/sqlite"
)

const defaultConfigFile = "daoctl.yaml"

// app is the state shared by the commands of one invocation.
type app struct {
	cfgFile string
	stats   bool
	debug   bool

	cfg     dao.Config
	catalog *catalog
	log     *slog.Logger
	drv     *sql.Driver
	conn    dialect.Driver
	counter *sql.StatsDriver
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "daoctl",
		Short: "Inspect tables through data-access objects",
		Long: `daoctl reads the tables listed in a YAML catalog through the generic
data-access object and query builder, so rows are materialized exactly as an
application sees them.

The configuration file holds both the engine settings and the catalog:

  dialect: sqlite
  dsn: file:notes.db
  tables:
    - name: NOTE
      columns:
        - {name: _id, type: int64, pk: true}
        - {name: TEXT, type: string}`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.ErrOrStderr())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.cfgFile, "config", "c", defaultConfigFile, "configuration and catalog file")
	flags.String("dialect", "", "engine dialect (sqlite|postgres|mysql)")
	flags.String("dsn", "", "data source name")
	flags.Bool("log-sql", false, "log built SQL")
	flags.Bool("log-values", false, "log bound values with the SQL")
	flags.String("collation", "", "collation of string ORDER BY terms")
	flags.Duration("slow-query-threshold", 0, "threshold of the slow statement log")
	flags.Int("max-open-conns", 0, "maximum number of open connections")
	flags.BoolVar(&a.stats, "stats", false, "print statement statistics when done")
	flags.BoolVar(&a.debug, "debug", false, "log every statement")

	root.AddCommand(
		newCountCmd(a),
		newListCmd(a),
		newGetCmd(a),
		newDeleteCmd(a),
		newTruncateCmd(a),
		newValidateCmd(a),
	)
	return root
}

// load reads the configuration and the catalog.
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := dao.LoadConfig(existing(a.cfgFile), cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if a.debug || cfg.LogSQL {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	cfg.Logger = a.log
	a.cfg = cfg
	a.catalog, err = loadCatalog(existing(a.cfgFile))
	return err
}

// open connects to the engine on first use.
func (a *app) open() (dialect.Driver, error) {
	if a.conn != nil {
		return a.conn, nil
	}
	drv, err := sql.Open(a.cfg.Dialect, a.cfg.DSN)
	if err != nil {
		return nil, err
	}
	if a.cfg.MaxOpenConns > 0 {
		drv.DB().SetMaxOpenConns(a.cfg.MaxOpenConns)
	}
	a.drv = drv
	var conn dialect.Driver = drv
	if a.debug {
		conn = sql.NewDebugDriver(conn, a.log)
	}
	if a.stats {
		a.counter = sql.NewStatsDriver(conn,
			sql.WithSlowThreshold(a.cfg.SlowQueryThreshold),
			sql.WithSlowQueryLog(a.log),
		)
		conn = a.counter
	}
	a.conn = conn
	return conn, nil
}

func (a *app) close(w io.Writer) error {
	if a.counter != nil {
		fmt.Fprintln(w, a.counter.QueryStats().Stats())
	}
	if a.drv != nil {
		return a.drv.Close()
	}
	return nil
}

// store opens the engine and returns the store of the named table.
func (a *app) store(name string) (store, error) {
	t, err := a.catalog.table(name)
	if err != nil {
		return nil, err
	}
	conn, err := a.open()
	if err != nil {
		return nil, err
	}
	return newStore(conn, t, a.cfg)
}
