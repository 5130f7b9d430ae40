// Package cli implements the wdparse command-line interface.
package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"wikidatago/pkg/cache"
	"wikidatago/pkg/config"
	"wikidatago/pkg/db"
	"wikidatago/pkg/fetch"
	"wikidatago/pkg/logging"
	"wikidatago/pkg/request"
	"wikidatago/pkg/store"
	"wikidatago/pkg/tracker"
	"wikidatago/pkg/version"
	"wikidatago/pkg/wikidata"
)

const defaultConfigPath = "configs/wdparse.yaml"

var (
	cfgPath  string
	modeFlag string
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config  *config.Config
	DB      *db.DB
	Store   *store.SQLiteStore
	Tracker *tracker.Tracker

	closeLogs func()
}

// active is the context of the running command, closed by exit.
var active *cmdContext

var (
	defaultExit = os.Exit
	osExit      = defaultExit // swapped in tests
)

// Close releases resources held by cmdContext. It is safe to call twice.
func (c *cmdContext) Close() {
	if c.Store != nil {
		c.Store.Close()
		c.Store = nil
	}
	if c.closeLogs != nil {
		c.closeLogs()
		c.closeLogs = nil
	}
}

// exit closes the active command context, flushing log files, then exits.
func exit(code int) {
	if active != nil {
		active.Close()
		active = nil
	}
	osExit(code)
}

// initConfig loads .env, the config file and the logging setup. Nothing is opened on disk
// beyond the log files.
func initConfig() *cmdContext {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		exitError("failed to load config: %v", err)
	}
	if modeFlag != "" {
		cfg.Parser.Mode = modeFlag
		if err := cfg.Validate(); err != nil {
			exitError("%v", err)
		}
	}

	closeLogs, err := logging.Init(&cfg.Log)
	if err != nil {
		exitError("failed to initialize logging: %v", err)
	}
	slog.Debug("wdparse started", "version", version.Version, "config", cfgPath)

	active = &cmdContext{Config: cfg, Tracker: tracker.New(), closeLogs: closeLogs}
	return active
}

// initContext also opens the database and store
func initContext() *cmdContext {
	c := initConfig()

	d, err := db.Init(c.Config.DB.Path)
	if err != nil {
		c.Close()
		exitError("failed to open database: %v", err)
	}
	c.DB = d
	c.Store = store.NewSQLiteStore(d)
	return c
}

func (c *cmdContext) parser() *wikidata.Parser {
	mode, _ := c.Config.ParserMode() // validated on load
	return wikidata.NewParser(wikidata.Options{Mode: mode, Logger: slog.Default()})
}

// fetcher builds the HTTP stack: sqlite cache, queued request client, Wikidata endpoints.
func (c *cmdContext) fetcher() *fetch.Client {
	var cacher cache.Cacher = cache.Noop{}
	if c.Config.Cache.Enabled && c.DB != nil {
		cacher = cache.NewSQLiteCache(c.DB, time.Duration(c.Config.Cache.TTL))
	}

	rc := c.Config.Request
	minGap := time.Duration(rc.MinGap)
	if minGap == 0 {
		minGap = -1 // explicit zero in config means no gap
	}
	req := request.New(cacher, c.Tracker, request.Options{
		Timeout:    time.Duration(rc.Timeout),
		MaxRetries: rc.Retries,
		BaseDelay:  time.Duration(rc.Backoff.BaseDelay),
		MaxDelay:   time.Duration(rc.Backoff.MaxDelay),
		MinGap:     minGap,
		UserAgent:  rc.UserAgent,
		Logger:     logging.RequestLogger,
	})

	f := fetch.NewClient(req, slog.Default())
	f.APIEndpoint = c.Config.Fetch.APIEndpoint
	f.EntityDataURL = c.Config.Fetch.EntityDataURL
	f.BatchSize = c.Config.Fetch.BatchSize
	return f
}

var rootCmd = &cobra.Command{
	Use:   "wdparse",
	Short: "Parse and validate Wikidata entity JSON",
	Long: `wdparse decodes Wikidata entity records (items and properties) into a typed
model, in strict or lenient mode, and reports every malformed part with its
location. It can read local files or fetch entities from Wikidata.`,
	Version: version.Version,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "Path to config file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVarP(&modeFlag, "mode", "m", "", "Parser mode override: strict or lenient")

	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(initConfigCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	errColor.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseIDs(args []string) []wikidata.EntityID {
	ids := make([]wikidata.EntityID, 0, len(args))
	for _, a := range args {
		id, err := wikidata.ParseEntityID(a)
		if err != nil {
			exitError("%v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

