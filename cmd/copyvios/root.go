package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hyperifyio/copyvios/internal/app"
)

// errUsage marks bad command-line input.
var errUsage = errors.New("usage error")

// cli is the state shared by all subcommands of one invocation.
type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	cfgFile string
	envFile string

	v       *viper.Viper
	cfg     app.Config
	cfgUsed string
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout, stderr: stderr, v: app.NewViper()}
	root := &cobra.Command{
		Use:   "copyvios",
		Short: "Detect copyright violations in wiki articles",
		Long: `copyvios fingerprints an article's wording, searches the web for pages
that share it, and reports the best match with a confidence score.

Configuration precedence (highest first):
  1. command-line flags
  2. environment variables (COPYVIOS_*), optionally from a .env file
  3. config file ($HOME/.copyvios/config.yaml or --config)
  4. built-in defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default: $HOME/.copyvios/config.yaml)")
	pf.StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.BoolP("verbose", "v", false, "debug logging")
	pf.Bool("log-json", false, "log as JSON instead of console text")
	pf.String("engine", "", "search engine (searxng, google, file)")
	pf.String("cache-dir", "", "cache directory")
	pf.Float64("min-confidence", 0, "violation threshold in (0,1]")
	pf.Int("max-queries", 0, "maximum search queries per check, -1 for the chunk count")
	pf.Duration("sleep", 0, "minimum time between search queries")
	_ = c.v.BindPFlag("verbose", pf.Lookup("verbose"))
	_ = c.v.BindPFlag("logJSON", pf.Lookup("log-json"))
	_ = c.v.BindPFlag("search.engine", pf.Lookup("engine"))
	_ = c.v.BindPFlag("cache.dir", pf.Lookup("cache-dir"))
	_ = c.v.BindPFlag("detector.minConfidence", pf.Lookup("min-confidence"))
	_ = c.v.BindPFlag("detector.maxQueries", pf.Lookup("max-queries"))
	_ = c.v.BindPFlag("detector.interQuerySleep", pf.Lookup("sleep"))

	root.AddCommand(
		newCheckCmd(c),
		newCompareCmd(c),
		newTaskCmd(c),
		newConfigCmd(c),
		newVersionCmd(c),
	)
	return root
}

// load reads dotenv, config file and environment into c.cfg and sets up
// logging.
func (c *cli) load() error {
	if err := app.LoadEnvFiles(c.envFile); err != nil {
		return fmt.Errorf("%w: env file: %v", app.ErrInvalidConfig, err)
	}
	cfg, used, err := app.LoadConfig(c.v, c.cfgFile)
	if err != nil {
		return fmt.Errorf("%w: %v", app.ErrInvalidConfig, err)
	}
	c.cfg, c.cfgUsed = cfg, used
	setupLogging(c.stderr, cfg.Verbose, cfg.LogJSON)
	if used != "" {
		log.Debug().Str("file", used).Msg("using config file")
	}
	return nil
}

func setupLogging(w io.Writer, verbose, asJSON bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if asJSON {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339})
	}
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// newApp validates the loaded configuration and builds the application.
func (c *cli) newApp() (*app.App, error) {
	return app.New(c.cfg)
}
