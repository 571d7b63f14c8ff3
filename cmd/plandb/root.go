package main

import (
	"log/slog"

	"github.com/JyotinderSingh/plandb/config"
	"github.com/JyotinderSingh/plandb/dberr"
	"github.com/JyotinderSingh/plandb/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries the state shared by the subcommands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	root := &cobra.Command{
		Use:           "plandb",
		Short:         "plandb is a small relational engine with a cost-based planner",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "path of a YAML configuration file")
	flags.String("data-dir", "", "database directory")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	_ = c.v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = c.v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(
		newExecCmd(c),
		newShellCmd(c),
		newExplainCmd(c),
		newAnalyzeCmd(c),
	)
	return root
}

// load reads the configuration and installs the logger.
func (c *cli) load(cmd *cobra.Command) error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		c.v.SetConfigType("yaml")
		if err := c.v.ReadInConfig(); err != nil {
			return dberr.IO(err, "read config %s", c.cfgFile)
		}
	}
	cfg, err := config.FromViper(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg

	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()})
	slog.SetDefault(slog.New(handler))
	return nil
}

// withSession opens the database, runs fn on a fresh session and closes
// both.
func (c *cli) withSession(fn func(s *server.Session) error) (err error) {
	db, err := server.NewDB(c.cfg)
	if err != nil {
		return err
	}
	s := db.NewSession()
	defer func() {
		if closeErr := s.Close(); err == nil {
			err = closeErr
		}
		if closeErr := db.Close(); err == nil {
			err = closeErr
		}
	}()
	return fn(s)
}
