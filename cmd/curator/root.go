package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docutag/curator/config"
)

const version = "1.0.0"

// cli holds state shared by all subcommands.
type cli struct {
	cfgFile string
	envFile string
	cfg     *config.Config
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "curator",
		Short:         "Curate, score and rank documents from URLs",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default: ./curator.yaml)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(
		newServeCmd(c),
		newIngestCmd(c),
		newListCmd(c),
		newMigrateCmd(c),
		newProfileCmd(c),
	)
	return root
}

// load reads the dotenv file and the configuration, then sets up logging.
func (c *cli) load(logOut io.Writer) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", c.envFile, err)
		}
	}

	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.setLogger(logOut)
	return nil
}

func (c *cli) setLogger(w io.Writer) {
	c.logger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: c.cfg.Level()}))
	slog.SetDefault(c.logger)
}
