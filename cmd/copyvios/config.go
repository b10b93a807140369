package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/copyvios/internal/app"
)

func newConfigCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfgUsed != "" {
				fmt.Fprintf(c.stderr, "Configuration file: %s\n", c.cfgUsed)
			} else {
				fmt.Fprintln(c.stderr, "No configuration file found (using defaults and environment)")
			}
			b, err := app.MarshalYAML(c.cfg, true)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = c.stdout.Write(b)
			if err != nil {
				return err
			}
			if err := app.ValidateConfig(c.cfg); err != nil {
				fmt.Fprintf(c.stderr, "warning: %v\n", err)
			}
			return nil
		},
	}
	var path string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := path
			if target == "" {
				target = c.cfgFile
			}
			if target == "" {
				target = app.DefaultConfigPath()
			}
			if target == "" {
				return fmt.Errorf("%w: no home directory; pass --path", errUsage)
			}
			if err := app.WriteConfigFile(target, app.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "Created default configuration: %s\n", target)
			return nil
		},
	}
	// the file may not exist yet, so skip loading it
	initCmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		setupLogging(c.stderr, false, false)
		return nil
	}
	initCmd.Flags().StringVar(&path, "path", "", "where to write the file (default: --config or $HOME/.copyvios/config.yaml)")
	cmd.AddCommand(show, initCmd)
	return cmd
}
