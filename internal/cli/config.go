package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/alnah/silencecut/internal/config"
)

// ConfigCmd creates the config command with subcommands.
// The env parameter provides injectable dependencies for testing.
func ConfigCmd(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage persistent configuration settings.

Configuration is stored in ~/.config/silencecut/config.toml
($XDG_CONFIG_HOME/silencecut/config.toml when set).
Every key can be overridden with a SILENCECUT_<KEY> environment variable,
and flags override both.

Supported settings:
  ` + strings.Join(config.Keys, ", "),
		Example: `  silencecut config set preset fast
  silencecut config set output_dir ~/Videos/trimmed
  silencecut config get gap
  silencecut config list`,
	}

	cmd.AddCommand(configSetCmd(env))
	cmd.AddCommand(configGetCmd(env))
	cmd.AddCommand(configListCmd(env))

	return cmd
}

// configSetCmd creates the "config set" subcommand.
func configSetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set a configuration value.

The value is checked against the key's type and range before the file is
written. For output_dir the directory is created if it doesn't exist.`,
		Example: `  silencecut config set threshold 0.03
  silencecut config set jobs 4
  silencecut config set output_dir /tmp/trimmed`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(env, args[0], args[1])
		},
	}
}

// configGetCmd creates the "config get" subcommand.
func configGetCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Long: `Get a configuration value.

Prints the value from the config file, or from its environment variable
when the file does not set it. Prints nothing if neither is set.`,
		Example: `  silencecut config get preset`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(env, cmd.OutOrStdout(), args[0])
		},
	}
}

// configListCmd creates the "config list" subcommand.
func configListCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration values",
		Long: `List all configuration values.

Shows values from the config file and environment variable overrides.`,
		Example: `  silencecut config list`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigList(env, cmd.OutOrStdout())
		},
	}
}

// runConfigSet handles the "config set" command.
func runConfigSet(env *Env, key, value string) error {
	if !config.ValidKey(key) {
		return fmt.Errorf("%w %q (valid keys: %s)", config.ErrUnknownKey, key, strings.Join(config.Keys, ", "))
	}

	switch key {
	case config.KeyOutputDir, config.KeyWorkspace, config.KeyManifest:
		value = config.ExpandPath(value)
	}
	if key == config.KeyOutputDir {
		if err := config.EnsureOutputDir(value); err != nil {
			return fmt.Errorf("invalid output_dir: %w", err)
		}
	}

	if err := config.Save(key, value); err != nil {
		return err
	}

	fmt.Fprintf(env.Stderr, "Set %s = %s\n", key, value)
	return nil
}

// runConfigGet handles the "config get" command.
func runConfigGet(env *Env, w io.Writer, key string) error {
	if !config.ValidKey(key) {
		return fmt.Errorf("%w %q (valid keys: %s)", config.ErrUnknownKey, key, strings.Join(config.Keys, ", "))
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}
	if value == "" {
		value = env.Getenv(config.EnvName(key))
	}

	if value != "" {
		fmt.Fprintln(w, value)
	}
	return nil
}

// runConfigList handles the "config list" command.
func runConfigList(env *Env, w io.Writer) error {
	data, err := config.List()
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Key", "Value", "Source"})

	rows := 0
	for _, key := range config.Keys {
		if value, ok := data[key]; ok {
			tw.AppendRow(table.Row{key, value, "file"})
			rows++
		}
		if envVal := env.Getenv(config.EnvName(key)); envVal != "" {
			tw.AppendRow(table.Row{key, envVal, config.EnvName(key)})
			rows++
		}
	}

	if rows == 0 {
		fmt.Fprintln(w, "No configuration set.")
		fmt.Fprintln(w, "\nAvailable settings:")
		for _, key := range config.Keys {
			fmt.Fprintf(w, "  %s\n", key)
		}
		return nil
	}

	tw.Render()
	return nil
}
