package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfsearch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Settings are read from config.toml in the data directory. Environment
variables named PDFSEARCH_<KEY>, with dots replaced by underscores, take
precedence over the file.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one effective setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Write a setting to the config file",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file path",
	Args:  cobra.NoArgs,
	RunE:  runConfigPath,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if services == nil || services.Config == nil {
		return errors.New("config not loaded")
	}

	values := services.Config.Values()
	if jsonOutput {
		return printJSON(cmd, values)
	}

	t := newTable("KEY", "VALUE", "ENVIRONMENT")
	for _, key := range config.Keys() {
		t.Row(key, values[key], config.EnvName(key))
	}
	cmd.Println(t.String())
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if services == nil || services.Config == nil {
		return errors.New("config not loaded")
	}

	value, ok := services.Config.Values()[args[0]]
	if !ok {
		return fmt.Errorf("unknown config key %q", args[0])
	}
	cmd.Println(value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if services == nil || services.ConfigStore == nil {
		return errors.New("config store not configured")
	}

	key, raw := args[0], args[1]
	value, err := config.Parse(key, raw)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if err := services.ConfigStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	cmd.Printf("Set %s = %s\n", key, raw)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	if services == nil || services.ConfigStore == nil {
		return errors.New("config store not configured")
	}
	cmd.Println(services.ConfigStore.Path())
	return nil
}
