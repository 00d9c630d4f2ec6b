package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harun/toolplan/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration toolplan runs with: defaults, overridden by the
config file, overridden by TOOLPLAN_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s\n", config.NewLoader(cfgFile).GetConfigPath(), cfg.String())
	return nil
}
