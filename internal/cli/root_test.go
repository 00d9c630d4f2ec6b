package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with fresh flag state
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cfgFile, logLevel = "", ""
	inputFile, outputFormat, conversationID, failOnError, metricsFile = "", "text", "", false, ""
	capabilitiesJSON = false
	for _, c := range []*cobra.Command{rootCmd, runCmd, capabilitiesCmd, configCmd} {
		for _, name := range []string{"help", "version"} {
			if f := c.Flags().Lookup(name); f != nil {
				require.NoError(t, f.Value.Set("false"))
			}
		}
	}

	cmd := GetRootCmd()
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return output.String(), err
}

// writeConfig writes a config file into a temp dir and returns its path
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "toolplan.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func quietConfig(t *testing.T) string {
	return writeConfig(t, `{"logging":{"level":"error","pretty":false}}`)
}

func TestRootCommand(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		output, err := execute(t, "", "--version")
		require.NoError(t, err)

		assert.Contains(t, output, "toolplan version")
		assert.Contains(t, output, GetVersion())
	})

	t.Run("help flag", func(t *testing.T) {
		output, err := execute(t, "", "--help")
		require.NoError(t, err)

		assert.Contains(t, output, "Toolplan")
		assert.Contains(t, output, "tool plan")
		assert.Contains(t, output, "run")
		assert.Contains(t, output, "capabilities")
	})

	t.Run("global flags", func(t *testing.T) {
		cmd := GetRootCmd()

		configFlag := cmd.PersistentFlags().Lookup("config")
		require.NotNil(t, configFlag)
		assert.Equal(t, "", configFlag.DefValue)

		logLevelFlag := cmd.PersistentFlags().Lookup("log-level")
		require.NotNil(t, logLevelFlag)
		assert.Equal(t, "", logLevelFlag.DefValue)
	})

	t.Run("subcommands", func(t *testing.T) {
		var names []string
		for _, c := range GetRootCmd().Commands() {
			names = append(names, c.Name())
		}
		assert.Contains(t, names, "run")
		assert.Contains(t, names, "capabilities")
		assert.Contains(t, names, "config")
	})
}

func TestGetVersion(t *testing.T) {
	version := GetVersion()
	assert.NotEmpty(t, version)
	assert.True(t, strings.HasPrefix(version, "0."))
}

func TestLoadConfig_LogLevelOverride(t *testing.T) {
	cfgFile = quietConfig(t)
	logLevel = "debug"
	t.Cleanup(func() { cfgFile, logLevel = "", "" })

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	logLevel = "shouting"
	_, err = loadConfig()
	assert.Error(t, err)
}
