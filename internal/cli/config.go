package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tessro/muffle/internal/config"
	"github.com/tessro/muffle/internal/wizard"
)

const configHeader = "# Muffle configuration\n\n"

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Commands for viewing and editing muffle configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration, including defaults and environment overrides.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(getConfigPath())
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	Long:  `Create a new configuration file with default values.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value. Keys are section.field as in the config file.

Examples:
  muffle config set spotify.client_id abc123
  muffle config set poll.interval_ms 2000
  muffle config set engine.enabled true`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	if JSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(cfg)
	}
	encoder := toml.NewEncoder(os.Stdout)
	encoder.Indent = "  "
	return encoder.Encode(cfg)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := getConfigPath()

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists at %s", configPath)
	}

	defaultCfg := config.Default()
	if !JSONOutput() && wizard.IsTerminal() {
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().
				Title("Spotify client ID").
				Description("From your app at developer.spotify.com. Leave empty to set it later.").
				Value(&defaultCfg.Spotify.ClientID),
			huh.NewConfirm().
				Title("Run a local playback engine?").
				Description("Starts "+defaultCfg.Engine.Binary+" so this computer shows up as a Spotify device.").
				Value(&defaultCfg.Engine.Enabled),
		)).Run()
		if err != nil {
			return fmt.Errorf("setup cancelled: %w", err)
		}
	}

	if err := writeConfig(configPath, defaultCfg); err != nil {
		return err
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{
			"status": "created",
			"path":   configPath,
		})
		return nil
	}

	fmt.Printf("Created config file: %s\n", configPath)
	fmt.Println("\nNext steps:")
	if defaultCfg.Spotify.ClientID == "" {
		fmt.Println("  1. Set your Spotify client ID with 'muffle config set spotify.client_id <id>'")
		fmt.Println("  2. Run 'muffle auth login' to authenticate with Spotify")
	} else {
		fmt.Println("  Run 'muffle auth login' to authenticate with Spotify")
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	configPath := getConfigPath()

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return fmt.Errorf("config file not found at %s. Run 'muffle config init' first", configPath)
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	updated, err := setConfigValue(data, key, value)
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, updated, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if JSONOutput() {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{
			"status": "updated",
			"key":    key,
			"value":  value,
		})
	} else {
		fmt.Printf("Set %s = %s\n", key, value)
	}
	return nil
}

// setConfigValue sets section.field in a TOML document. The value is
// parsed as the type the field has in the defaults, and the result must
// still decode into a valid Config.
func setConfigValue(data []byte, key, value string) ([]byte, error) {
	section, field, ok := strings.Cut(key, ".")
	if !ok || section == "" || field == "" {
		return nil, fmt.Errorf("invalid key format. Use 'section.key' (e.g., spotify.client_id)")
	}

	raw := map[string]interface{}{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	sectionMap, ok := raw[section].(map[string]interface{})
	if !ok {
		sectionMap = map[string]interface{}{}
		raw[section] = sectionMap
	}
	typed, err := typedValue(section, field, value)
	if err != nil {
		return nil, err
	}
	sectionMap[field] = typed

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	encoder := toml.NewEncoder(&buf)
	encoder.Indent = "  "
	if err := encoder.Encode(raw); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	check := config.Default()
	if _, err := toml.Decode(buf.String(), check); err != nil {
		return nil, fmt.Errorf("invalid value for %s: %w", key, err)
	}
	check.ApplyDefaults()
	if err := check.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return buf.Bytes(), nil
}

// typedValue parses s as the type of section.field in the default config.
func typedValue(section, field, s string) (interface{}, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config.Default()); err != nil {
		return nil, err
	}
	defaults := map[string]interface{}{}
	if _, err := toml.Decode(buf.String(), &defaults); err != nil {
		return nil, err
	}
	sectionMap, _ := defaults[section].(map[string]interface{})
	key := section + "." + field

	switch sectionMap[field].(type) {
	case string:
		return s, nil
	case bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return b, nil
	case int64:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be an integer", key)
		}
		return i, nil
	case float64:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", key)
		}
		return f, nil
	case nil:
		if key == "engine.args" {
			return strings.Fields(s), nil
		}
		return nil, fmt.Errorf("unknown config key %s", key)
	}
	return nil, fmt.Errorf("%s cannot be set from the command line", key)
}

func writeConfig(path string, c *config.Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	encoder := toml.NewEncoder(&buf)
	encoder.Indent = "  "
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mufflerc"
	}
	return filepath.Join(home, ".mufflerc")
}
