package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"tsbridge/internal/config"
	"tsbridge/internal/paths"
)

var (
	configShowDiff  bool
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tsbridge configuration",
	Long:  "View and manage tsbridge configuration stored in .tsbridge/config.json (or .toml, .yaml)",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Display the effective tsbridge configuration.

Examples:
  tsbridge config show                 # Pretty-print current config
  tsbridge config show --format yaml   # YAML output
  tsbridge config show --diff          # Only show non-default values`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Long:  "Display all supported tsbridge environment variable overrides",
	Args:  cobra.NoArgs,
	Run:   runConfigEnv,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration to .tsbridge/config.json",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowDiff, "diff", false, "Only show non-default values")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing configuration")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// ConfigShowResponse is the response format for config show
type ConfigShowResponse struct {
	ConfigPath   string                 `json:"configPath,omitempty" yaml:"configPath,omitempty" toml:"configPath,omitempty"`
	UsedDefaults bool                   `json:"usedDefaults" yaml:"usedDefaults" toml:"usedDefaults"`
	Config       map[string]interface{} `json:"config" yaml:"config" toml:"config"`
}

// configFile returns the configuration file under root, or "".
func configFile(root string) string {
	for _, ext := range []string{"json", "toml", "yaml", "yml"} {
		p := filepath.Join(paths.ConfigDir(root), "config."+ext)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func toMap(cfg *config.Config) (map[string]interface{}, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	current, err := toMap(cfg)
	if err != nil {
		return err
	}
	defaults, err := toMap(config.DefaultConfig())
	if err != nil {
		return err
	}
	if configShowDiff {
		current = computeDiff(current, defaults)
	}

	path := configFile(cfg.Root)
	resp := &ConfigShowResponse{ConfigPath: path, UsedDefaults: path == "", Config: current}
	if formatFlag != string(FormatHuman) {
		return printResponse(resp)
	}

	fmt.Println("tsbridge Configuration")
	fmt.Println(strings.Repeat("─", 50))
	if resp.UsedDefaults {
		fmt.Println("Source: defaults (no config file found)")
	} else {
		fmt.Printf("Source: %s\n", resp.ConfigPath)
	}
	fmt.Println()

	flatDefaults := map[string]interface{}{}
	flatten(defaults, "", flatDefaults)
	flat := map[string]interface{}{}
	flatten(current, "", flat)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		fmt.Println("  (no modifications - using all defaults)")
	}
	for _, k := range keys {
		printConfigSection(k, flat[k], flatDefaults[k])
	}

	fmt.Println()
	fmt.Println("Use 'tsbridge config show --format json' for full configuration")
	fmt.Println("Use 'tsbridge config env' to see supported environment variables")
	return nil
}

func printConfigSection(name string, value, defaultValue interface{}) {
	modified := ""
	if defaultValue != nil && !isEqual(value, defaultValue) {
		modified = fmt.Sprintf(" (default: %v)", defaultValue)
	}
	fmt.Printf("%s: %v%s\n", name, value, modified)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}
	if existing := configFile(root); existing != "" && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", existing)
	}
	if err := config.DefaultConfig().Save(root); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", filepath.Join(paths.ConfigDir(root), "config.json"))
	return nil
}

func runConfigEnv(cmd *cobra.Command, args []string) {
	fmt.Println("Supported tsbridge Environment Variables")
	fmt.Println(strings.Repeat("─", 50))
	fmt.Println()

	categories := map[string][]envVarInfo{
		"Worker": {
			{envName("worker.mode"), "Worker mode (inprocess, process)", "string"},
			{envName("worker.command"), "Worker executable in process mode", "string"},
			{envName("worker.idleTimeoutMs"), "Stop an unused worker after this many ms", "int"},
			{envName("worker.requestTimeoutMs"), "Per-request timeout in ms", "int"},
		},
		"Diagnostics": {
			{envName("diagnostics.debounceMs"), "Quiet period before revalidation", "int"},
		},
		"Format": {
			{envName("format.tabSize"), "Indentation width", "int"},
			{envName("format.insertSpaces"), "Indent with spaces", "bool"},
		},
		"Logging": {
			{envName("logging.level"), "Log level (debug, info, warn, error)", "string"},
			{envName("logging.format"), "Log format (human, json)", "string"},
		},
	}

	order := []string{"Worker", "Diagnostics", "Format", "Logging"}
	for _, cat := range order {
		fmt.Printf("%s:\n", cat)
		for _, v := range categories[cat] {
			fmt.Printf("  %-38s %s (%s)\n", v.name, v.desc, v.varType)
		}
		fmt.Println()
	}

	fmt.Println("Example usage:")
	fmt.Printf("  %s=debug tsbridge check src/app.ts\n", envName("logging.level"))
	fmt.Printf("  %s=process tsbridge watch src\n", envName("worker.mode"))
}

type envVarInfo struct {
	name    string
	desc    string
	varType string
}

// envName is the environment variable overriding a configuration key.
func envName(key string) string {
	return config.EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func isEqual(a, b interface{}) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func flatten(m map[string]interface{}, prefix string, out map[string]interface{}) {
	for k, v := range m {
		if nested, ok := v.(map[string]interface{}); ok && len(nested) > 0 {
			flatten(nested, prefix+k+".", out)
			continue
		}
		out[prefix+k] = v
	}
}

func computeDiff(current, defaults map[string]interface{}) map[string]interface{} {
	diff := make(map[string]interface{})
	computeDiffRecursive(current, defaults, diff)
	return diff
}

func computeDiffRecursive(current, defaults map[string]interface{}, diff map[string]interface{}) {
	for key, currentVal := range current {
		defaultVal, exists := defaults[key]

		if !exists {
			diff[key] = currentVal
			continue
		}

		currentMap, currentIsMap := currentVal.(map[string]interface{})
		defaultMap, defaultIsMap := defaultVal.(map[string]interface{})

		if currentIsMap && defaultIsMap {
			nestedDiff := make(map[string]interface{})
			computeDiffRecursive(currentMap, defaultMap, nestedDiff)
			if len(nestedDiff) > 0 {
				diff[key] = nestedDiff
			}
		} else if !isEqual(currentVal, defaultVal) {
			diff[key] = currentVal
		}
	}
}
