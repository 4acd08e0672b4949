package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mpetrov/reglens/internal/model"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage RegLens configuration",
	Long: `Manage RegLens configuration files and settings.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (REGLENS_*)
3. Config file (~/.reglens/config.yaml)
4. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := model.DefaultConfig()
		applyConfigFile(cfg)

		if configFile := viper.ConfigFileUsed(); configFile != "" {
			fmt.Fprintf(os.Stderr, "Configuration file: %s\n\n", configFile)
		} else {
			fmt.Fprintf(os.Stderr, "No configuration file found (using defaults)\n\n")
		}

		yamlData, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		fmt.Println(string(yamlData))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration file",
	Long:  `Create a default configuration file at ~/.reglens/config.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("error finding home directory: %w", err)
		}

		configDir := home + "/.reglens"
		configPath := configDir + "/config.yaml"

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s", configPath)
		}

		if err := os.MkdirAll(configDir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		yamlData, err := yaml.Marshal(model.DefaultConfig())
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}

		if err := os.WriteFile(configPath, yamlData, 0o644); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		fmt.Printf("Created %s\n", configPath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

// applyConfigFile overlays values from the viper-loaded config file
// (and REGLENS_* environment variables) onto the defaults.
func applyConfigFile(cfg *model.Config) {
	if v := viper.GetString("knowledge_base_dir"); v != "" {
		cfg.KnowledgeBaseDir = v
	}
	if viper.IsSet("chunking.size") {
		cfg.Chunking.Size = viper.GetInt("chunking.size")
	}
	if viper.IsSet("chunking.overlap") {
		cfg.Chunking.Overlap = viper.GetInt("chunking.overlap")
	}
	if v := viper.GetString("chunking.method"); v != "" {
		cfg.Chunking.Method = v
	}
	if viper.IsSet("risk.enabled") {
		cfg.Risk.Enabled = viper.GetBool("risk.enabled")
	}
	if viper.IsSet("risk.category_threshold") {
		cfg.Risk.CategoryThreshold = viper.GetInt("risk.category_threshold")
	}
	if viper.IsSet("retrieval.top_k") {
		cfg.Retrieval.TopK = viper.GetInt("retrieval.top_k")
	}
	if v := viper.GetString("llm.provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := viper.GetString("llm.tier"); v != "" {
		cfg.LLM.Tier = v
	}
	if v := viper.GetString("llm.base_url"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if viper.IsSet("llm.timeout") {
		cfg.LLM.Timeout = viper.GetDuration("llm.timeout")
	}
	if viper.IsSet("concurrency.chunk_workers") {
		cfg.Concurrency.ChunkWorkers = viper.GetInt("concurrency.chunk_workers")
	}
	if viper.IsSet("cache.enabled") {
		cfg.Cache.Enabled = viper.GetBool("cache.enabled")
	}
	if v := viper.GetString("cache.dir"); v != "" {
		cfg.Cache.Dir = v
	}
	if viper.IsSet("cache.ttl") {
		if ttl := viper.GetDuration("cache.ttl"); ttl > 0 {
			cfg.Cache.TTL = ttl
		}
	}

	// Tier overrides replace whole tier entries.
	if viper.IsSet("tiers") {
		var tiers map[string]model.TierConfig
		if err := viper.UnmarshalKey("tiers", &tiers); err == nil && len(tiers) > 0 {
			for name, tc := range tiers {
				if tc.BatchSize == 0 {
					tc.BatchSize = 1
				}
				if tc.ContextWindow == 0 {
					tc.ContextWindow = 4096
				}
				cfg.Tiers[name] = tc
			}
		}
	}

	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 90 * time.Second
	}
}
