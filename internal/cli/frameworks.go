package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mpetrov/reglens/internal/kb"
)

// frameworksCmd represents the frameworks command
var frameworksCmd = &cobra.Command{
	Use:   "frameworks",
	Short: "List available regulatory frameworks",
	Long:  `List the regulatory frameworks found under the knowledge base directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}

		kbase := kb.New(cfg.KnowledgeBaseDir, nil)
		infos, err := kbase.List()
		if err != nil {
			return fmt.Errorf("list frameworks: %w", err)
		}
		if len(infos) == 0 {
			fmt.Printf("No frameworks found under %s\n", cfg.KnowledgeBaseDir)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tVERSION\tREGION")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.ID, info.Name, info.Version, info.Region)
		}
		return w.Flush()
	},
}

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List configured model tiers",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIER\tMODEL\tCONTEXT\tBATCH\tDESCRIPTION")
		for _, name := range cfg.TierNames() {
			tc := cfg.Tiers[name]
			marker := ""
			if name == cfg.LLM.Tier {
				marker = " (default)"
			}
			fmt.Fprintf(w, "%s%s\t%s\t%d\t%d\t%s\n", name, marker, tc.ModelName, tc.ContextWindow, tc.BatchSize, tc.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(frameworksCmd)
	rootCmd.AddCommand(modelsCmd)
}
