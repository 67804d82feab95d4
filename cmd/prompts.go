package cmd

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/heirloom-app/heirloom/internal/config"
	"github.com/heirloom-app/heirloom/internal/prompts"
	"github.com/heirloom-app/heirloom/internal/wizard"
	"github.com/spf13/cobra"
)

func loadCatalog(path string) (*prompts.Catalog, error) {
	if path == "" {
		return prompts.DefaultCatalog()
	}
	return prompts.NewLoader(path).Load()
}

func newPromptService(cfg *config.Config) (*prompts.Service, error) {
	catalog, err := loadCatalog(cfg.Prompts.Catalog)
	if err != nil {
		return nil, err
	}
	provider, err := prompts.NewProvider(cfg.Prompts.Provider)
	if err != nil {
		return nil, err
	}
	return prompts.NewService(catalog, provider, cfg.Prompts.Model), nil
}

func newPromptsCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "Inspect and export the prompt catalog",
	}
	cmd.AddCommand(newPromptsListCmd(root))
	cmd.AddCommand(newPromptsSuggestCmd(root))
	cmd.AddCommand(newPromptsExportCmd(root))
	return cmd
}

func newPromptsListCmd(root *rootOptions) *cobra.Command {
	var relationship string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog prompts",
		Example: `  # Every prompt in the configured catalog
  heirloom prompts list

  # Prompts offered for a grandparent
  heirloom prompts list --relationship grandparent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg.Prompts.Catalog)
			if err != nil {
				return err
			}

			list := catalog.Prompts
			if relationship != "" {
				list = catalog.For(relationship)
			}
			return printPrompts(cmd, list)
		},
	}

	cmd.Flags().StringVarP(&relationship, "relationship", "r", "", "Only prompts offered for this relationship")
	return cmd
}

func newPromptsSuggestCmd(root *rootOptions) *cobra.Command {
	var (
		name         string
		relationship string
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Show the prompts the wizard would offer for a person",
		Example: `  # Catalog plus LLM suggestions from Ollama
  HEIRLOOM_PROMPT_PROVIDER=ollama heirloom prompts suggest --name "Grandma Rose" --relationship grandparent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			service, err := newPromptService(cfg)
			if err != nil {
				return err
			}

			list, err := service.PromptsFor(cmd.Context(), wizard.Recipient{
				ID:           "cli",
				Name:         name,
				Relationship: relationship,
			})
			if err != nil {
				return err
			}
			return printPrompts(cmd, list)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name of the recipient")
	cmd.Flags().StringVarP(&relationship, "relationship", "r", "", "Relationship of the recipient")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newPromptsExportCmd(root *rootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the prompt catalog to a parquet file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			catalog, err := loadCatalog(cfg.Prompts.Catalog)
			if err != nil {
				return err
			}
			if err := catalog.Export(out); err != nil {
				return err
			}
			slog.Info("Prompt catalog exported", "path", out, "prompts", len(catalog.Prompts))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "prompts.parquet", "Output parquet file")
	return cmd
}

func printPrompts(cmd *cobra.Command, list []wizard.Prompt) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tPROMPT")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Category, p.Text)
	}
	return tw.Flush()
}
