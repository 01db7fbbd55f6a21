package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dasmlab/flowlibre/pkg/catalog"
	"github.com/dasmlab/flowlibre/pkg/config"
	"github.com/dasmlab/flowlibre/pkg/translate"
)

func newLanguagesCmd(flags *globalFlags) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "languages",
		Short: "List the languages the provider supports",
		Long: `Fetch the provider's language list and print it in catalog order.

Use --check to only verify that the provider is reachable.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runLanguages(cmd.Context(), cfg, check, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Only check that the provider is reachable")

	return cmd
}

func runLanguages(ctx context.Context, cfg config.Config, check bool, out io.Writer) error {
	logger := cfg.NewLogger()

	translator, err := translate.NewTranslator(translate.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.HTTPTimeout,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("create translator: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if check {
		if err := translator.CheckHealth(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintf(out, "%s is reachable\n", cfg.BaseURL)
		return err
	}

	cat, err := catalog.Load(ctx, translator, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME")
	for _, e := range cat.Entries() {
		fmt.Fprintf(w, "%s\t%s\n", e.Code, e.Name)
	}
	return w.Flush()
}
