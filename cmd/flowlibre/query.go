package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dasmlab/flowlibre/pkg/config"
	"github.com/dasmlab/flowlibre/pkg/plugin"
	"github.com/dasmlab/flowlibre/pkg/query"
	"github.com/dasmlab/flowlibre/pkg/translate"
)

// queryTimeout bounds a one-shot query including catalog loading.
const queryTimeout = 30 * time.Second

func newQueryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query <text...>",
		Short: "Answer one query from the terminal",
		Long: `Load the language catalog, answer a single query and print the results.

The query is interpreted exactly as the launcher would, without the typing
delay. Examples:
  flowlibre query en
  flowlibre query en es hello world`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			return runQuery(cmd.Context(), cfg, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

func runQuery(ctx context.Context, cfg config.Config, raw string, out io.Writer) error {
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

	p := plugin.New(translator, nil, plugin.Config{Config: query.Config{
		ActionKeyword: cfg.ActionKeyword,
		IconPath:      cfg.IconPath,
		Logger:        logger,
	}})

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if err := p.Initialize(ctx, plugin.Metadata{}); err != nil {
		return err
	}

	results, err := p.Query(ctx, raw)
	if err != nil {
		return err
	}
	return printResults(out, results)
}

func printResults(out io.Writer, results []query.Result) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(out, "(no results)")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tTITLE\tSUBTITLE\tON ACCEPT")
	for _, r := range results {
		accept := "-"
		if r.Action != nil {
			accept = fmt.Sprintf("%q", r.Action.Query)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", r.Score, r.Title, r.SubTitle, accept)
	}
	return w.Flush()
}
