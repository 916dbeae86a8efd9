package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var crawlMaxPages int

var indexCmd = &cobra.Command{
	Use:   "index <url>",
	Short: "Fetch one page and merge it into the vector index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.indexing.IndexPage(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !result.Success {
			return fmt.Errorf("indexing %s failed at %s: %s", result.URL, result.Stage, result.Error)
		}
		fmt.Fprintf(out, "Indexed %s (%d chunks) in %s\n", result.URL, result.Chunks, result.Duration.Round(time.Millisecond))
		return nil
	},
}

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the site from the homepage and rebuild the index",
	Long: `Walk same-site links breadth-first from the homepage, storing every page
with enough text, then re-embed everything stored into a fresh index.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		maxPages := cfg.Site.MaxPages
		if crawlMaxPages > 0 {
			maxPages = crawlMaxPages
		}
		saved, err := a.indexing.Crawl(cmd.Context(), maxPages)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Crawled %s: %d pages stored\n", cfg.Site.HomepageURL, saved)
		return nil
	},
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed every stored page into a fresh index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		result, err := a.indexing.Rebuild(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rebuilt index: %d pages, %d chunks in %s\n",
			result.Pages, result.Chunks, result.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	crawlCmd.Flags().IntVar(&crawlMaxPages, "max-pages", 0, "maximum pages to fetch (default from config)")
	rootCmd.AddCommand(indexCmd, crawlCmd, rebuildCmd)
}
