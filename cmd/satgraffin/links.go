package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/satgraffin/satgraffin/internal/core/domain"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Build and print the link index",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		entries := a.queryService(cmd.Context()).Links()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tTARGET")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\n", e.Key, e.Target)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d links\n", len(entries))
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <query>",
	Short: "Show which page a query would be routed to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		res := a.queryService(cmd.Context()).Resolve(args[0])
		if !res.Found() {
			fmt.Fprintln(cmd.OutOrStdout(), "No page matches this query.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n  key:  %s\n  tier: %s\n", res.URL, res.Key, res.Tier)
		return nil
	},
}

var askUserID string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.connectBackends(cmd.Context(), hostname()); err != nil {
			return err
		}

		resp := a.queryService(cmd.Context()).Query(cmd.Context(), domain.QueryRequest{
			Query:  args[0],
			UserID: askUserID,
		})
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, resp.Answer)
		if len(resp.SourceLinks) > 0 {
			fmt.Fprintln(out, "\nSources:")
			for _, link := range resp.SourceLinks {
				fmt.Fprintf(out, "  %s\n", link)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askUserID, "user", "", "user id recorded in logs")
	rootCmd.AddCommand(linksCmd, resolveCmd, askCmd)
}
