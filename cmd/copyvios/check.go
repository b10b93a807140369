package main

import (
	"github.com/spf13/cobra"
)

func newCheckCmd(c *cli) *cobra.Command {
	var o outputFlags
	cmd := &cobra.Command{
		Use:   "check [title]",
		Short: "Search the web for sources of an article",
		Long: `Check strips the article's wiki markup, searches for its sentences and
compares every candidate page it finds. The article comes from the wiki when
a title is given, from --file, or from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp()
			if err != nil {
				return err
			}
			title := ""
			if len(args) == 1 {
				title = args[0]
			}
			text, subject, err := c.readArticle(cmd.Context(), a, &o, title)
			if err != nil {
				return err
			}
			res, err := a.Check(cmd.Context(), text)
			if err != nil {
				return err
			}
			return c.emit(&o, subject, "check", res)
		},
	}
	o.register(cmd.Flags())
	return cmd
}

func newCompareCmd(c *cli) *cobra.Command {
	var o outputFlags
	cmd := &cobra.Command{
		Use:   "compare <url> [title]",
		Short: "Compare an article against one web page",
		Long: `Compare scores the article against a single URL without searching.
The URL is always reported, even when the page could not be fetched.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.newApp()
			if err != nil {
				return err
			}
			title := ""
			if len(args) == 2 {
				title = args[1]
			}
			text, subject, err := c.readArticle(cmd.Context(), a, &o, title)
			if err != nil {
				return err
			}
			res, err := a.Compare(cmd.Context(), text, args[0])
			if err != nil {
				return err
			}
			return c.emit(&o, subject, "compare", res)
		},
	}
	o.register(cmd.Flags())
	return cmd
}
