// Command treesearch is the CLI front end over the treesearch public
// surface. It wires cobra subcommands to
// treesearch.CompilePattern/MatchSource/FilterSource.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/oxhq/treesearch/config"
	"github.com/oxhq/treesearch/query"
	"github.com/oxhq/treesearch/treesearch"
)

var (
	flagQuery   string
	flagOrdered bool
	flagDebug   bool
)

func main() {
	// The core library never touches the filesystem for configuration; only
	// this CLI binary optionally loads a .env file before flags/env vars
	// are read.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:     "treesearch",
		Short:   "Query dependency treebanks in CoNLL-U format",
		Version: "0.1.0",
	}
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")

	root.AddCommand(newCompileCmd(), newMatchCmd(), newFilterCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initLogging() {
	level := slog.LevelWarn
	if flagDebug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile a query and print its canonical form",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogging()
			text, err := queryText(args)
			if err != nil {
				return err
			}
			pat, err := treesearch.CompilePattern(text)
			if err != nil {
				return err
			}
			fmt.Println(query.Print(pat))
			return nil
		},
	}
	cmd.Flags().StringVarP(&flagQuery, "query", "q", "", "query text (reads a query file from args if omitted)")
	return cmd
}

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match [files...]",
		Short: "Print every (tree, bindings) solution over one or more CoNLL-U files",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogging()
			return runMatch(args)
		},
	}
	cmd.Flags().StringVarP(&flagQuery, "query", "q", "", "query text or path to a query file")
	cmd.Flags().BoolVar(&flagOrdered, "ordered", true, "preserve file-listing and document order")
	cmd.MarkFlagRequired("query")
	return cmd
}

func newFilterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter [files...]",
		Short: "Print the paths of every tree that matches at least once",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogging()
			return runFilter(args)
		},
	}
	cmd.Flags().StringVarP(&flagQuery, "query", "q", "", "query text or path to a query file")
	cmd.Flags().BoolVar(&flagOrdered, "ordered", true, "preserve file-listing and document order")
	cmd.MarkFlagRequired("query")
	return cmd
}

// queryText resolves the query surface text: -q/--query if given (itself
// either literal query text or a path to a file containing it), otherwise
// the first positional argument is treated as a query file path.
func queryText(args []string) (string, error) {
	if flagQuery != "" {
		if b, err := os.ReadFile(flagQuery); err == nil {
			return string(b), nil
		}
		return flagQuery, nil
	}
	if len(args) == 0 {
		return "", fmt.Errorf("no query given: use -q or pass a query file path")
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func resolveSource(paths []string) (treesearch.Source, error) {
	if len(paths) == 0 {
		return treesearch.Source{}, fmt.Errorf("no input files given")
	}
	if len(paths) == 1 {
		return treesearch.SourceGlob(paths[0]), nil
	}
	return treesearch.SourcePaths(paths), nil
}

func runMatch(args []string) error {
	text, err := queryText(nil)
	if err != nil {
		return err
	}
	pat, err := treesearch.CompilePattern(text)
	if err != nil {
		return err
	}
	src, err := resolveSource(args)
	if err != nil {
		return err
	}

	cfg := config.LoadConfig()
	ctx := context.Background()
	items, err := treesearch.MatchSource(ctx, src, pat, cfg, flagOrdered)
	if err != nil {
		return err
	}
	for item := range items {
		if item.Error != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", item.Path, item.Error)
			continue
		}
		fmt.Printf("%s: %s\n", item.Path, formatBindings(item.Bindings))
	}
	return nil
}

func runFilter(args []string) error {
	text, err := queryText(nil)
	if err != nil {
		return err
	}
	pat, err := treesearch.CompilePattern(text)
	if err != nil {
		return err
	}
	src, err := resolveSource(args)
	if err != nil {
		return err
	}

	cfg := config.LoadConfig()
	ctx := context.Background()
	items, err := treesearch.FilterSource(ctx, src, pat, cfg, flagOrdered)
	if err != nil {
		return err
	}
	for item := range items {
		if item.Error != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", item.Path, item.Error)
			continue
		}
		fmt.Println(item.Path)
	}
	return nil
}

func formatBindings(b treesearch.Bindings) string {
	names := make([]string, 0, len(b))
	for name := range b {
		names = append(names, name)
	}
	sort.Strings(names)
	out := "{"
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s=%d", name, b[name])
	}
	return out + "}"
}
