package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/perbu/groundrag/pkg/rag"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		full        bool
		contextSize int
		maxDistance float64
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show the chunks nearest to a query, without generating an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			r, err := openRetriever(a.cfg, a.log)
			if err != nil {
				return err
			}
			results, err := r.SearchTopK(cmd.Context(), query, a.cfg.Retrieval.TopK)
			if err != nil {
				return err
			}
			if maxDistance > 0 {
				results = withinDistance(results, float32(maxDistance))
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No results found")
				return nil
			}

			fmt.Fprintf(out, "Found %d results:\n\n", len(results))
			for i, result := range results {
				fmt.Fprintf(out, "Score: %.4f | %s\n", result.Score, result.Citation())

				if !full && contextSize <= 0 {
					continue
				}
				fmt.Fprintln(out)
				if contextSize > 0 {
					printNeighbours(out, rag.Neighbours(r.Corpus(), result.Chunk, contextSize), result.Chunk)
				} else {
					fmt.Fprintln(out, result.Text)
				}
				if i < len(results)-1 {
					fmt.Fprintln(out, "\n"+strings.Repeat("-", 80)+"\n")
				}
			}
			return nil
		},
	}

	cmd.Flags().IntP("top-k", "k", 0, "number of results to return (default from config, 4)")
	cmd.Flags().BoolVar(&full, "full", false, "show chunk text instead of just citations")
	cmd.Flags().IntVar(&contextSize, "context", 0, "number of surrounding chunks from the same document to show")
	cmd.Flags().Float64Var(&maxDistance, "max-distance", 0, "drop results farther than this distance (0 keeps all)")
	return cmd
}

// withinDistance keeps results no farther than limit. Results are already
// ordered nearest first.
func withinDistance(results []rag.SearchResult, limit float32) []rag.SearchResult {
	for i, r := range results {
		if r.Score > limit {
			return results[:i]
		}
	}
	return results
}

func printNeighbours(out io.Writer, chunks []rag.Chunk, matched rag.Chunk) {
	for j, c := range chunks {
		if c.Position == matched.Position {
			fmt.Fprintln(out, ">>> MATCHED CHUNK <<<")
		}
		fmt.Fprintln(out, c.Citation())
		fmt.Fprintln(out, c.Text)
		if j < len(chunks)-1 {
			fmt.Fprintln(out)
		}
	}
}
