package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newChatCmd(a *app) *cobra.Command {
	var compare bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Ask questions interactively; an empty line, quit or exit ends the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := newPipeline(a.cfg, a.log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Index loaded with %d chunks.\n", len(p.retriever.Corpus()))
			fmt.Fprintln(out, "Ask a question about the documents (or 'quit' to exit).")

			in := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !in.Scan() {
					fmt.Fprintln(out)
					return in.Err()
				}
				question := strings.TrimSpace(in.Text())
				if isExit(question) {
					return nil
				}

				ctx := cmd.Context()
				if ctx.Err() != nil {
					return ctx.Err()
				}

				// A failed no-RAG answer is reported but still leaves the
				// grounded answer to run.
				if compare {
					answer, err := p.ungrounded(ctx, question)
					if err != nil {
						a.log.Error("no-RAG answer failed", zap.Error(err))
						fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					} else {
						printBlock(out, "NO-RAG ANSWER", answer)
					}
				}

				answer, _, err := p.grounded(ctx, question)
				if err != nil {
					a.log.Error("RAG answer failed", zap.Error(err))
					fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
					continue
				}
				printBlock(out, "RAG ANSWER", answer)
			}
		},
	}

	cmd.Flags().IntP("top-k", "k", 0, "number of chunks to retrieve (default from config, 4)")
	cmd.Flags().BoolVar(&compare, "compare", false, "also show the answer given without retrieval")
	return cmd
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "", "quit", "exit":
		return true
	}
	return false
}

func printBlock(out io.Writer, title, body string) {
	fmt.Fprintf(out, "\n=== %s ===\n\n%s\n\n%s\n\n", title, body, strings.Repeat("=", len(title)+8))
}
