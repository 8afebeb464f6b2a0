package main

import (
	"fmt"
	"strings"

	"github.com/perbu/groundrag/pkg/generator"
	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	var noContext, showContext bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question from the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			out := cmd.OutOrStdout()

			if noContext {
				gen, err := newGenerator(a.cfg)
				if err != nil {
					return err
				}
				p := &pipeline{answerer: generator.NewAnswerer(gen, a.log)}
				answer, err := p.ungrounded(cmd.Context(), question)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, answer)
				return nil
			}

			p, err := newPipeline(a.cfg, a.log)
			if err != nil {
				return err
			}
			answer, contextText, err := p.grounded(cmd.Context(), question)
			if err != nil {
				return err
			}
			if showContext {
				fmt.Fprintf(out, "=== CONTEXT ===\n\n%s\n\n===============\n\n", contextText)
			}
			fmt.Fprintln(out, answer)
			return nil
		},
	}

	cmd.Flags().IntP("top-k", "k", 0, "number of chunks to retrieve (default from config, 4)")
	cmd.Flags().BoolVar(&noContext, "no-context", false, "ask the model directly, without retrieval")
	cmd.Flags().BoolVar(&showContext, "show-context", false, "print the retrieved context before the answer")
	return cmd
}
