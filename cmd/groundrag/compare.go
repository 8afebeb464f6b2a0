package main

import (
	"fmt"

	ragerr "github.com/perbu/groundrag/pkg/errors"
	"github.com/perbu/groundrag/pkg/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCompareCmd(a *app) *cobra.Command {
	var questionsFile, output, htmlOutput string

	cmd := &cobra.Command{
		Use:   "compare [question...]",
		Short: "Answer a batch of questions with and without retrieval and write a Markdown table",
		RunE: func(cmd *cobra.Command, args []string) error {
			var questions []string
			if questionsFile != "" {
				fromFile, err := report.ReadQuestions(questionsFile)
				if err != nil {
					return err
				}
				questions = append(questions, fromFile...)
			}
			questions = append(questions, args...)
			if len(questions) == 0 {
				return ragerr.New(ragerr.CodeCLIInputInvalid, "no questions given, pass them as arguments or with --questions")
			}

			p, err := newPipeline(a.cfg, a.log)
			if err != nil {
				return err
			}

			progress := cmd.ErrOrStderr()
			rows := make([]report.Row, 0, len(questions))
			for i, q := range questions {
				id := fmt.Sprintf("Q%d", i+1)
				fmt.Fprintf(progress, "=== %s ===\n%s\n", id, q)

				noRAG, err := p.ungrounded(cmd.Context(), q)
				if err != nil {
					return err
				}
				withRAG, _, err := p.grounded(cmd.Context(), q)
				if err != nil {
					return err
				}
				rows = append(rows, report.Row{ID: id, Question: q, NoRAG: noRAG, RAG: withRAG})
				a.log.Debug("question compared", zap.String("id", id))
			}

			if err := report.WriteMarkdown(output, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Markdown table written to %s\n", output)

			if htmlOutput != "" {
				if err := report.WriteHTML(htmlOutput, rows); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "HTML report written to %s\n", htmlOutput)
			}
			return nil
		},
	}

	cmd.Flags().IntP("top-k", "k", 0, "number of chunks to retrieve (default from config, 4)")
	cmd.Flags().StringVarP(&questionsFile, "questions", "q", "", "file with one question per line (# starts a comment)")
	cmd.Flags().StringVarP(&output, "output", "o", report.DefaultOutput, "Markdown output path")
	cmd.Flags().StringVar(&htmlOutput, "html", "", "also render the report to this HTML file")
	return cmd
}
