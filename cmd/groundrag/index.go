package main

import (
	"fmt"

	"github.com/perbu/groundrag/pkg/loader"
	"github.com/perbu/groundrag/pkg/rag"
	"github.com/spf13/cobra"
)

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the vector index from the documents directory",
		Long: "Reads every .txt, .md and .pdf file at the top level of the documents\n" +
			"directory, splits it into overlapping word chunks, embeds each chunk and\n" +
			"replaces the persisted index. A failed build leaves the previous index intact.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			corpus, err := loader.BuildCorpus(cfg.DocsDir, loader.Options{
				ChunkSize: cfg.Chunk.Size,
				Overlap:   cfg.Chunk.Overlap,
				Log:       a.log,
			})
			if err != nil {
				return err
			}

			e, err := newEmbedder(cfg)
			if err != nil {
				return err
			}
			summary, err := rag.NewIndexer(e, rag.NewStore(cfg.Index.Dir), a.log).Build(cmd.Context(), corpus)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Corpus: %d chunks from %s\n", summary.Chunks, cfg.DocsDir)
			fmt.Fprintf(out, "Index: %d vectors (dim=%d, model=%s)\n", summary.Vectors, summary.Dimension, summary.ModelInfo)
			fmt.Fprintf(out, "Saved: %s, %s\n", summary.IndexPath, summary.CorpusPath)
			return nil
		},
	}

	cmd.Flags().Int("chunk-size", 0, "words per chunk (default from config, 300)")
	cmd.Flags().Int("overlap", 0, "words shared by consecutive chunks (default from config, 50)")
	return cmd
}
