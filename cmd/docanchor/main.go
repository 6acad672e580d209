// Command docanchor runs the evidence pipeline in-process: ingest
// documents into the local index, ask questions against it, inspect
// or clear it.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/docanchor/docanchor/internal/app"
	"github.com/docanchor/docanchor/internal/cite"
	"github.com/docanchor/docanchor/internal/config"
	"github.com/docanchor/docanchor/internal/model"
	"github.com/docanchor/docanchor/internal/pipeline"
)

var cfgPath string

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "docanchor",
		Short:         "Hallucination-controlled document question answering",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config/config.toml", "path to TOML config")

	root.AddCommand(ingestCmd(), askCmd(), statusCmd(), clearCmd())
	return root.Execute()
}

func buildPipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg)
}

func ingestCmd() *cobra.Command {
	var clearFirst bool
	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Chunk, embed, and index a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			report, err := pipe.Ingest(cmd.Context(), args[0], clearFirst)
			if err != nil {
				return err
			}
			fmt.Printf("indexed %s: doc_id=%s chunks=%d (index: %d chunks, %d documents)\n",
				args[0], report.DocID, report.ChunksAdded, report.ChunkCount, report.DocumentCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clearFirst, "clear", false, "clear the index before ingesting")
	return cmd
}

func askCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			result := pipe.Query(cmd.Context(), args[0])

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			fmt.Println(result.Answer)
			if result.Verdict != model.VerdictRefused {
				citationMap := make(map[string]model.Citation, len(result.Citations))
				for _, c := range result.Citations {
					citationMap[c.EvidenceID] = c
				}
				fmt.Println(cite.FormatFootnotes(citationMap))
				fmt.Printf("\nverdict=%s confidence=%.2f coverage=%.2f\n",
					result.Verdict, result.Confidence, result.CitationCoverage)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show index status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			st := pipe.Status()
			fmt.Printf("chunks=%d documents=%d\n", st.ChunkCount, st.DocumentCount)
			for _, id := range st.DocIDs {
				fmt.Println(" -", id)
			}
			return nil
		},
	}
}

func clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all indexed documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pipe, err := buildPipeline(cmd.Context())
			if err != nil {
				return err
			}
			if err := pipe.ClearIndex(); err != nil {
				return err
			}
			fmt.Println("index cleared")
			return nil
		},
	}
}
