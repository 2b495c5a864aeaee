package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"coursegen/internal/chunk"
	"coursegen/internal/course"
	"coursegen/internal/orchestrator"
)

func newProvidersCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "Show the provider chain and which providers answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := g.chain(cmd.Context())
			if err != nil {
				return err
			}
			printProviders(cmd.OutOrStdout(), o.Providers(cmd.Context()))
			return nil
		},
	}
}

func newGenerateCmd(g *globals) *cobra.Command {
	var file, prompt string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a course outline from a text file",
		Long:  "Reads text from --file (or stdin with -), splits it into chunks and asks the provider chain for a course outline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			chunks := chunk.Split(text, g.cfg.Chunking.Size, g.cfg.Chunking.Overlap)
			if len(chunks) == 0 {
				return errors.New("input text is empty")
			}
			o, err := g.chain(cmd.Context())
			if err != nil {
				return err
			}
			doc, provider, err := o.GenerateCourse(cmd.Context(), course.NewGenerationRequest(chunks, prompt))
			if err != nil {
				return err
			}
			g.log.Info("course generated", "provider", provider, "chunks", len(chunks), "modules", len(doc.Modules))
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "text file to read, - for stdin")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "extra instruction for the outline")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newLessonCmd(g *globals) *cobra.Command {
	var title, summary, file string
	cmd := &cobra.Command{
		Use:   "lesson",
		Short: "Write lesson content, optionally grounded on a text file",
		RunE: func(cmd *cobra.Command, args []string) error {
			var contextChunks []string
			if file != "" {
				text, err := readInput(cmd, file)
				if err != nil {
					return err
				}
				contextChunks = chunk.Split(text, g.cfg.Chunking.Size, g.cfg.Chunking.Overlap)
			}
			o, err := g.chain(cmd.Context())
			if err != nil {
				return err
			}
			content := o.GenerateLessonContent(cmd.Context(), title, summary, contextChunks)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), content)
			return err
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "lesson title")
	cmd.Flags().StringVarP(&summary, "summary", "s", "", "lesson summary")
	cmd.Flags().StringVarP(&file, "file", "f", "", "context text file, - for stdin")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newModifyCmd(g *globals) *cobra.Command {
	var contentType, file, prompt string
	cmd := &cobra.Command{
		Use:   "modify",
		Short: "Rewrite a course, module, lesson or slide JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := course.ParseContentType(contentType)
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			o, err := g.chain(cmd.Context())
			if err != nil {
				return err
			}
			frag, provider, err := o.ModifyContent(cmd.Context(), course.MutationRequest{
				ContentType: ct,
				Original:    json.RawMessage(raw),
				Instruction: prompt,
			})
			if err != nil {
				return err
			}
			g.log.Info("content modified", "provider", provider, "type", ct)
			return printJSON(cmd.OutOrStdout(), frag)
		},
	}
	cmd.Flags().StringVar(&contentType, "type", "", "content type: course, module, lesson or slide")
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON document to rewrite, - for stdin")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "rewrite instruction")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

func readInput(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printProviders(w io.Writer, statuses []orchestrator.Status) {
	for _, s := range statuses {
		state := "unavailable"
		if s.Available {
			state = "available"
		}
		marker := " "
		if s.Current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %-12s %s\n", marker, s.Name, state)
	}
}
