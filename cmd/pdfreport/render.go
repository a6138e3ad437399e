package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lvillar/pdfreport"
	"github.com/lvillar/pdfreport/doctpl"
)

func newRenderCmd() *cobra.Command {
	var (
		out         string
		mdPath      string
		title       string
		preparedFor string
	)
	cmd := &cobra.Command{
		Use:   "render [template.json|-]",
		Short: "Render a JSON template or a markdown file to PDF",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (mdPath == "") == (len(args) == 0) {
				return fmt.Errorf("pass either a template file or --markdown")
			}
			cfg, logger, err := setup(os.Stderr)
			if err != nil {
				return err
			}

			var tpl *doctpl.Template
			if mdPath != "" {
				src, err := readInput(mdPath)
				if err != nil {
					return err
				}
				tpl = &doctpl.Template{
					Title:              title,
					PreparedFor:        preparedFor,
					GeneratedAt:        "now",
					IncludePageNumbers: true,
					Markdown:           string(src),
				}
			} else {
				src, err := readInput(args[0])
				if err != nil {
					return err
				}
				if tpl, err = doctpl.Parse(src); err != nil {
					return err
				}
			}

			base, err := cfg.RendererOptions(logger)
			if err != nil {
				return err
			}
			ctx := logger.WithContext(cmd.Context())
			doc, err := doctpl.Generate(ctx, tpl, base...)
			if err != nil {
				return err
			}
			return writeOutput(doc, out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	cmd.Flags().StringVar(&mdPath, "markdown", "", "Render this markdown file instead of a template")
	cmd.Flags().StringVar(&title, "title", "", "Report title for --markdown")
	cmd.Flags().StringVar(&preparedFor, "prepared-for", "", "Recipient name for --markdown")
	return cmd
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return data, nil
}

func writeOutput(doc *pdfreport.RenderedDocument, path string) error {
	for _, w := range doc.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	if path == "" {
		_, err := doc.WriteTo(os.Stdout)
		return err
	}
	if err := os.WriteFile(path, doc.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%s: %d pages\n", path, doc.PageCount)
	return nil
}
