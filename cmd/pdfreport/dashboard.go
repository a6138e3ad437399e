package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lvillar/pdfreport"
	"github.com/lvillar/pdfreport/pageops"
	"github.com/lvillar/pdfreport/reports"
)

// dashboardInput is the JSON accepted by the dashboard command. Areas left
// out are skipped; with more than one area a comprehensive report is built.
type dashboardInput struct {
	PreparedFor string                 `json:"preparedFor"`
	ReferenceID string                 `json:"referenceId"`
	IncludeLogo bool                   `json:"includeLogo"`
	Narrative   string                 `json:"narrative"`
	Education   *reports.EducationData `json:"education"`
	Health      *reports.HealthData    `json:"health"`
	Finance     *reports.FinanceData   `json:"finance"`
}

func (in dashboardInput) meta() reports.Meta {
	return reports.Meta{
		PreparedFor: in.PreparedFor,
		GeneratedAt: time.Now(),
		ReferenceID: in.ReferenceID,
		IncludeLogo: in.IncludeLogo,
		Narrative:   in.Narrative,
	}
}

func (in dashboardInput) document() *pdfreport.Document {
	m := in.meta()
	switch {
	case in.Education != nil && in.Health == nil && in.Finance == nil:
		return reports.Education(m, *in.Education)
	case in.Health != nil && in.Education == nil && in.Finance == nil:
		return reports.Health(m, *in.Health)
	case in.Finance != nil && in.Education == nil && in.Health == nil:
		return reports.Finance(m, *in.Finance)
	}
	var (
		edu    reports.EducationData
		health reports.HealthData
		fin    reports.FinanceData
	)
	if in.Education != nil {
		edu = *in.Education
	}
	if in.Health != nil {
		health = *in.Health
	}
	if in.Finance != nil {
		fin = *in.Finance
	}
	return reports.Comprehensive(m, edu, health, fin)
}

// documents builds one report per area present, without the narrative.
func (in dashboardInput) documents() []*pdfreport.Document {
	m := in.meta()
	m.Narrative = ""
	var docs []*pdfreport.Document
	if in.Education != nil {
		docs = append(docs, reports.Education(m, *in.Education))
	}
	if in.Health != nil {
		docs = append(docs, reports.Health(m, *in.Health))
	}
	if in.Finance != nil {
		docs = append(docs, reports.Finance(m, *in.Finance))
	}
	return docs
}

// renderSplit renders each area as its own report and merges them, so
// every area is numbered on its own.
func renderSplit(cmd *cobra.Command, r *pdfreport.Renderer, in dashboardInput, out string) error {
	docs := in.documents()
	if len(docs) == 0 {
		return fmt.Errorf("no areas to render")
	}
	var rendered []*pdfreport.RenderedDocument
	for i, res := range pdfreport.RenderAll(cmd.Context(), r, docs, len(docs)) {
		if res.Err != nil {
			return fmt.Errorf("rendering %s: %w", docs[i].Title, res.Err)
		}
		for _, w := range res.Doc.Warnings {
			fmt.Fprintf(os.Stderr, "warning: %s: %v\n", docs[i].Title, w)
		}
		rendered = append(rendered, res.Doc)
	}

	var buf bytes.Buffer
	pages, err := pageops.Merge(&buf, rendered...)
	if err != nil {
		return err
	}
	if out == "" {
		_, err = buf.WriteTo(os.Stdout)
		return err
	}
	if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%s: %d pages in %d reports\n", out, pages, len(rendered))
	return nil
}

func newDashboardCmd() *cobra.Command {
	var (
		out   string
		split bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard data.json",
		Short: "Render education, health and finance data as a report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(os.Stderr)
			if err != nil {
				return err
			}
			src, err := readInput(args[0])
			if err != nil {
				return err
			}
			var in dashboardInput
			if err := json.Unmarshal(src, &in); err != nil {
				return fmt.Errorf("parsing dashboard data: %w", err)
			}

			opts, err := cfg.RendererOptions(logger)
			if err != nil {
				return err
			}
			r, err := pdfreport.New(opts...)
			if err != nil {
				return err
			}
			if split {
				return renderSplit(cmd, r, in, out)
			}
			doc, err := r.Render(logger.WithContext(cmd.Context()), in.document())
			if err != nil {
				return err
			}
			return writeOutput(doc, out)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (stdout when empty)")
	cmd.Flags().BoolVar(&split, "split", false, "Render each area as a separately numbered report in one file")
	return cmd
}
