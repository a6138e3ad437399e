package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/lvillar/pdfreport"
	"github.com/lvillar/pdfreport/doctpl"
	"github.com/lvillar/pdfreport/objecturl"
)

// Toolset carries what the report tools need to render and publish.
type Toolset struct {
	// BaseOptions configure every renderer; templates add to them.
	BaseOptions []pdfreport.Option

	// Store, when set, lets tools publish reports and return their URL.
	Store objecturl.Store
}

// RegisterDefaultTools adds all built-in report tools to the server.
func RegisterDefaultTools(s *Server, ts Toolset) {
	s.AddTool(renderReportTool(ts))
	s.AddTool(renderMarkdownTool(ts))
	s.AddTool(wrapTextTool())
}

var outputPathSchema = map[string]interface{}{
	"type":        "string",
	"description": "Optional file path to save the PDF. If omitted, the PDF is published (when a store is configured) or returned as base64.",
}

func renderReportTool(ts Toolset) Tool {
	return Tool{
		Name:        "render_report",
		Description: "Render a paginated PDF report from a JSON template. Sections hold paragraphs, headings, bullets, lists, images, dividers and markdown. See the report://template-schema resource.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"template": map[string]interface{}{
					"type":        "object",
					"description": "Report template with title, preparedFor, sections and blocks",
				},
				"outputPath": outputPathSchema,
			},
			"required": []string{"template"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			templateData, ok := args["template"]
			if !ok {
				return ToolResult{}, fmt.Errorf("missing 'template' argument")
			}
			jsonBytes, err := json.Marshal(templateData)
			if err != nil {
				return ToolResult{}, fmt.Errorf("encoding template: %w", err)
			}
			tpl, err := doctpl.Parse(jsonBytes)
			if err != nil {
				return ToolResult{}, err
			}
			return ts.render(ctx, tpl, args)
		},
	}
}

func renderMarkdownTool(ts Toolset) Tool {
	return Tool{
		Name:        "render_markdown",
		Description: "Render generated markdown as a paginated PDF report. Level 1 headings start sections; lists become bullets; --- becomes a divider.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"title":       map[string]interface{}{"type": "string", "description": "Report title shown in every page header"},
				"preparedFor": map[string]interface{}{"type": "string", "description": "Name shown as 'Prepared for'"},
				"markdown":    map[string]interface{}{"type": "string", "description": "Report body in markdown"},
				"outputPath":  outputPathSchema,
			},
			"required": []string{"markdown"},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (ToolResult, error) {
			md, _ := args["markdown"].(string)
			if strings.TrimSpace(md) == "" {
				return ToolResult{}, fmt.Errorf("missing 'markdown' argument")
			}
			title, _ := args["title"].(string)
			preparedFor, _ := args["preparedFor"].(string)
			tpl := &doctpl.Template{
				Title:              title,
				PreparedFor:        preparedFor,
				IncludePageNumbers: true,
				Markdown:           md,
			}
			return ts.render(ctx, tpl, args)
		},
	}
}

func (ts Toolset) render(ctx context.Context, tpl *doctpl.Template, args map[string]interface{}) (ToolResult, error) {
	out, err := doctpl.Generate(ctx, tpl, ts.BaseOptions...)
	if err != nil {
		return ToolResult{}, fmt.Errorf("rendering report: %w", err)
	}

	summary := fmt.Sprintf("Report rendered: %d pages, %d bytes", out.PageCount, out.Size())
	for _, w := range out.Warnings {
		summary += fmt.Sprintf("\nWarning: %v", w)
	}

	if outputPath, ok := args["outputPath"].(string); ok && outputPath != "" {
		if err := os.WriteFile(outputPath, out.Bytes(), 0644); err != nil {
			return ToolResult{}, fmt.Errorf("writing file: %w", err)
		}
		return textResult(fmt.Sprintf("%s\nSaved to %s", summary, outputPath)), nil
	}

	if ts.Store != nil {
		obj, err := objecturl.Publish(ctx, ts.Store, out)
		if err != nil {
			return ToolResult{}, fmt.Errorf("publishing report: %w", err)
		}
		return textResult(fmt.Sprintf("%s\nURL: %s", summary, obj.URL)), nil
	}

	return ToolResult{
		Content: []ContentBlock{
			{Type: "text", Text: summary},
			{Type: "resource", MIMEType: pdfreport.ContentType, Data: base64.StdEncoding.EncodeToString(out.Bytes())},
		},
	}, nil
}

func wrapTextTool() Tool {
	return Tool{
		Name:        "wrap_text",
		Description: "Wrap text into lines that fit a width, measured with the report body font. Useful to check how a paragraph will break before rendering.",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"text":       map[string]interface{}{"type": "string"},
				"width":      map[string]interface{}{"type": "number", "description": "Line width in millimeters"},
				"fontSize":   map[string]interface{}{"type": "number", "description": "Font size in points (default 11)"},
				"fontFamily": map[string]interface{}{"type": "string", "description": "Helvetica, Times or Courier (default Helvetica)"},
			},
			"required": []string{"text", "width"},
		},
		Handler: handleWrapText,
	}
}

func handleWrapText(_ context.Context, args map[string]interface{}) (ToolResult, error) {
	text, ok := args["text"].(string)
	if !ok {
		return ToolResult{}, fmt.Errorf("missing 'text' argument")
	}
	width, ok := args["width"].(float64)
	if !ok || width <= 0 {
		return ToolResult{}, fmt.Errorf("'width' must be a positive number")
	}

	style := pdfreport.DefaultStyle()
	font := pdfreport.Font{Family: style.FontFamily, Size: style.BodySize}
	if size, ok := args["fontSize"].(float64); ok && size > 0 {
		font.Size = size
	}
	if family, ok := args["fontFamily"].(string); ok && family != "" {
		font.Family = family
	}

	m := pdfreport.TextMeasurer{Metrics: pdfreport.NewCoreFontMetrics(pdfreport.UnitMillimeter)}
	lines := m.Wrap(text, width, font)

	jsonBytes, _ := json.MarshalIndent(map[string]interface{}{
		"lines": lines,
		"count": len(lines),
	}, "", "  ")
	return textResult(string(jsonBytes)), nil
}

func textResult(text string) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}
