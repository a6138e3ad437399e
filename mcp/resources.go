package mcp

import (
	"encoding/json"
	"fmt"
)

const (
	schemaURI = "report://template-schema"
	sampleURI = "report://sample"
)

// RegisterDefaultResources adds the report template schema and a sample
// template to the server.
func RegisterDefaultResources(s *Server) {
	s.AddResource(Resource{
		URI:         schemaURI,
		Name:        "Report Template Schema",
		Description: "JSON schema of the template accepted by the render_report tool",
		MIMEType:    "application/schema+json",
		Handler:     jsonResource(templateSchema),
	})

	s.AddResource(Resource{
		URI:         sampleURI,
		Name:        "Sample Report Template",
		Description: "A complete template covering every block type",
		MIMEType:    "application/json",
		Handler:     jsonResource(sampleTemplate),
	})
}

func jsonResource(v interface{}) ResourceHandler {
	return func(uri string) ([]ResourceContent, error) {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", uri, err)
		}
		return []ResourceContent{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}}, nil
	}
}

var templateSchema = map[string]interface{}{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type":    "object",
	"properties": map[string]interface{}{
		"title":              map[string]interface{}{"type": "string"},
		"preparedFor":        map[string]interface{}{"type": "string"},
		"generatedAt":        map[string]interface{}{"type": "string", "description": "RFC 3339 timestamp or \"now\""},
		"includeLogo":        map[string]interface{}{"type": "boolean"},
		"includePageNumbers": map[string]interface{}{"type": "boolean"},
		"referenceId":        map[string]interface{}{"type": "string"},
		"pageSize":           map[string]interface{}{"enum": []string{"A3", "A4", "A5", "Letter", "Legal"}},
		"unit":               map[string]interface{}{"enum": []string{"mm", "cm", "in", "pt"}},
		"font":               map[string]interface{}{"enum": []string{"Helvetica", "Times", "Courier"}},
		"watermark":          map[string]interface{}{"type": "string"},
		"margin": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"top":    map[string]interface{}{"type": "number"},
				"right":  map[string]interface{}{"type": "number"},
				"bottom": map[string]interface{}{"type": "number"},
				"left":   map[string]interface{}{"type": "number"},
			},
		},
		"markdown": map[string]interface{}{"type": "string", "description": "Appended after sections; level 1 headings start sections"},
		"sections": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type":     "object",
				"required": []string{"title"},
				"properties": map[string]interface{}{
					"title": map[string]interface{}{"type": "string", "minLength": 1},
					"blocks": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":     "object",
							"required": []string{"type"},
							"properties": map[string]interface{}{
								"type":    map[string]interface{}{"enum": []string{"paragraph", "heading", "bullet", "list", "image", "divider", "markdown"}},
								"text":    map[string]interface{}{"type": "string"},
								"level":   map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 2},
								"items":   map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
								"ordered": map[string]interface{}{"type": "boolean"},
								"src":     map[string]interface{}{"type": "string", "description": "File path, data: URI or http(s) URL"},
								"width":   map[string]interface{}{"type": "number"},
								"height":  map[string]interface{}{"type": "number"},
							},
						},
					},
				},
			},
		},
	},
}

var sampleTemplate = map[string]interface{}{
	"title":              "Monthly Wellbeing Report",
	"preparedFor":        "Jane Doe",
	"generatedAt":        "now",
	"includeLogo":        true,
	"includePageNumbers": true,
	"pageSize":           "A4",
	"sections": []interface{}{
		map[string]interface{}{
			"title": "Health",
			"blocks": []interface{}{
				map[string]interface{}{"type": "paragraph", "text": "Sleep improved steadily through the month."},
				map[string]interface{}{"type": "heading", "text": "Highlights", "level": 2},
				map[string]interface{}{"type": "list", "items": []string{"Average sleep 7.4 hours", "18 active days"}},
				map[string]interface{}{"type": "divider"},
				map[string]interface{}{"type": "markdown", "text": "Keep the **bedtime** routine going."},
			},
		},
	},
}
