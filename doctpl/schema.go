// Package doctpl provides a JSON report template DSL.
//
// A template describes a report declaratively: header fields, page setup
// and a list of sections whose blocks are paragraphs, headings, bullets,
// images, dividers or embedded markdown. It is easy for both humans and
// LLMs to generate.
//
// Example JSON:
//
//	{
//	  "title": "Weekly Report",
//	  "preparedFor": "Jane Doe",
//	  "includePageNumbers": true,
//	  "sections": [{
//	    "title": "Summary",
//	    "blocks": [
//	      {"type": "paragraph", "text": "A good week overall."},
//	      {"type": "list", "items": ["Slept 7h on average", "Ran 12 km"]}
//	    ]
//	  }]
//	}
package doctpl

// Template is the top-level description of a report.
type Template struct {
	Title              string `json:"title,omitempty"`
	PreparedFor        string `json:"preparedFor,omitempty"`
	GeneratedAt        string `json:"generatedAt,omitempty"` // RFC 3339 or "now"
	IncludeLogo        bool   `json:"includeLogo,omitempty"`
	IncludePageNumbers bool   `json:"includePageNumbers,omitempty"`
	ReferenceID        string `json:"referenceId,omitempty"`

	PageSize  string  `json:"pageSize,omitempty"` // A3, A4, A5, Letter, Legal (default: A4)
	Unit      string  `json:"unit,omitempty"`     // mm, cm, in, pt (default: mm)
	Margin    *Margin `json:"margin,omitempty"`
	Font      string  `json:"font,omitempty"` // Helvetica, Times, Courier
	Watermark string  `json:"watermark,omitempty"`

	Sections []Section `json:"sections,omitempty"`

	// Markdown is appended after Sections; each level 1 heading starts a
	// new section.
	Markdown string `json:"markdown,omitempty"`
}

// Margin defines page margins in the template unit.
type Margin struct {
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
}

// Section is a titled group of blocks.
type Section struct {
	Title  string    `json:"title"`
	Blocks []Element `json:"blocks,omitempty"`
}

// Element is a single block within a section.
// The Type field determines which other fields are relevant.
type Element struct {
	Type string `json:"type"` // paragraph, heading, bullet, list, image, divider, markdown

	// Text content (paragraph, heading, bullet, markdown)
	Text  string `json:"text,omitempty"`
	Level int    `json:"level,omitempty"` // heading level 1-2

	// List
	Items   []string `json:"items,omitempty"`
	Ordered bool     `json:"ordered,omitempty"`

	// Image
	Src    string  `json:"src,omitempty"` // path, data: URI or URL
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}
