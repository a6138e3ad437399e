package doctpl_test

import (
	"context"
	"fmt"

	"github.com/lvillar/pdfreport/doctpl"
)

func ExampleParse() {
	template := `{
		"title": "Monthly Finance Report",
		"preparedFor": "John Doe",
		"pageSize": "Letter",
		"unit": "mm",
		"margin": {"top": 20, "right": 15, "bottom": 20, "left": 15},
		"includePageNumbers": true,
		"sections": [{
			"title": "Spending",
			"blocks": [
				{"type": "paragraph", "text": "Spending was 8% below budget this month."},
				{"type": "list", "items": ["Groceries: $420", "Transport: $96", "Dining: $130"]},
				{"type": "hr"},
				{"type": "heading", "text": "Savings", "level": 2},
				{"type": "paragraph", "text": "You moved $300 into savings."}
			]
		}]
	}`

	tpl, err := doctpl.Parse([]byte(template))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	doc, err := tpl.Build()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Sections: %d, blocks: %d\n", len(doc.Sections), len(doc.Sections[0].Blocks))
	// Output: Sections: 1, blocks: 7
}

func ExampleGenerate() {
	tpl := &doctpl.Template{
		Title: "Quick Report",
		Sections: []doctpl.Section{{
			Title: "Highlights",
			Blocks: []doctpl.Element{
				{Type: "paragraph", Text: "This report covers the activities for the current month."},
				{Type: "list", Items: []string{
					"Attendance at 94%",
					"Average sleep 7h 10m",
					"Savings up 15%",
				}},
			},
		}},
	}

	out, err := doctpl.Generate(context.Background(), tpl)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Printf("Pages: %d\n", out.PageCount)
	// Output: Pages: 1
}
