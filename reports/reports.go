// Package reports builds report documents from dashboard data.
//
// Each builder turns one area of the dashboard (education, health,
// finance) into sections, optionally followed by a generated narrative in
// markdown. Comprehensive combines all three into one document.
package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/lvillar/pdfreport"
	"github.com/lvillar/pdfreport/markdown"
)

// Meta carries the header fields shared by every report.
type Meta struct {
	PreparedFor string
	GeneratedAt time.Time
	ReferenceID string
	IncludeLogo bool

	// Narrative is generated markdown appended after the data sections.
	Narrative string
}

func (m Meta) document(title string, sections []pdfreport.Section) *pdfreport.Document {
	doc := &pdfreport.Document{
		Title:              title,
		PreparedFor:        m.PreparedFor,
		GeneratedAt:        m.GeneratedAt,
		IncludeLogo:        m.IncludeLogo,
		IncludePageNumbers: true,
		ReferenceID:        m.ReferenceID,
		Sections:           sections,
	}
	if strings.TrimSpace(m.Narrative) != "" {
		conv := markdown.New(markdown.WithDefaultSection("Insights"))
		doc.Sections = append(doc.Sections, conv.Convert([]byte(m.Narrative))...)
	}
	if len(doc.Sections) == 0 {
		doc.Sections = []pdfreport.Section{{
			Title:  "Summary",
			Blocks: []pdfreport.Block{pdfreport.Paragraph{Text: "No data was recorded for this period."}},
		}}
	}
	return doc
}

// Course is one enrolled course.
type Course struct {
	Name  string
	Grade string
	Score float64 // percent
}

// EducationData is the education area of the dashboard.
type EducationData struct {
	Period       string
	Courses      []Course
	ClassDays    int
	PresentDays  int
	Achievements []string
}

// Education builds an education report.
func Education(m Meta, d EducationData) *pdfreport.Document {
	return m.document("Education Report", educationSections(d))
}

func educationSections(d EducationData) []pdfreport.Section {
	var out []pdfreport.Section

	if d.ClassDays > 0 {
		rate := 100 * float64(d.PresentDays) / float64(d.ClassDays)
		text := fmt.Sprintf("Present on %d of %d class days (%.1f%%).", d.PresentDays, d.ClassDays, rate)
		if d.Period != "" {
			text = d.Period + ": " + text
		}
		out = append(out, pdfreport.Section{
			Title:  "Attendance",
			Blocks: []pdfreport.Block{pdfreport.Paragraph{Text: text}},
		})
	}

	if len(d.Courses) > 0 {
		var blocks []pdfreport.Block
		var total float64
		for _, c := range d.Courses {
			blocks = append(blocks, pdfreport.BulletItem{Text: fmt.Sprintf("%s: %s (%.0f%%)", c.Name, c.Grade, c.Score)})
			total += c.Score
		}
		blocks = append(blocks, pdfreport.Paragraph{
			Text: fmt.Sprintf("Average score across %d courses: %.1f%%.", len(d.Courses), total/float64(len(d.Courses))),
		})
		out = append(out, pdfreport.Section{Title: "Grades", Blocks: blocks})
	}

	if len(d.Achievements) > 0 {
		out = append(out, pdfreport.Section{Title: "Achievements", Blocks: bullets(d.Achievements)})
	}
	return out
}

// Measurement is one tracked health value.
type Measurement struct {
	Name  string
	Value float64
	Unit  string
}

// HealthData is the health area of the dashboard.
type HealthData struct {
	SleepHours []float64 // one entry per night
	ActiveDays int
	Vitals     []Measurement
	Goals      []string
}

// Health builds a health report.
func Health(m Meta, d HealthData) *pdfreport.Document {
	return m.document("Health Report", healthSections(d))
}

func healthSections(d HealthData) []pdfreport.Section {
	var out []pdfreport.Section

	if len(d.SleepHours) > 0 {
		var sum, lo, hi float64
		lo, hi = d.SleepHours[0], d.SleepHours[0]
		for _, h := range d.SleepHours {
			sum += h
			lo, hi = min(lo, h), max(hi, h)
		}
		blocks := []pdfreport.Block{
			pdfreport.Paragraph{Text: fmt.Sprintf("Average sleep over %d nights: %.1f hours (shortest %.1f, longest %.1f).",
				len(d.SleepHours), sum/float64(len(d.SleepHours)), lo, hi)},
		}
		if png, err := BarChart(d.SleepHours); err == nil {
			blocks = append(blocks, pdfreport.Image{Data: png, Width: 120, Height: 50})
		}
		out = append(out, pdfreport.Section{Title: "Sleep", Blocks: blocks})
	}

	var activity []pdfreport.Block
	if d.ActiveDays > 0 {
		activity = append(activity, pdfreport.Paragraph{Text: fmt.Sprintf("Active on %d days.", d.ActiveDays)})
	}
	for _, v := range d.Vitals {
		activity = append(activity, pdfreport.BulletItem{Text: fmt.Sprintf("%s: %g %s", v.Name, v.Value, v.Unit)})
	}
	if len(activity) > 0 {
		out = append(out, pdfreport.Section{Title: "Activity and Vitals", Blocks: activity})
	}

	if len(d.Goals) > 0 {
		out = append(out, pdfreport.Section{Title: "Goals", Blocks: bullets(d.Goals)})
	}
	return out
}

// Category is spending in one budget category.
type Category struct {
	Name   string
	Amount float64
}

// SavingsGoal tracks progress toward a target amount.
type SavingsGoal struct {
	Name   string
	Target float64
	Saved  float64
}

// FinanceData is the finance area of the dashboard.
type FinanceData struct {
	Currency   string // symbol prefixed to amounts, "$" when empty
	Income     float64
	Categories []Category
	Goals      []SavingsGoal
}

// Finance builds a finance report.
func Finance(m Meta, d FinanceData) *pdfreport.Document {
	return m.document("Finance Report", financeSections(d))
}

func financeSections(d FinanceData) []pdfreport.Section {
	cur := d.Currency
	if cur == "" {
		cur = "$"
	}
	money := func(v float64) string { return fmt.Sprintf("%s%.2f", cur, v) }

	var out []pdfreport.Section
	var spent float64
	for _, c := range d.Categories {
		spent += c.Amount
	}

	if d.Income > 0 || len(d.Categories) > 0 {
		blocks := []pdfreport.Block{
			pdfreport.Paragraph{Text: fmt.Sprintf("Income %s, spending %s, net %s.", money(d.Income), money(spent), money(d.Income-spent))},
		}
		if len(d.Categories) > 0 {
			blocks = append(blocks, pdfreport.Heading{Text: "Spending by category", Level: 2})
			values := make([]float64, len(d.Categories))
			for i, c := range d.Categories {
				values[i] = c.Amount
				share := 0.0
				if spent > 0 {
					share = 100 * c.Amount / spent
				}
				blocks = append(blocks, pdfreport.BulletItem{Text: fmt.Sprintf("%s: %s (%.0f%%)", c.Name, money(c.Amount), share)})
			}
			if png, err := BarChart(values); err == nil {
				blocks = append(blocks, pdfreport.Image{Data: png, Width: 120, Height: 50})
			}
		}
		out = append(out, pdfreport.Section{Title: "Cash Flow", Blocks: blocks})
	}

	if len(d.Goals) > 0 {
		var blocks []pdfreport.Block
		for _, g := range d.Goals {
			pct := 0.0
			if g.Target > 0 {
				pct = 100 * g.Saved / g.Target
			}
			blocks = append(blocks, pdfreport.BulletItem{Text: fmt.Sprintf("%s: %s of %s (%.0f%%)", g.Name, money(g.Saved), money(g.Target), pct)})
		}
		out = append(out, pdfreport.Section{Title: "Savings Goals", Blocks: blocks})
	}
	return out
}

// Comprehensive builds a single report spanning every dashboard area.
// Each area's sections are separated by a divider.
func Comprehensive(m Meta, edu EducationData, health HealthData, fin FinanceData) *pdfreport.Document {
	var sections []pdfreport.Section
	for _, part := range [][]pdfreport.Section{educationSections(edu), healthSections(health), financeSections(fin)} {
		if len(part) == 0 {
			continue
		}
		if len(sections) > 0 {
			last := &sections[len(sections)-1]
			last.Blocks = append(last.Blocks, pdfreport.Divider{})
		}
		sections = append(sections, part...)
	}
	return m.document("Comprehensive Report", sections)
}

func bullets(items []string) []pdfreport.Block {
	out := make([]pdfreport.Block, 0, len(items))
	for _, it := range items {
		out = append(out, pdfreport.BulletItem{Text: it})
	}
	return out
}
