package pdfreport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingStarter struct {
	header float64
	pages  []int
}

func (s *recordingStarter) StartPage(index int) float64 {
	s.pages = append(s.pages, index)
	return s.header
}

var squarePage = Geometry{
	Unit:         UnitMillimeter,
	PageWidth:    100,
	PageHeight:   100,
	MarginTop:    10,
	MarginRight:  10,
	MarginBottom: 10,
	MarginLeft:   10,
}

func TestCursorBreakPage(t *testing.T) {
	starter := &recordingStarter{header: 5}
	c := NewCursor(squarePage, starter)

	c.BreakPage()
	assert.Equal(t, 0, c.PageIndex())
	assert.Equal(t, 15.0, c.Y())
	assert.True(t, c.FirstOnPage())

	c.Advance(20)
	assert.False(t, c.FirstOnPage())

	c.BreakPage()
	assert.Equal(t, 1, c.PageIndex())
	assert.Equal(t, 15.0, c.Y())
	assert.True(t, c.FirstOnPage())
	assert.Equal(t, []int{0, 1}, starter.pages)
}

func TestCursorReserve(t *testing.T) {
	c := NewCursor(squarePage, &recordingStarter{header: 5})
	c.BreakPage()

	assert.Equal(t, 75.0, c.Remaining())
	assert.True(t, c.Reserve(75))
	assert.False(t, c.Reserve(75.1))

	c.Advance(70)
	assert.True(t, c.Reserve(5))
	assert.False(t, c.Reserve(5.5))
}

func TestCursorAdvanceIgnoresNegative(t *testing.T) {
	c := NewCursor(squarePage, nil)
	c.BreakPage()
	assert.Equal(t, 10.0, c.Y())

	c.Advance(-3)
	assert.Equal(t, 10.0, c.Y())
	assert.False(t, c.FirstOnPage())
}
