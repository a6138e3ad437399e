package pdfreport

// epsilon absorbs float drift when a block exactly fills the page.
const epsilon = 1e-9

// pageStarter is called whenever the cursor opens a page. It draws the
// page scaffolding and returns the height consumed below the top margin.
type pageStarter interface {
	StartPage(index int) float64
}

// Cursor is the mutable layout position of one render: the current page
// and the vertical offset on it. Y only grows within a page and the page
// index only grows across the render.
type Cursor struct {
	geom    Geometry
	pages   pageStarter
	page    int
	y       float64
	started bool
	placed  int // blocks placed on the current page
}

// NewCursor returns a cursor that has not opened any page yet.
func NewCursor(geom Geometry, pages pageStarter) *Cursor {
	return &Cursor{geom: geom, pages: pages}
}

// PageIndex is the zero-based index of the current page.
func (c *Cursor) PageIndex() int { return c.page }

// Y is the current vertical offset from the top edge of the page.
func (c *Cursor) Y() float64 { return c.y }

// Remaining is the space left above the bottom margin.
func (c *Cursor) Remaining() float64 { return c.geom.Bottom() - c.y }

// FirstOnPage reports whether nothing has been placed on the current page.
func (c *Cursor) FirstOnPage() bool { return c.placed == 0 }

// Reserve reports whether a block of height h fits on the current page.
func (c *Cursor) Reserve(h float64) bool {
	return c.y+h <= c.geom.Bottom()+epsilon
}

// Advance moves past a placed block. Negative heights are ignored.
func (c *Cursor) Advance(h float64) {
	if h > 0 {
		c.y += h
	}
	c.placed++
}

// BreakPage opens the next page (the first page on the first call) and
// moves the cursor below its header.
func (c *Cursor) BreakPage() {
	if c.started {
		c.page++
	}
	c.started = true
	c.y = c.geom.MarginTop
	c.placed = 0
	if c.pages != nil {
		c.y += c.pages.StartPage(c.page)
	}
}
