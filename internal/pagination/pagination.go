// Package pagination owns the page/page-size state of the merchant list.
package pagination

import (
	"errors"
	"fmt"
	"slices"
)

// RemoveAll is the page size that hides every record.
const RemoveAll = 0

var sizes = []int{RemoveAll, 10, 50, 100}

var ErrUnsupportedPageSize = errors.New("unsupported page size")

// Sizes returns the selectable page sizes in display order.
func Sizes() []int { return slices.Clone(sizes) }

func Supported(n int) bool { return slices.Contains(sizes, n) }

// Controller is not safe for concurrent use; callers serialize access.
type Controller struct {
	total    int
	pageSize int
	page     int
}

func New(total, pageSize int) (*Controller, error) {
	if total < 0 {
		total = 0
	}
	if !Supported(pageSize) {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedPageSize, pageSize)
	}
	return &Controller{total: total, pageSize: pageSize, page: 1}, nil
}

func (c *Controller) Total() int    { return c.total }
func (c *Controller) PageSize() int { return c.pageSize }
func (c *Controller) Page() int     { return c.page }

// TotalPages is ceil(total/pageSize), and 0 when the page size is 0.
func (c *Controller) TotalPages() int {
	if c.pageSize <= 0 {
		return 0
	}
	return (c.total + c.pageSize - 1) / c.pageSize
}

// SetPageSize always moves back to page 1, even when n equals the current size.
func (c *Controller) SetPageSize(n int) error {
	if !Supported(n) {
		return fmt.Errorf("%w: %d", ErrUnsupportedPageSize, n)
	}
	c.pageSize = n
	c.page = 1
	return nil
}

func (c *Controller) HasPrev() bool { return c.page > 1 }
func (c *Controller) HasNext() bool { return c.page < c.TotalPages() }

func (c *Controller) NextPage() {
	if c.HasNext() {
		c.page++
	}
}

func (c *Controller) PrevPage() {
	if c.HasPrev() {
		c.page--
	}
}

// GoTo clamps page into [1, max(1, TotalPages)].
func (c *Controller) GoTo(page int) {
	last := max(1, c.TotalPages())
	c.page = min(max(page, 1), last)
}

// Window returns the half-open index range of the current page, clipped to
// the collection. start == end means the page is empty.
func (c *Controller) Window() (start, end int) {
	if c.pageSize <= 0 {
		return 0, 0
	}
	start = (c.page - 1) * c.pageSize
	if start > c.total {
		start = c.total
	}
	end = min(start+c.pageSize, c.total)
	return start, end
}

// Visible returns the current page of items. The controller's total should
// match len(items); a shorter slice is clipped rather than overrun.
func Visible[T any](c *Controller, items []T) []T {
	start, end := c.Window()
	end = min(end, len(items))
	if start >= end {
		return nil
	}
	return items[start:end:end]
}
