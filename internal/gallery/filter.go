package gallery

// Select returns the items of the catalog whose category is cat, in catalog order.
// All (or the empty category) returns the whole catalog. A category outside the
// catalog's closed set yields an empty slice.
func Select(c *Catalog, cat Category) []MediaItem {
	if c == nil {
		return []MediaItem{}
	}
	if cat == All || cat == "" {
		return c.Items()
	}
	out := []MediaItem{}
	if !c.HasCategory(cat) {
		return out
	}
	for _, item := range c.items {
		if item.Category == cat {
			out = append(out, item)
		}
	}
	return out
}

// Count is the number of items Select would return.
func Count(c *Catalog, cat Category) int {
	if c == nil {
		return 0
	}
	if cat == All || cat == "" {
		return len(c.items)
	}
	if !c.HasCategory(cat) {
		return 0
	}
	n := 0
	for _, item := range c.items {
		if item.Category == cat {
			n++
		}
	}
	return n
}
