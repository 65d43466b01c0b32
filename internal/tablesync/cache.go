package tablesync

import "github.com/marcus/sheetdash/internal/models"

// Cache is the combined state of one table: sheet rows and headers, custom
// columns and table metadata. It is not safe for concurrent use; the
// Controller guards it.
type Cache struct {
	data *models.TableData
	rev  uint64
}

// Loaded reports whether any snapshot has been applied.
func (c *Cache) Loaded() bool {
	return c.data != nil
}

// Revision increases by one on every mutation.
func (c *Cache) Revision() uint64 {
	return c.rev
}

// Replace swaps sheet data and custom columns wholesale. Table metadata is
// replaced only when the snapshot carries it; push events often omit it.
func (c *Cache) Replace(d *models.TableData) {
	if d == nil {
		return
	}
	next := d.Clone()
	if next.Table == nil && c.data != nil && c.data.Table != nil {
		t := *c.data.Table
		next.Table = &t
	}
	c.data = next
	c.rev++
}

// AppendColumn adds col to the cached column list and replaces the sheet data
// with sheet. A column whose ID is already cached is replaced in place, so a
// push that follows a refetch of the same change does not duplicate it. It
// returns false, changing nothing, when the cache is empty.
func (c *Cache) AppendColumn(col models.CustomColumn, sheet *models.SheetData) bool {
	if c.data == nil {
		return false
	}
	replaced := false
	for i := range c.data.CustomColumns {
		if c.data.CustomColumns[i].ID == col.ID {
			c.data.CustomColumns[i] = col
			replaced = true
			break
		}
	}
	if !replaced {
		c.data.CustomColumns = append(c.data.CustomColumns, col)
	}
	c.data.SheetData = sheet.Clone()
	c.rev++
	return true
}

// ReplaceColumnsAndSheet swaps the column list and sheet data, keeping table
// metadata. It returns false when the cache is empty.
func (c *Cache) ReplaceColumnsAndSheet(cols []models.CustomColumn, sheet *models.SheetData) bool {
	if c.data == nil {
		return false
	}
	c.data.CustomColumns = append([]models.CustomColumn(nil), cols...)
	c.data.SheetData = sheet.Clone()
	c.rev++
	return true
}

// Snapshot returns a deep copy of the cached data, or nil when empty.
func (c *Cache) Snapshot() *models.TableData {
	return c.data.Clone()
}

// Reset drops everything.
func (c *Cache) Reset() {
	c.data = nil
	c.rev++
}
