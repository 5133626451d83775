package core

import "sort"

// UncategorizedName is the display bucket for transactions that carry no
// category reference.
const UncategorizedName = "未分類"

// Category is a classification node. A nil ParentID marks a major (top-level)
// category; a non-nil ParentID marks a minor category whose parent must be a
// major. The tree is at most two levels deep.
//
// Categories hold only ids, never references to other categories; parent and
// child navigation goes through a CategoryIndex built per call.
type Category struct {
	ID                 string
	Name               string
	ParentID           *string
	DisplayOrder       int
	AllowsAnnualBudget bool
}

// IsMajor reports whether the category is a top-level category.
func (c Category) IsMajor() bool {
	return c.ParentID == nil
}

// CategoryIndex is a flat arena of categories keyed by id with a derived
// parent-to-children index. Build one per calculation call from the caller's
// category list; it is immutable afterwards.
type CategoryIndex struct {
	byID     map[string]Category
	children map[string][]string
}

// NewCategoryIndex builds the index. Child id lists are sorted by the child's
// DisplayOrder, then name, for deterministic iteration.
func NewCategoryIndex(categories []Category) *CategoryIndex {
	idx := &CategoryIndex{
		byID:     make(map[string]Category, len(categories)),
		children: make(map[string][]string),
	}
	for _, c := range categories {
		idx.byID[c.ID] = c
	}
	for _, c := range categories {
		if c.ParentID != nil {
			idx.children[*c.ParentID] = append(idx.children[*c.ParentID], c.ID)
		}
	}
	for parentID, ids := range idx.children {
		sort.Slice(ids, func(i, j int) bool {
			a, b := idx.byID[ids[i]], idx.byID[ids[j]]
			if a.DisplayOrder != b.DisplayOrder {
				return a.DisplayOrder < b.DisplayOrder
			}
			return a.Name < b.Name
		})
		idx.children[parentID] = ids
	}
	return idx
}

// Get returns the category for id.
func (idx *CategoryIndex) Get(id string) (Category, bool) {
	c, ok := idx.byID[id]
	return c, ok
}

// ChildIDs returns the ids of the declared children of a major category.
func (idx *CategoryIndex) ChildIDs(parentID string) []string {
	return idx.children[parentID]
}

// HasChildren reports whether the category has any declared children.
func (idx *CategoryIndex) HasChildren(id string) bool {
	return len(idx.children[id]) > 0
}

// FullName returns the display name for id: "parent > name" for a minor
// category, the category's own name for a major. Unknown ids resolve to the
// uncategorized bucket name.
func (idx *CategoryIndex) FullName(id string) string {
	c, ok := idx.byID[id]
	if !ok {
		return UncategorizedName
	}
	if c.ParentID != nil {
		if parent, ok := idx.byID[*c.ParentID]; ok {
			return parent.Name + " > " + c.Name
		}
	}
	return c.Name
}
