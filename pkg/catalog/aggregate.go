package catalog

// categoryKey distinguishes a NULL category from the empty string.
type categoryKey struct {
	null bool
	name string
}

func keyOf(category *string) categoryKey {
	if category == nil {
		return categoryKey{null: true}
	}
	return categoryKey{name: *category}
}

// Aggregate groups rows by category and then by component id in a single
// pass. Groups and components keep the order in which they first appear in
// rows. Scalar component fields come from the first row seen for that id;
// every row contributes one StatusEntry, including rows whose status columns
// are all NULL. Rows without a component id are skipped.
//
// Aggregate does not modify rows and never returns nil.
func Aggregate(rows []Row) []CategoryGroup {
	groups := make([]CategoryGroup, 0)
	groupIndex := make(map[categoryKey]int)
	// componentIndex[g] maps component id to its position in groups[g].Components
	var componentIndex []map[int64]int

	for i := range rows {
		row := &rows[i]
		if row.ComponentID == nil {
			continue
		}

		key := keyOf(row.ComponentCategory)
		g, ok := groupIndex[key]
		if !ok {
			g = len(groups)
			groupIndex[key] = g
			groups = append(groups, CategoryGroup{
				Category:   row.ComponentCategory,
				Components: make([]ComponentRecord, 0, 1),
			})
			componentIndex = append(componentIndex, make(map[int64]int))
		}

		id := *row.ComponentID
		c, ok := componentIndex[g][id]
		if !ok {
			c = len(groups[g].Components)
			componentIndex[g][id] = c
			groups[g].Components = append(groups[g].Components, newComponentRecord(id, groups[g].Category, row))
		}

		component := &groups[g].Components[c]
		component.Statuses = append(component.Statuses, StatusEntry{
			Guidelines: row.Guidelines,
			Figma:      row.Figma,
			Storybook:  row.Storybook,
			CDN:        row.CDN,
		})
	}

	return groups
}

func newComponentRecord(id int64, category *string, row *Row) ComponentRecord {
	return ComponentRecord{
		ID:            id,
		Name:          row.ComponentName,
		Description:   row.ComponentDescription,
		Category:      category,
		AtomicType:    row.ComponentAtomicType,
		Comment:       row.ComponentComment,
		Image:         row.ComponentImage,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		StorybookLink: row.StorybookLink,
		FigmaLink:     row.FigmaLink,
		Statuses:      make([]StatusEntry, 0, 1),
	}
}
