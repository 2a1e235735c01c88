package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func idp(i int64) *int64    { return &i }

func row(id int64, name, category string, status ...string) Row {
	r := Row{
		ComponentID:       idp(id),
		ComponentName:     strp(name),
		ComponentCategory: strp(category),
	}
	if len(status) > 0 {
		r.Figma = strp(status[0])
	}
	return r
}

func TestAggregate_Scenario(t *testing.T) {
	primary := row(1, "Primary", "Buttons")
	primary.Guidelines = strp("g1")
	primaryUpdated := row(1, "Primary", "Buttons")
	primaryUpdated.Guidelines = strp("g2")
	primaryUpdated.Figma = strp("f2")

	rows := []Row{
		primary,
		primaryUpdated,
		row(2, "Secondary", "Buttons"),
		row(3, "Input", "Forms"),
	}

	groups := Aggregate(rows)

	require.Len(t, groups, 2)
	assert.Equal(t, "Buttons", *groups[0].Category)
	assert.Equal(t, "Forms", *groups[1].Category)

	buttons := groups[0].Components
	require.Len(t, buttons, 2)
	assert.Equal(t, int64(1), buttons[0].ID)
	assert.Equal(t, "Primary", *buttons[0].Name)
	assert.Equal(t, []StatusEntry{
		{Guidelines: strp("g1")},
		{Guidelines: strp("g2"), Figma: strp("f2")},
	}, buttons[0].Statuses)
	assert.Equal(t, int64(2), buttons[1].ID)
	assert.Equal(t, "Secondary", *buttons[1].Name)
	assert.Equal(t, []StatusEntry{{}}, buttons[1].Statuses)

	forms := groups[1].Components
	require.Len(t, forms, 1)
	assert.Equal(t, int64(3), forms[0].ID)
	assert.Equal(t, "Input", *forms[0].Name)
	assert.Equal(t, []StatusEntry{{}}, forms[0].Statuses)
}

func TestAggregate_FirstAppearanceOrder(t *testing.T) {
	rows := []Row{
		row(9, "Z", "Zeta"),
		row(2, "A", "Alpha"),
		row(5, "M", "Zeta"),
		row(1, "B", "Alpha"),
		row(9, "Z", "Zeta"),
	}

	groups := Aggregate(rows)

	require.Len(t, groups, 2)
	assert.Equal(t, "Zeta", *groups[0].Category)
	assert.Equal(t, "Alpha", *groups[1].Category)
	assert.Equal(t, []int64{9, 5}, ids(groups[0]))
	assert.Equal(t, []int64{2, 1}, ids(groups[1]))
}

func TestAggregate_FanOut(t *testing.T) {
	rows := make([]Row, 0, 7)
	for i := 0; i < 7; i++ {
		rows = append(rows, row(4, "Card", "Surfaces"))
	}

	groups := Aggregate(rows)

	require.Len(t, groups, 1)
	require.Len(t, groups[0].Components, 1)
	assert.Len(t, groups[0].Components[0].Statuses, 7)
}

func TestAggregate_ScalarsFromFirstRow(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	first := row(1, "Primary", "Buttons")
	first.ComponentDescription = strp("first")
	first.ComponentAtomicType = strp("atom")
	first.CreatedAt = &created
	first.FigmaLink = strp("https://figma.example/1")

	second := row(1, "Renamed", "Buttons")
	second.ComponentDescription = strp("second")

	groups := Aggregate([]Row{first, second})

	c := groups[0].Components[0]
	assert.Equal(t, "Primary", *c.Name)
	assert.Equal(t, "first", *c.Description)
	assert.Equal(t, "atom", *c.AtomicType)
	assert.Equal(t, created, *c.CreatedAt)
	assert.Equal(t, "https://figma.example/1", *c.FigmaLink)
	assert.Equal(t, "Buttons", *c.Category)
}

func TestAggregate_NullSingleton(t *testing.T) {
	r := Row{ComponentID: idp(7)}

	groups := Aggregate([]Row{r})

	require.Len(t, groups, 1)
	assert.Nil(t, groups[0].Category)
	require.Len(t, groups[0].Components, 1)

	c := groups[0].Components[0]
	assert.Equal(t, int64(7), c.ID)
	assert.Nil(t, c.Name)
	assert.Nil(t, c.Image)
	require.Len(t, c.Statuses, 1)
	assert.Equal(t, StatusEntry{}, c.Statuses[0])

	out, err := json.Marshal(groups)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"category":null,"components":[{
		"id":7,"name":null,"description":null,"category":null,"atomicType":null,
		"comment":null,"image":null,"createdAt":null,"updatedAt":null,
		"storybookLink":null,"figmaLink":null,
		"statuses":[{"guidelines":null,"figma":null,"storybook":null,"cdn":null}]
	}]}]`, string(out))
}

func TestAggregate_NullAndEmptyCategoryAreDistinct(t *testing.T) {
	nullCategory := Row{ComponentID: idp(1)}
	emptyCategory := row(2, "Empty", "")

	groups := Aggregate([]Row{nullCategory, emptyCategory})

	require.Len(t, groups, 2)
	assert.Nil(t, groups[0].Category)
	require.NotNil(t, groups[1].Category)
	assert.Equal(t, "", *groups[1].Category)
}

func TestAggregate_CategoryIsCaseSensitive(t *testing.T) {
	groups := Aggregate([]Row{row(1, "A", "Buttons"), row(2, "B", "buttons")})
	assert.Len(t, groups, 2)
}

func TestAggregate_SameNameDifferentCategories(t *testing.T) {
	rows := []Row{
		row(1, "Badge", "Indicators"),
		row(2, "Badge", "Labels"),
	}

	groups := Aggregate(rows)

	require.Len(t, groups, 2)
	assert.Equal(t, int64(1), groups[0].Components[0].ID)
	assert.Equal(t, int64(2), groups[1].Components[0].ID)
}

func TestAggregate_SkipsRowsWithoutID(t *testing.T) {
	rows := []Row{
		{ComponentName: strp("orphan"), ComponentCategory: strp("Ghosts")},
		row(1, "Primary", "Buttons"),
	}

	groups := Aggregate(rows)

	require.Len(t, groups, 1)
	assert.Equal(t, "Buttons", *groups[0].Category)
}

func TestAggregate_Empty(t *testing.T) {
	for _, rows := range [][]Row{nil, {}} {
		groups := Aggregate(rows)
		require.NotNil(t, groups)
		assert.Empty(t, groups)

		out, err := json.Marshal(groups)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(out))
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	rows := []Row{row(1, "Primary", "Buttons", "done"), row(1, "Primary", "Buttons", "wip")}
	before, err := json.Marshal(rows)
	require.NoError(t, err)

	_ = Aggregate(rows)

	after, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestAggregate_Idempotent(t *testing.T) {
	rows := []Row{
		row(3, "Input", "Forms", "done"),
		row(1, "Primary", "Buttons", "done"),
		row(3, "Input", "Forms", "wip"),
		{ComponentID: idp(8)},
		row(1, "Primary", "Buttons", "todo"),
	}

	first := Aggregate(rows)
	second := Aggregate(flatten(first))

	assert.Equal(t, first, second)
}

func ids(g CategoryGroup) []int64 {
	out := make([]int64, 0, len(g.Components))
	for _, c := range g.Components {
		out = append(out, c.ID)
	}
	return out
}

// flatten is the inverse of Aggregate: one row per status entry.
func flatten(groups []CategoryGroup) []Row {
	var rows []Row
	for _, g := range groups {
		for _, c := range g.Components {
			for _, s := range c.Statuses {
				id := c.ID
				rows = append(rows, Row{
					ComponentID:          &id,
					ComponentName:        c.Name,
					ComponentCategory:    g.Category,
					ComponentAtomicType:  c.AtomicType,
					ComponentComment:     c.Comment,
					ComponentDescription: c.Description,
					ComponentImage:       c.Image,
					CreatedAt:            c.CreatedAt,
					UpdatedAt:            c.UpdatedAt,
					FigmaLink:            c.FigmaLink,
					StorybookLink:        c.StorybookLink,
					Guidelines:           s.Guidelines,
					Figma:                s.Figma,
					Storybook:            s.Storybook,
					CDN:                  s.CDN,
				})
			}
		}
	}
	return rows
}
