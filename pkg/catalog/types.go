package catalog

import "time"

// Row is one record of the component listing query. The query left-joins
// statuses and platform_links onto component, so a component with several
// status rows appears once per status row.
type Row struct {
	ComponentID          *int64     `json:"component_id"`
	ComponentName        *string    `json:"component_name"`
	ComponentCategory    *string    `json:"component_category"`
	ComponentAtomicType  *string    `json:"component_atomic_type"`
	ComponentComment     *string    `json:"component_comment"`
	ComponentDescription *string    `json:"component_description"`
	ComponentImage       *string    `json:"component_image"`
	CreatedAt            *time.Time `json:"created_at"`
	UpdatedAt            *time.Time `json:"updated_at"`
	FigmaLink            *string    `json:"figma_link"`
	StorybookLink        *string    `json:"storybook_link"`
	Guidelines           *string    `json:"guidelines"`
	Figma                *string    `json:"figma"`
	Storybook            *string    `json:"storybook"`
	CDN                  *string    `json:"cdn"`
}

// StatusEntry is the status projection of a single row. Entries are not
// deduplicated.
type StatusEntry struct {
	Guidelines *string `json:"guidelines"`
	Figma      *string `json:"figma"`
	Storybook  *string `json:"storybook"`
	CDN        *string `json:"cdn"`
}

// ComponentRecord is the aggregated view of one component.
type ComponentRecord struct {
	ID            int64         `json:"id"`
	Name          *string       `json:"name"`
	Description   *string       `json:"description"`
	Category      *string       `json:"category"`
	AtomicType    *string       `json:"atomicType"`
	Comment       *string       `json:"comment"`
	Image         *string       `json:"image"`
	CreatedAt     *time.Time    `json:"createdAt"`
	UpdatedAt     *time.Time    `json:"updatedAt"`
	StorybookLink *string       `json:"storybookLink"`
	FigmaLink     *string       `json:"figmaLink"`
	Statuses      []StatusEntry `json:"statuses"`
}

// CategoryGroup holds the components of one category in first-seen order.
type CategoryGroup struct {
	Category   *string           `json:"category"`
	Components []ComponentRecord `json:"components"`
}

// ComponentName is an entry of the names listing.
type ComponentName struct {
	Name string `json:"name"`
}

// Component is a stored component row without its statuses.
type Component struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Category    string     `json:"category"`
	AtomicType  *string    `json:"atomicType,omitempty"`
	Comment     *string    `json:"comment,omitempty"`
	Description *string    `json:"description,omitempty"`
	Image       *string    `json:"image,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// ComponentInput carries the writable fields of a component together with
// its status and platform link values.
type ComponentInput struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	AtomicType  *string `json:"atomicType,omitempty"`
	Comment     *string `json:"comment,omitempty"`
	Description *string `json:"description,omitempty"`

	Figma      *string `json:"figma,omitempty"`
	Guidelines *string `json:"guidelines,omitempty"`
	CDN        *string `json:"cdn,omitempty"`
	Storybook  *string `json:"storybook,omitempty"`

	FigmaLink     *string `json:"figmaLink,omitempty"`
	StorybookLink *string `json:"storybookLink,omitempty"`
}

// ResourcePatch is a partial update of status and link fields. Nil fields
// keep their stored value.
type ResourcePatch struct {
	Figma      *string `json:"figma,omitempty"`
	Guidelines *string `json:"guidelines,omitempty"`
	CDN        *string `json:"cdn,omitempty"`
	Storybook  *string `json:"storybook,omitempty"`

	FigmaLink     *string `json:"figmaLink,omitempty"`
	StorybookLink *string `json:"storybookLink,omitempty"`
}

// HasStatusFields reports whether any status column is set.
func (p ResourcePatch) HasStatusFields() bool {
	return p.Figma != nil || p.Guidelines != nil || p.CDN != nil || p.Storybook != nil
}

// HasLinkFields reports whether any platform link column is set.
func (p ResourcePatch) HasLinkFields() bool {
	return p.FigmaLink != nil || p.StorybookLink != nil
}

// ResourceUpdate reports which groups of columns an UpdateResources call
// touched.
type ResourceUpdate struct {
	Statuses bool `json:"statuses"`
	Links    bool `json:"links"`
}

// ImageUpload is an image received from a client, before transcoding.
type ImageUpload struct {
	Data        []byte
	ContentType string
	Filename    string
}
