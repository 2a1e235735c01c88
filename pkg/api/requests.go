package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/catalog"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/httputil"
)

// imageField is the multipart field carrying an uploaded image
const imageField = "image"

// decodeComponent reads a component from a JSON or multipart body. The
// category always comes from the path. img is nil when no file was sent.
func decodeComponent(r *http.Request) (*catalog.ComponentInput, *catalog.ImageUpload, error) {
	category := httputil.ParsePathString(r, "category")

	if !httputil.IsMultipart(r) {
		var in catalog.ComponentInput
		if r.ContentLength != 0 {
			if err := httputil.ParseJSON(r, &in); err != nil {
				return nil, nil, err
			}
		}
		in.Category = category
		return &in, nil, nil
	}

	fields, file, err := httputil.ParseMultipart(r, imageField, catalog.MaxImageSize)
	if err != nil {
		return nil, nil, err
	}

	in := &catalog.ComponentInput{
		Name:          strings.TrimSpace(fields["name"]),
		Category:      category,
		AtomicType:    httputil.OptionalString(fields, "atomicType"),
		Comment:       httputil.OptionalString(fields, "comment"),
		Description:   httputil.OptionalString(fields, "description"),
		Figma:         httputil.OptionalString(fields, "figma"),
		Guidelines:    httputil.OptionalString(fields, "guidelines"),
		CDN:           httputil.OptionalString(fields, "cdn"),
		Storybook:     httputil.OptionalString(fields, "storybook"),
		FigmaLink:     httputil.OptionalString(fields, "figmaLink"),
		StorybookLink: httputil.OptionalString(fields, "storybookLink"),
	}
	return in, toImageUpload(file), nil
}

// decodeImageUpload reads the standalone upload form: the image file plus
// an optional name used to build the object key
func decodeImageUpload(r *http.Request) (*catalog.ImageUpload, string, error) {
	if !httputil.IsMultipart(r) {
		return nil, "", fmt.Errorf("expected multipart/form-data")
	}

	fields, file, err := httputil.ParseMultipart(r, imageField, catalog.MaxImageSize)
	if err != nil {
		return nil, "", err
	}

	name := strings.TrimSpace(fields["name"])
	if name == "" && file != nil {
		name = strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	}
	return toImageUpload(file), name, nil
}

func toImageUpload(file *httputil.FilePart) *catalog.ImageUpload {
	if file == nil {
		return nil
	}
	return &catalog.ImageUpload{
		Data:        file.Data,
		ContentType: file.ContentType,
		Filename:    file.Filename,
	}
}
