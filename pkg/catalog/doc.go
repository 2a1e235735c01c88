// Package catalog implements the design-system component catalog.
//
// # Overview
//
// A component belongs to a category and carries descriptive metadata, an
// optional image, platform links (Figma, Storybook) and one or more status
// rows tracking guidelines, figma, storybook and cdn readiness.
//
// # Aggregation
//
// The listing query left-joins statuses and platform links onto components
// and returns one Row per status. Aggregate folds those rows into
// category groups:
//
//	rows, _ := repo.ListComponentRows(ctx)
//	groups := catalog.Aggregate(rows)
//	// [{category: "Buttons", components: [{id: 1, statuses: [...]}, ...]}, ...]
//
// Groups and components keep their first-seen order and every row adds one
// status entry.
//
// # Service
//
//	svc := catalog.NewService(repo, imageStore, imaging.NewWebPTranscoder(), logger)
//	id, url, err := svc.CreateComponent(ctx, input, upload)
//	if errors.Is(err, catalog.ErrInvalidInput) { ... }
//
// # Related Packages
//
//   - pkg/storage/postgres: Repository implementation and read cache
//   - pkg/storage/images: S3 ImageStore
//   - pkg/imaging: WebP Transcoder
package catalog
