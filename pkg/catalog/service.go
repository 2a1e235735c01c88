package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdrianMsc/msc-component-status-ws/pkg/imaging"
	"github.com/AdrianMsc/msc-component-status-ws/pkg/observability"
)

// MaxImageSize is the largest accepted upload, in bytes.
const MaxImageSize = 5 << 20

// Repository is the persistence layer behind the Service.
type Repository interface {
	ListComponentNames(ctx context.Context) ([]ComponentName, error)
	CountComponents(ctx context.Context) (int64, error)
	ListComponentRows(ctx context.Context) ([]Row, error)
	GetComponent(ctx context.Context, id int64) (*Component, error)

	// CreateComponent inserts the component with its statuses and platform
	// links and returns the new id.
	CreateComponent(ctx context.Context, in *ComponentInput, imageURL *string) (int64, error)
	// UpdateComponent updates the component row, leaving the image column
	// alone when imageURL is nil, and upserts statuses and platform links.
	// Returns ErrNotFound when no component has the id.
	UpdateComponent(ctx context.Context, id int64, in *ComponentInput, imageURL *string) error
	UpdateResources(ctx context.Context, id int64, patch *ResourcePatch) (ResourceUpdate, error)
	// DeleteComponent removes the component and its dependent rows.
	// Returns ErrNotFound when nothing was deleted.
	DeleteComponent(ctx context.Context, id int64) error
}

// ImageStore persists transcoded component images and addresses them by
// their public URL.
type ImageStore interface {
	Upload(ctx context.Context, baseName string, img *imaging.Encoded) (string, error)
	Overwrite(ctx context.Context, url string, img *imaging.Encoded) error
	Delete(ctx context.Context, url string) error
}

// Transcoder converts uploaded bytes into the stored image format.
type Transcoder interface {
	Transcode(data []byte) (*imaging.Encoded, error)
}

// Service implements the component catalog operations.
type Service struct {
	repo       Repository
	images     ImageStore
	transcoder Transcoder
	logger     *observability.Logger
}

// NewService creates a catalog service. images may be nil, in which case
// operations carrying an image fail with ErrImageStorageDisabled.
func NewService(repo Repository, images ImageStore, transcoder Transcoder, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if transcoder == nil {
		transcoder = imaging.NewWebPTranscoder()
	}
	return &Service{
		repo:       repo,
		images:     images,
		transcoder: transcoder,
		logger:     logger.WithField("component", "catalog"),
	}
}

// ComponentNames lists component names ordered by name.
func (s *Service) ComponentNames(ctx context.Context) ([]ComponentName, error) {
	names, err := s.repo.ListComponentNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list component names: %w", err)
	}
	if names == nil {
		names = []ComponentName{}
	}
	return names, nil
}

// ComponentCount returns the number of components.
func (s *Service) ComponentCount(ctx context.Context) (int64, error) {
	count, err := s.repo.CountComponents(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count components: %w", err)
	}
	return count, nil
}

// FormattedComponents returns every component grouped by category.
func (s *Service) FormattedComponents(ctx context.Context) ([]CategoryGroup, error) {
	rows, err := s.repo.ListComponentRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	return Aggregate(rows), nil
}

// CreateComponent validates in, stores the optional image and inserts the
// component. It returns the new id and the image URL, if any.
func (s *Service) CreateComponent(ctx context.Context, in *ComponentInput, img *ImageUpload) (int64, *string, error) {
	if err := validateInput(in); err != nil {
		return 0, nil, err
	}

	var imageURL *string
	if img != nil {
		url, err := s.UploadImage(ctx, img, in.Name)
		if err != nil {
			return 0, nil, err
		}
		imageURL = &url
	}

	id, err := s.repo.CreateComponent(ctx, in, imageURL)
	if err != nil {
		if imageURL != nil {
			// the insert may have failed on a cancelled request
			if delErr := s.images.Delete(context.WithoutCancel(ctx), *imageURL); delErr != nil {
				s.logger.WithError(delErr).WithField("image", *imageURL).Warn("failed to remove orphaned image")
			}
		}
		return 0, nil, fmt.Errorf("failed to create component: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"component_id": id,
		"category":     in.Category,
	}).Info("component created")

	return id, imageURL, nil
}

// ModifyComponent replaces the component's fields. When img is set the
// existing image object is overwritten in place, or a new one is uploaded
// if the component had none.
func (s *Service) ModifyComponent(ctx context.Context, id int64, in *ComponentInput, img *ImageUpload) error {
	if id <= 0 {
		return fmt.Errorf("%w: id is required", ErrInvalidInput)
	}
	if err := validateInput(in); err != nil {
		return err
	}

	var imageURL *string
	if img != nil {
		existing, err := s.repo.GetComponent(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load component %d: %w", id, err)
		}

		if existing.Image != nil && *existing.Image != "" {
			if err := s.overwriteImage(ctx, *existing.Image, img); err != nil {
				return err
			}
			imageURL = existing.Image
		} else {
			url, err := s.UploadImage(ctx, img, in.Name)
			if err != nil {
				return err
			}
			imageURL = &url
		}
	}

	if err := s.repo.UpdateComponent(ctx, id, in, imageURL); err != nil {
		return fmt.Errorf("failed to update component %d: %w", id, err)
	}

	s.logger.WithField("component_id", id).Info("component updated")
	return nil
}

// UpdateResources applies a partial status and link update.
func (s *Service) UpdateResources(ctx context.Context, id int64, patch *ResourcePatch) (ResourceUpdate, error) {
	if patch == nil || (!patch.HasStatusFields() && !patch.HasLinkFields()) {
		return ResourceUpdate{}, ErrNoFieldsToUpdate
	}

	updated, err := s.repo.UpdateResources(ctx, id, patch)
	if err != nil {
		return ResourceUpdate{}, fmt.Errorf("failed to update resources of component %d: %w", id, err)
	}
	return updated, nil
}

// RemoveComponent deletes the component. Failing to delete its image is
// logged and otherwise ignored.
func (s *Service) RemoveComponent(ctx context.Context, id int64) error {
	existing, err := s.repo.GetComponent(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load component %d: %w", id, err)
	}

	if existing.Image != nil && *existing.Image != "" && s.images != nil {
		if err := s.images.Delete(ctx, *existing.Image); err != nil {
			s.logger.WithError(err).WithField("component_id", id).Warn("failed to delete component image")
		}
	}

	if err := s.repo.DeleteComponent(ctx, id); err != nil {
		return fmt.Errorf("failed to delete component %d: %w", id, err)
	}

	s.logger.WithField("component_id", id).Info("component deleted")
	return nil
}

// UploadImage validates, transcodes and stores img, returning its public
// URL. name seeds the object key.
func (s *Service) UploadImage(ctx context.Context, img *ImageUpload, name string) (string, error) {
	encoded, err := s.prepareImage(img)
	if err != nil {
		return "", err
	}

	url, err := s.images.Upload(ctx, name, encoded)
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return url, nil
}

func (s *Service) overwriteImage(ctx context.Context, url string, img *ImageUpload) error {
	encoded, err := s.prepareImage(img)
	if err != nil {
		return err
	}

	if err := s.images.Overwrite(ctx, url, encoded); err != nil {
		return fmt.Errorf("failed to overwrite image: %w", err)
	}
	return nil
}

func (s *Service) prepareImage(img *ImageUpload) (*imaging.Encoded, error) {
	if s.images == nil {
		return nil, ErrImageStorageDisabled
	}
	if err := validateImage(img); err != nil {
		return nil, err
	}

	encoded, err := s.transcoder.Transcode(img.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	return encoded, nil
}

func validateInput(in *ComponentInput) error {
	if in == nil || strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: name and category are required", ErrInvalidInput)
	}
	return nil
}

func validateImage(img *ImageUpload) error {
	if img == nil || len(img.Data) == 0 {
		return fmt.Errorf("%w: image is empty", ErrNotAnImage)
	}
	if !strings.HasPrefix(img.ContentType, "image/") {
		return ErrNotAnImage
	}
	if len(img.Data) > MaxImageSize {
		return ErrImageTooLarge
	}
	return nil
}
