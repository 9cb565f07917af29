package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// Config holds the Cloudinary account credentials and the folder listing
// images are uploaded under.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Service stores listing images in Cloudinary. It satisfies the upload
// service's FileStorage interface.
type Service struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New builds the storage client, failing fast on missing credentials so
// misconfiguration surfaces at startup rather than on the first upload.
func New(cfg Config, logger zerolog.Logger) (*Service, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	client, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Service{
		client: client,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload pushes the image and returns its public HTTPS URL, which is what
// gets persisted on the listing.
func (s *Service) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	result, err := s.client.Upload.Upload(ctx, reader, uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     publicIDFor(name),
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}

	s.logger.Info().Str("public_id", result.PublicID).Msg("listing image uploaded")

	return result.SecureURL, nil
}

// publicIDFor derives a collision-resistant public id from the original
// filename. Cloudinary rejects most punctuation, so anything outside
// [a-zA-Z0-9] is folded to a dash.
func publicIDFor(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	cleaned := strings.Trim(b.String(), "-")
	if cleaned == "" {
		cleaned = "upload"
	}

	return fmt.Sprintf("%s-%d", cleaned, time.Now().Unix())
}
