package receipt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	vision "google.golang.org/api/vision/v1"
	"google.golang.org/api/option"
)

// ErrNoText is returned when OCR finds nothing readable in the image.
var ErrNoText = errors.New("no text recognized in image")

// TextDetector is the narrow contract to the vision OCR collaborator.
type TextDetector interface {
	DetectText(ctx context.Context, image []byte) (string, error)
}

// VisionDetector performs OCR through the Google Cloud Vision API.
type VisionDetector struct {
	svc *vision.Service
}

// NewVisionDetector builds the detector. credentialsJSON may be a raw
// service-account JSON document or its base64 encoding (how Kubernetes
// secrets usually arrive); empty falls back to ambient credentials.
func NewVisionDetector(ctx context.Context, credentialsJSON string) (*VisionDetector, error) {
	var opts []option.ClientOption
	if creds := decodeCredentials(credentialsJSON); len(creds) > 0 {
		opts = append(opts, option.WithCredentialsJSON(creds))
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("init vision service: %w", err)
	}
	return &VisionDetector{svc: svc}, nil
}

func decodeCredentials(credentialsJSON string) []byte {
	credentialsJSON = strings.TrimSpace(credentialsJSON)
	if credentialsJSON == "" {
		return nil
	}
	if strings.HasPrefix(credentialsJSON, "{") {
		return []byte(credentialsJSON)
	}
	if decoded, err := base64.StdEncoding.DecodeString(credentialsJSON); err == nil {
		return decoded
	}
	return []byte(credentialsJSON)
}

// DetectText runs TEXT_DETECTION on the image and returns the full
// recognized text block.
func (d *VisionDetector) DetectText(ctx context.Context, image []byte) (string, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*vision.Feature{{Type: "TEXT_DETECTION"}},
		}},
	}

	resp, err := d.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("vision annotate: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", ErrNoText
	}
	result := resp.Responses[0]
	if result.Error != nil {
		return "", fmt.Errorf("vision annotate: %s", result.Error.Message)
	}
	if len(result.TextAnnotations) == 0 {
		return "", ErrNoText
	}
	return result.TextAnnotations[0].Description, nil
}
