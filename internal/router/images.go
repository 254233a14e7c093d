package router

import (
	"log/slog"

	"github.com/mitchellh/mapstructure"
)

// Image is the attachment schema the router checks before forwarding.
type Image struct {
	Type     string `mapstructure:"type" json:"type"`
	Data     string `mapstructure:"data" json:"data"`
	MimeType string `mapstructure:"mime_type" json:"mime_type"`
	Name     string `mapstructure:"name" json:"name"`
	Size     int    `mapstructure:"size" json:"size"`
}

// processImages filters an attachment batch down to forwardable entries.
// Only base64 images are forwarded; url/path entries are structurally valid
// but unimplemented, and malformed entries are dropped. Neither aborts the
// rest of the batch.
func processImages(logger *slog.Logger, images []map[string]any) []map[string]any {
	processed := make([]map[string]any, 0, len(images))
	for _, raw := range images {
		var img Image
		if err := mapstructure.Decode(raw, &img); err != nil {
			logger.Warn("dropping malformed image", "err", err)
			continue
		}
		if img.Data == "" || img.MimeType == "" {
			logger.Warn("dropping image with missing fields", "image_type", img.Type)
			continue
		}
		switch img.Type {
		case "base64":
			processed = append(processed, map[string]any{
				"data":      img.Data,
				"mime_type": img.MimeType,
				"name":      img.Name,
			})
		case "url":
			logger.Warn("url image type not yet implemented, skipping")
		case "path":
			logger.Warn("path image type not yet implemented, skipping")
		default:
			logger.Warn("dropping image with unknown type", "image_type", img.Type)
		}
	}
	return processed
}
