package llm

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/leases-tracker/constants"
)

// ImageDataURL encodes an image for an inline vision message.
// Images above constants.MaxVisionMB are refused.
func ImageDataURL(image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}
	if len(image) > constants.MaxVisionMB<<20 {
		return "", fmt.Errorf("image too large: %d bytes (max %d MB)", len(image), constants.MaxVisionMB)
	}
	mt := strings.TrimSpace(mimeType)
	if constants.MapMIMEToFormat(mt) != constants.IMAGE {
		mt = "image/jpeg"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(image), nil
}
