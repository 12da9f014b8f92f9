package constants

import (
	"mime"
	"strings"
)

// Format is the coarse document format the text normalizer understands.
type Format string

const (
	PDF     Format = "PDF"
	IMAGE   Format = "IMAGE"
	TXT     Format = "TXT"
	UNKNOWN Format = "UNKNOWN"
)

// AllowedExtensions holds the file extensions accepted for contracts and receipts.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"txt":  {},
}

const (
	// AITextMaxChars caps the document text sent to the model.
	AITextMaxChars = 12000
	// MaxVisionMB caps inline image payloads.
	MaxVisionMB = 8
	// DefaultPayDay applies when a contract states no pay day.
	DefaultPayDay = 5
	// DefaultCurrency is the currency of generated contracts.
	DefaultCurrency = "CLP"
)

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func MapExtToFormat(ext string) Format {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png", "tif", "tiff", "webp":
		return IMAGE
	case "txt":
		return TXT
	default:
		return UNKNOWN
	}
}

// MapMIMEToFormat accepts full content types, parameters included.
func MapMIMEToFormat(mimeType string) Format {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch {
	case mt == "application/pdf":
		return PDF
	case strings.HasPrefix(mt, "image/"):
		return IMAGE
	case mt == "text/plain":
		return TXT
	default:
		return UNKNOWN
	}
}

// MIMEFromExt guesses a content type for a file extension.
func MIMEFromExt(ext string) string {
	ext = NormalizeExt(ext)
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return mt
	}
	switch ext {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
