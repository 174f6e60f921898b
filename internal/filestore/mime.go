package filestore

import (
	"net/http"
	"strings"

	"github.com/vbonduro/areawizard/internal/domain"
)

// allowedImageTypes is the set of image MIME types accepted for photo and
// image attachments. net/http.DetectContentType handles JPEG, PNG and GIF;
// WebP is detected separately because the WHATWG sniff table has no entry
// for it.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// isWebP reports whether data is a RIFF container with "WEBP" at offset 8.
func isWebP(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WEBP"
}

func isWAV(data []byte) bool {
	return len(data) >= 12 &&
		string(data[0:4]) == "RIFF" &&
		string(data[8:12]) == "WAVE"
}

// DetectMIME sniffs data and returns its MIME type without parameters.
func DetectMIME(data []byte) string {
	switch {
	case isWebP(data):
		return "image/webp"
	case isWAV(data):
		return "audio/wav"
	}
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return mime
}

// AllowedMIME returns the sniffed MIME type of data and whether it is
// acceptable for an attachment of the given kind. Files accept anything.
func AllowedMIME(kind domain.AttachmentKind, data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	mime := DetectMIME(data)
	switch kind {
	case domain.KindPhoto, domain.KindImage:
		if mime == "image/webp" || allowedImageTypes[mime] {
			return mime, true
		}
		return "", false
	case domain.KindAudio:
		if strings.HasPrefix(mime, "audio/") || mime == "application/ogg" || mime == "video/webm" {
			return mime, true
		}
		return "", false
	case domain.KindFile:
		return mime, true
	default:
		return "", false
	}
}

func mimeTypeToExt(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "audio/wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	case "application/ogg":
		return ".ogg"
	case "video/webm":
		return ".webm"
	case "application/pdf":
		return ".pdf"
	case "text/plain":
		return ".txt"
	default:
		return ".bin"
	}
}

func extToMimeType(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".ogg":
		return "application/ogg"
	case ".webm":
		return "video/webm"
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
