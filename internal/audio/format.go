package audio

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultExtension is used when neither the filename nor the MIME type
// identify the container. Browsers recording through MediaRecorder
// produce webm.
const DefaultExtension = ".webm"

var supportedExtensions = map[string]bool{
	".wav":  true,
	".webm": true,
	".ogg":  true,
	".mp4":  true,
	".mp3":  true,
	".m4a":  true,
}

var mimeExtensions = map[string]string{
	"audio/wav":   ".wav",
	"audio/wave":  ".wav",
	"audio/x-wav": ".wav",
	"audio/webm":  ".webm",
	"audio/ogg":   ".ogg",
	"audio/mpeg":  ".mp3",
	"audio/mp3":   ".mp3",
	"audio/mp4":   ".mp4",
	"audio/m4a":   ".m4a",
	"audio/x-m4a": ".m4a",
}

// IsSupportedExtension reports whether the file name ends in one of the
// audio extensions the transcription providers accept.
func IsSupportedExtension(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Accept decides whether an upload looks like audio. Either a plausible
// MIME type or a known extension is enough; browsers frequently send
// application/octet-stream or nothing at all for recorded blobs.
func Accept(name, contentType string) bool {
	if IsSupportedExtension(name) {
		return true
	}
	mt := mediaType(contentType)
	return mt == "" || mt == "application/octet-stream" || strings.HasPrefix(mt, "audio/")
}

// ExtensionFor returns the extension to store an upload under: the file
// name's own extension if it has one, else one derived from the MIME type.
func ExtensionFor(name, contentType string) string {
	if ext := filepath.Ext(name); ext != "" {
		return strings.ToLower(ext)
	}
	if ext, ok := mimeExtensions[mediaType(contentType)]; ok {
		return ext
	}
	return DefaultExtension
}

// mediaType strips parameters such as ";codecs=opus" and lowercases.
func mediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		return mt
	}
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
