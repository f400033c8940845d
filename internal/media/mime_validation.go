package media

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp"}

// sniffImage detects the content type from the bytes themselves and returns it
// with its canonical extension. The client supplied header is never trusted.
func sniffImage(data []byte) (string, string, error) {
	detected := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			return allowed, detected.Extension(), nil
		}
	}
	return "", "", fmt.Errorf("unsupported image type %q, expected %s", detected.String(), allowedDescription())
}

func allowedDescription() string {
	names := make([]string, 0, len(allowedImageTypes))
	for _, value := range allowedImageTypes {
		names = append(names, strings.TrimPrefix(value, "image/"))
	}
	return strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
}
