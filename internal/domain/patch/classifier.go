package patch

import (
	"path/filepath"
	"strings"
)

var imageMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
}

var audioMIMEs = map[string]struct{}{
	"audio/mpeg3": {},
	"audio/mp3":   {},
	"audio/mpeg":  {},
}

// Classify maps a file to its role. The MIME type wins over the extension;
// extensions are matched case-sensitively.
func Classify(name, mimeType string) (Role, error) {
	mimeType = normalizeMIME(mimeType)
	if _, ok := imageMIMEs[mimeType]; ok {
		return RoleImage, nil
	}
	if _, ok := audioMIMEs[mimeType]; ok {
		return RoleAudio, nil
	}
	switch filepath.Ext(name) {
	case ".bsk":
		return RolePrimaryDefinition, nil
	case ".pfb":
		return RolePrimaryPrefab, nil
	}
	return "", &UnrecognizedFileTypeError{FileName: name, MimeType: mimeType}
}

// ClassifyAll classifies the whole batch and stops at the first unrecognized
// file. Roles are returned in input order.
func ClassifyAll(files []IncomingFile) ([]Role, error) {
	roles := make([]Role, 0, len(files))
	for _, f := range files {
		role, err := Classify(f.Name, f.MimeType)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, nil
}

// normalizeMIME drops parameters such as "; charset=binary".
func normalizeMIME(mimeType string) string {
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mimeType))
}
