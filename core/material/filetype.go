package material

import (
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// contentTypes lists the detected content types accepted for each extension.
// Office files may be detected as their generic container (OLE or zip).
var contentTypes = map[string][]string{
	"jpeg": {"image/jpeg"},
	"jpg":  {"image/jpeg"},
	"png":  {"image/png"},
	"gif":  {"image/gif"},
	"pdf":  {"application/pdf"},
	"doc":  {"application/msword", "application/x-ole-storage"},
	"docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/zip"},
	"ppt":  {"application/vnd.ms-powerpoint", "application/x-ole-storage"},
	"pptx": {"application/vnd.openxmlformats-officedocument.presentationml.presentation", "application/zip"},
}

func fileExt(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// matchContent reports whether the sniffed type of data is expected for ext.
// It returns the detected content type.
func matchContent(ext string, data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	expected, ok := contentTypes[ext]
	if !ok {
		return detected.String(), false
	}
	for m := detected; m != nil; m = m.Parent() {
		for _, ct := range expected {
			if m.Is(ct) {
				return detected.String(), true
			}
		}
	}
	return detected.String(), false
}
