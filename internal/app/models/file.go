package models

import (
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
)

// FileType is the kind of document attached to a section
type FileType string

const (
	FileTypeTimetable  FileType = "timetable"
	FileTypeEnrollment FileType = "enrollment"
)

// MIME types accepted for section documents
const (
	MimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXlsx = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeXls  = "application/vnd.ms-excel"
)

// Buckets
const (
	BucketTimetables  = "timetables"
	BucketEnrollments = "enrollments"
)

// FileTypes lists every attachable type in attach order.
var FileTypes = []FileType{FileTypeTimetable, FileTypeEnrollment}

var allowedMimeTypes = map[FileType][]string{
	FileTypeTimetable:  {MimeDocx},
	FileTypeEnrollment: {MimeDocx, MimeXlsx, MimeXls},
}

var extensionByMime = map[string]string{
	MimeDocx: "docx",
	MimeXlsx: "xlsx",
	MimeXls:  "xls",
}

// ParseFileType converts a path or form value into a FileType.
func ParseFileType(s string) (FileType, error) {
	switch FileType(strings.ToLower(strings.TrimSpace(s))) {
	case FileTypeTimetable:
		return FileTypeTimetable, nil
	case FileTypeEnrollment:
		return FileTypeEnrollment, nil
	}
	return "", fmt.Errorf("unknown file type %q", s)
}

// Valid reports whether t is a known type.
func (t FileType) Valid() bool {
	_, ok := allowedMimeTypes[t]
	return ok
}

// Bucket returns the blob container holding files of this type.
func (t FileType) Bucket() string {
	if t == FileTypeEnrollment {
		return BucketEnrollments
	}
	return BucketTimetables
}

// Accepts reports whether contentType may be attached as t.
// Parameters such as charset are ignored.
func (t FileType) Accepts(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	for _, allowed := range allowedMimeTypes[t] {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

// AllowedMimeTypes returns the accepted content types for t.
func (t FileType) AllowedMimeTypes() []string {
	return append([]string(nil), allowedMimeTypes[t]...)
}

// FileRecord is the metadata row linking a blob to a section
type FileRecord struct {
	ID        string   `json:"id" validate:"required"`
	Path      string   `json:"path" validate:"required"`
	Bucket    string   `json:"bucket" validate:"required,oneof=timetables enrollments"`
	SectionID string   `json:"sectionId" validate:"required"`
	Type      FileType `json:"type" validate:"required,oneof=timetable enrollment"`
}

// Extension returns the stored file's extension without the dot.
func (r *FileRecord) Extension() string {
	return strings.TrimPrefix(filepath.Ext(r.Path), ".")
}

// FileReference is returned by a successful attach.
type FileReference struct {
	FileID    string   `json:"fileId"`
	SectionID string   `json:"sectionId"`
	Type      FileType `json:"type"`
	Bucket    string   `json:"bucket"`
	Path      string   `json:"path"`
}

// Reference builds the caller-facing view of the record.
func (r *FileRecord) Reference() *FileReference {
	return &FileReference{
		FileID:    r.ID,
		SectionID: r.SectionID,
		Type:      r.Type,
		Bucket:    r.Bucket,
		Path:      r.Path,
	}
}

// Upload is a document received from a client, not yet stored.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

// Extension prefers the filename's extension and falls back to the one
// implied by the content type.
func (u *Upload) Extension() string {
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Filename), ".")); ext != "" {
		return ext
	}
	mediaType, _, _ := mime.ParseMediaType(u.ContentType)
	if ext, ok := extensionByMime[mediaType]; ok {
		return ext
	}
	return "bin"
}

// BlobPath is the deterministic object key for a section document.
func BlobPath(sectionID string, t FileType, ext string) string {
	return fmt.Sprintf("%s-%s.%s", sectionID, t, ext)
}

// ContentTypeFor maps a stored extension back to its MIME type.
func ContentTypeFor(ext string) string {
	for mimeType, e := range extensionByMime {
		if e == strings.ToLower(ext) {
			return mimeType
		}
	}
	return "application/octet-stream"
}
