package contents

import (
	"encoding/json"
	"mime"
	"path"
	"time"
)

const (
	TypeDirectory = "directory"
	TypeNotebook  = "notebook"
	TypeFile      = "file"

	FormatJSON   = "json"
	FormatText   = "text"
	FormatBase64 = "base64"

	notebookExt = ".ipynb"

	mimeText   = "text/plain"
	mimeBinary = "application/octet-stream"
)

// Model is the representation of a file, notebook or directory as exchanged
// with notebook clients.
type Model struct {
	Name         string    `json:"name"`
	Path         string    `json:"path"`
	Type         string    `json:"type"`
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"last_modified"`
	Size         *int64    `json:"size"`
	Mimetype     *string   `json:"mimetype"`
	Content      any       `json:"content"`
	Format       *string   `json:"format"`
	Writable     bool      `json:"writable"`
	Message      string    `json:"message,omitempty"`
}

// Input is a (partial) model as sent by a client. Content stays raw until
// the type is known.
type Input struct {
	Type     string          `json:"type,omitempty"`
	Format   string          `json:"format,omitempty"`
	Content  json.RawMessage `json:"content,omitempty"`
	Path     string          `json:"path,omitempty"`
	CopyFrom string          `json:"copy_from,omitempty"`
	Ext      string          `json:"ext,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// HasContent reports whether the client sent content, null counts as none.
func (in *Input) HasContent() bool {
	return len(in.Content) > 0 && string(in.Content) != "null"
}

type GetOptions struct {
	Content bool
	Type    string
	Format  string
}

func guessMimetype(name string) *string {
	mt := mime.TypeByExtension(path.Ext(name))
	if mt == "" {
		return nil
	}

	if mediaType, _, err := mime.ParseMediaType(mt); err == nil {
		mt = mediaType
	}

	return &mt
}

func ptr[T any](v T) *T {
	return &v
}
