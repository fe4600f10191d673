package cms

import (
	"path/filepath"
	"strings"
)

// Kind is the broad content category of a document.
type Kind int

const (
	Unsupported Kind = iota
	PlainText
	Markdown
	Image
)

// String returns the category label used in listings and logs.
func (k Kind) String() string {
	switch k {
	case PlainText:
		return "text"
	case Markdown:
		return "markdown"
	case Image:
		return "image"
	default:
		return "unknown"
	}
}

// Category is the result of classifying a file name. Subtype is only set for images
// and is always the canonical MIME subtype ("jpeg", never "jpg").
type Category struct {
	Kind    Kind
	Subtype string
}

func (c Category) String() string {
	if c.Kind == Image {
		return c.Kind.String() + "/" + c.Subtype
	}
	return c.Kind.String()
}

// Supported reports whether documents of this category may be created or uploaded.
func (c Category) Supported() bool { return c.Kind != Unsupported }

// IsText reports whether the category is plain text or markdown.
func (c Category) IsText() bool { return c.Kind == PlainText || c.Kind == Markdown }

// IsImage reports whether the category is an image.
func (c Category) IsImage() bool { return c.Kind == Image }

// MIMEType returns the Content-Type to frame the document with.
// Unsupported content is framed as plain text rather than refused.
func (c Category) MIMEType() string {
	switch c.Kind {
	case Markdown:
		return "text/markdown"
	case Image:
		return "image/" + c.Subtype
	default:
		return "text/plain"
	}
}

// CanonicalExtension returns the normalized extension for the category, or "" when
// the category is unsupported.
func (c Category) CanonicalExtension() string {
	switch c.Kind {
	case PlainText:
		return ".txt"
	case Markdown:
		return ".md"
	case Image:
		return "." + c.Subtype
	default:
		return ""
	}
}

var extensionCategories = map[string]Category{
	".txt":  {Kind: PlainText},
	".md":   {Kind: Markdown},
	".jpg":  {Kind: Image, Subtype: "jpeg"},
	".jpeg": {Kind: Image, Subtype: "jpeg"},
	".png":  {Kind: Image, Subtype: "png"},
	".gif":  {Kind: Image, Subtype: "gif"},
	".tif":  {Kind: Image, Subtype: "tiff"},
	".tiff": {Kind: Image, Subtype: "tiff"},
}

// Classify maps a file name to its category by extension, ignoring case.
func Classify(filename string) Category {
	ext := strings.ToLower(filepath.Ext(filename))
	if c, ok := extensionCategories[ext]; ok {
		return c
	}
	return Category{Kind: Unsupported}
}

// TextExtensions and ImageExtensions list the accepted extensions, for messages.
var (
	TextExtensions  = []string{".md", ".txt"}
	ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff"}
)
