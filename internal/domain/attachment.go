package domain

// Attachment is a binary payload stored out of line and referenced by URL.
type Attachment struct {
	Name string
	Path string
	URL  string
}
