package models

// Attachment is an image held by the external object store. URL is what
// clients fetch; Handle is the opaque key used to delete the object.
type Attachment struct {
	URL    string
	Handle string
}
