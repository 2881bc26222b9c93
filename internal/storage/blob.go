package storage

import "io"

// BlobStore holds uploaded quiz assets (question images, quiz cover art).
// Keys follow "quizzes/<quizID>/questions/<questionID>/<filename>".
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
	SignedURL(key string) (string, error) // fs returns "file://..." for dev
}
