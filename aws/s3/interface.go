//go:generate mockgen -package mocks -destination mocks/interface.go -source=interface.go
package s3

import (
	"errors"
	"io"
)

var ErrKeyNotFound = errors.New("key not found")

type BasicClient interface {
	Lister
	Getter
	Putter
	BufferPutter
	Deleter
	PrefixDeleter
}

type Client interface {
	BasicClient
	Mover
	Uploader
}

type Lister interface {
	List(key string) (keys []string, err error)
}

type Getter interface {
	// Get returns ErrKeyNotFound if the given key doesn't exist.
	Get(key string) (data []byte, err error)
}

type Putter interface {
	Put(key string, data []byte) (err error)
}

// BufferPutter can be used to put a file to S3 since File implements Read and Seek.
type BufferPutter interface {
	BufferPut(key string, buf io.ReadSeeker) (err error)
}

type Deleter interface {
	Delete(key string) error
}

// PrefixDeleter removes every object below a key prefix.
// This is the overwrite step: a table directory is deleted before its replacement is written.
type PrefixDeleter interface {
	DeletePrefix(key string) (numDeleted int, err error)
}

// Uploader streams a reader to S3 using the SDK upload manager, which handles multipart
// transfers for large files. Use this for data files; BufferPut is fine for small objects.
type Uploader interface {
	Upload(key string, body io.Reader) (err error)
}

type Mover interface {
	// Move returns ErrKeyNotFound if the src key doesn't exist.
	Move(src, dst string) error
}
