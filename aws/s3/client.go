package s3

import (
	"bytes"
	"io"
	"io/ioutil"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

func NewClient(bucket, region, prefix string) Client {
	return NewClientFromBasic(NewBasicClient(bucket, region, prefix))
}

func NewClientFromBasic(b BasicClient) Client {
	c := &client{
		BasicClient: b,
	}
	if impl, ok := b.(*basicClient); ok { // if we hold the real SDK client...
		c.uploader = s3manager.NewUploaderWithClient(impl.api)
		c.bucket = impl.bucket
		c.prefix = impl.prefix
	}
	return c
}

type client struct {
	BasicClient
	uploader *s3manager.Uploader
	bucket   string
	prefix   string
}

func (s *client) Move(src, dst string) error {
	data, err := s.Get(src)
	if err != nil {
		return err
	}

	err = s.Put(dst, data)
	if err != nil {
		return err
	}

	return s.Delete(src)
}

// Upload streams body to the given key using the SDK upload manager so large data files
// go up as multipart transfers. When no real SDK client is available (mock injection)
// it falls back to a buffered put.
func (s *client) Upload(key string, body io.Reader) error {
	if s.uploader == nil { // if a test injected a BasicClient mock...
		data, err := ioutil.ReadAll(body)
		if err != nil {
			return err
		}
		return s.BufferPut(key, bytes.NewReader(data))
	}
	_, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.keyWithPrefix(key)),
		Body:   body,
	})
	return err
}

func (s *client) keyWithPrefix(key string) string {
	if s.prefix != "" {
		return strings.TrimRight(s.prefix, "/") + "/" + key
	}
	return key
}
