package helpers

import (
	"bytes"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
)

// AddFileToS3 uploads the buffer under key and returns its location.
func AddFileToS3(sess *session.Session, bucket string, key string, file *bytes.Buffer, contentType string) (string, error) {
	uploader := s3manager.NewUploader(sess)
	out, err := uploader.Upload(&s3manager.UploadInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(file.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed uploading %s", key)
	}

	return out.Location, nil
}
