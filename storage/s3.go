package storage

import (
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const presignUploadFor = time.Hour

type S3Storage struct {
	s3Client   *s3.S3
	bucket     string
	publicBase string
}

func NewS3Storage(cfg Config) (*S3Storage, error) {
	awsConfig := aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	sess, err := session.NewSession(&awsConfig)
	if err != nil {
		return nil, err
	}
	publicBase := strings.TrimSuffix(cfg.PublicURL, "/")
	return &S3Storage{
		s3Client:   s3.New(sess),
		bucket:     cfg.Bucket,
		publicBase: publicBase,
	}, nil
}

func (s *S3Storage) NewUploadURL(key, mimeType string) (string, string, error) {
	req, _ := s.s3Client.PutObjectRequest(&s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         aws.String(key),
		ContentType: aws.String(mimeType),
	})
	uploadURL, err := req.Presign(presignUploadFor)
	if err != nil {
		return "", "", err
	}
	return uploadURL, s.publicBase + "/" + key, nil
}

func (s *S3Storage) Exists(key string) bool {
	_, err := s.s3Client.HeadObject(&s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
	})
	return err == nil
}

func (s *S3Storage) KeyForURL(url string) (string, error) {
	if !strings.HasPrefix(url, s.publicBase+"/") {
		return "", ErrForeignURL
	}
	return strings.TrimPrefix(url, s.publicBase+"/"), nil
}

func (s *S3Storage) Save(key, mimeType string, reader io.Reader) error {
	uploader := s3manager.NewUploaderWithClient(s.s3Client)
	_, err := uploader.Upload(&s3manager.UploadInput{
		Bucket:      &s.bucket,
		Key:         aws.String(key),
		ContentType: aws.String(mimeType),
		Body:        reader,
	})
	return err
}

func (s *S3Storage) Load(key string, writer io.Writer) error {
	resp, err := s.s3Client.GetObject(&s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, err = io.Copy(writer, resp.Body)
	return err
}

func (s *S3Storage) Delete(key string) error {
	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    aws.String(key),
	})
	return err
}
