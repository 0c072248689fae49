package storage

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"edumesh/config"
)

// Upload folders. Keys are scoped by school so tenant data never mixes.
const (
	FolderAvatars     = "avatars"
	FolderHomework    = "homework"
	FolderSubmissions = "submissions"
	FolderChat        = "chat"
)

const defaultMaxUploadSize = 10 << 20 // 10 MB

var allowedExtensions = map[string][]string{
	FolderAvatars:     {"jpg", "jpeg", "png", "webp"},
	FolderHomework:    {"jpg", "jpeg", "png", "webp", "pdf", "doc", "docx", "xlsx"},
	FolderSubmissions: {"jpg", "jpeg", "png", "webp", "pdf", "doc", "docx"},
	FolderChat:        {"jpg", "jpeg", "png", "webp", "pdf"},
}

type StorageService struct {
	s3Client *s3.S3
	bucket   string
	region   string
}

// NewStorageService creates a new storage service
func NewStorageService() (*StorageService, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(config.AppConfig.AWSRegion),
		Credentials: credentials.NewStaticCredentials(
			config.AppConfig.AWSAccessKeyID,
			config.AppConfig.AWSSecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %v", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		bucket:   config.AppConfig.S3BucketName,
		region:   config.AppConfig.AWSRegion,
	}, nil
}

// UploadFile stores an uploaded file under a school-scoped key and returns
// its public URL.
func (s *StorageService) UploadFile(file *multipart.FileHeader, folder string, schoolID, userID uint) (string, error) {
	maxSize := config.AppConfig.MaxFileSize
	if maxSize <= 0 {
		maxSize = defaultMaxUploadSize
	}
	if file.Size > maxSize {
		return "", fmt.Errorf("file exceeds the %d MB limit", maxSize>>20)
	}
	ext := fileExtension(file.Filename)
	if !extensionAllowed(folder, ext) {
		return "", fmt.Errorf("file type .%s is not allowed for %s uploads", ext, folder)
	}

	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %v", err)
	}
	defer src.Close()

	fileBytes, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %v", err)
	}

	now := time.Now()
	randomID := uuid.New().String()[:16]
	key := fmt.Sprintf("schools/%d/%s/%d/%02d/%d-%s.%s",
		schoolID,
		folder,
		now.Year(),
		now.Month(),
		userID,
		randomID,
		ext,
	)

	_, err = s.s3Client.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(fileBytes),
		ContentType: aws.String(contentType(ext)),
		ACL:         aws.String("public-read"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %v", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// DeleteFile deletes a file from S3 by its public URL.
func (s *StorageService) DeleteFile(fileURL string) error {
	key := extractKeyFromURL(fileURL)
	if key == "" {
		return fmt.Errorf("invalid file URL")
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func extensionAllowed(folder, ext string) bool {
	allowed, ok := allowedExtensions[folder]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if ext == a {
			return true
		}
	}
	return false
}

func fileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 1 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

func contentType(extension string) string {
	switch strings.ToLower(extension) {
	case "webp":
		return "image/webp"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

func extractKeyFromURL(url string) string {
	parts := strings.Split(url, ".amazonaws.com/")
	if len(parts) != 2 {
		return ""
	}
	return parts[1]
}
