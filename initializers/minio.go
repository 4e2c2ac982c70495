package initializers

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"gopkg.in/yaml.v3"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	MaxSize   int64
	FileTypes []string
}

var MinioClient *minio.Client
var Conf MinioConfig

// uploadsConfigYAML defines optional YAML configuration for avatar upload
// policy. If present, it overrides environment variables.
type uploadsConfigYAML struct {
	MaxFileSize      int64    `yaml:"max_file_size"`
	AllowedFileTypes []string `yaml:"allowed_file_types"`
}

func loadUploadsConfig() (*uploadsConfigYAML, error) {
	path := os.Getenv("UPLOADS_CONFIG_FILE")
	if strings.TrimSpace(path) == "" {
		path = "config/uploads.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg uploadsConfigYAML
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func InitMinio() error {
	Conf = MinioConfig{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    os.Getenv("MINIO_BUCKET"),
		UseSSL:    parseBool(os.Getenv("MINIO_USE_SSL")),
		MaxSize:   parseInt64(os.Getenv("MAX_FILE_SIZE"), 5242880),
		FileTypes: parseFileTypes(os.Getenv("ALLOWED_FILE_TYPES")),
	}

	if yamlCfg, err := loadUploadsConfig(); err == nil && yamlCfg != nil {
		if yamlCfg.MaxFileSize > 0 {
			Conf.MaxSize = yamlCfg.MaxFileSize
		}
		if len(yamlCfg.AllowedFileTypes) > 0 {
			Conf.FileTypes = yamlCfg.AllowedFileTypes
		}
	}

	client, err := minio.New(Conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(Conf.AccessKey, Conf.SecretKey, ""),
		Secure: Conf.UseSSL,
	})
	if err != nil {
		return err
	}
	MinioClient = client

	exists, err := client.BucketExists(context.Background(), Conf.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := client.MakeBucket(context.Background(), Conf.Bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}

	log.Println("Minio bucket ready:", Conf.Bucket)
	return nil
}

func parseBool(val string) bool {
	return strings.ToLower(val) == "true"
}

func parseInt64(val string, def int64) int64 {
	if val == "" {
		return def
	}
	v, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return def
	}
	return v
}

func parseFileTypes(val string) []string {
	if val == "" {
		return []string{"image/jpeg", "image/png", "image/webp"}
	}
	return strings.Split(val, ",")
}

func baseMIME(mime string) string {
	if mime == "" {
		return ""
	}
	parts := strings.Split(mime, ";")
	return strings.TrimSpace(parts[0])
}

func CheckFileAllowed(size int64, mime string) error {
	if size > Conf.MaxSize {
		return fmt.Errorf("file size exceeds the limit")
	}
	incoming := baseMIME(mime)
	for _, t := range Conf.FileTypes {
		if baseMIME(t) == incoming {
			return nil
		}
	}
	return fmt.Errorf("file type is not allowed")
}
