package config

import (
	"errors"
	"flag"
	"net"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string
	DBUrl          string
	TokenSecret    string
	TokenTTL       time.Duration
	UploadDir      string
	UploadMaxBytes int64
	AllowedMime    []string
	UploadTTL      time.Duration
	AllowRegister  bool
	CORSOrigins    []string
	PublicBaseURL  string
	Debug          bool
}

const defaultAllowedMime = "application/pdf,image/png,image/jpeg," +
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document"

func ParseFlags() (cfg Config, err error) {
	// .env values become flag defaults, flags still win
	godotenv.Load()

	var host string
	flag.StringVar(&host, "host", "0.0.0.0", "listen host name (default 0.0.0.0)")
	var port uint
	flag.UintVar(&port, "port", 8080, "listen port number (default 8080)")
	flag.StringVar(&cfg.DBUrl, "db-url", envOr("DB_URL", "miniforms.sqlite"), "path to SQLite3 DB file")
	flag.StringVar(&cfg.TokenSecret, "token-secret", os.Getenv("JWT_SECRET"), "secret key for JWT signing")
	var ttl uint
	flag.UintVar(&ttl, "token-ttl", uint(envOrInt("JWT_EXPIRY", 86400)), "token TTL in seconds")
	flag.StringVar(&cfg.UploadDir, "upload-dir", envOr("UPLOAD_DIR", "uploads"), "directory for uploaded files")
	var maxBytes uint64
	flag.Uint64Var(&maxBytes, "upload-max-bytes", uint64(envOrInt("UPLOAD_MAX_BYTES", 10*1024*1024)), "max upload size in bytes")
	var allowedMime string
	flag.StringVar(&allowedMime, "upload-allowed-mime", envOr("UPLOAD_ALLOWED_MIME", defaultAllowedMime), "comma separated MIME allow-list")
	flag.BoolVar(&cfg.AllowRegister, "allow-register", envOr("ALLOW_REGISTER", "false") == "true", "enable the register endpoint (dev only)")
	var corsOrigins string
	flag.StringVar(&corsOrigins, "cors-origins", envOr("CORS_ALLOWED_ORIGINS", "*"), "comma separated CORS origins")
	flag.StringVar(&cfg.PublicBaseURL, "public-base-url", os.Getenv("APP_URL"), "base URL used in published form links")
	flag.BoolVar(&cfg.Debug, "debug", false, "log at DEBUG level")
	flag.Parse()

	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(int(port)))
	cfg.TokenTTL = time.Duration(ttl) * time.Second
	cfg.UploadMaxBytes = int64(maxBytes)
	cfg.AllowedMime = splitList(allowedMime)
	cfg.UploadTTL = 6 * time.Hour
	cfg.CORSOrigins = splitList(corsOrigins)

	if cfg.TokenSecret == "" {
		err = errors.New("missing parameter -token-secret (or JWT_SECRET)")
	}

	return
}

func (cfg Config) Url() (url string) {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	url = cfg.Addr
	url = regexp.MustCompile(`^0.0.0.0`).ReplaceAllString(url, "localhost")
	url = "http://" + url
	return
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(raw string) (items []string) {
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return
}
