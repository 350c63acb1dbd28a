package dataset

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
)

const (
	// MaxGeneratedTitleLength bounds titles derived from upload filenames
	MaxGeneratedTitleLength = 32
	// MaxTitleLength bounds titles set by owners
	MaxTitleLength = 64

	pathBytes = 24
)

// ErrNotFound is returned when no data set matches the lookup
var ErrNotFound = errors.New("data set not found")

// DataSet is a stored dataset row
type DataSet struct {
	ID       int64          `db:"id"`
	UserID   int64          `db:"user_id"`
	Title    string         `db:"title"`
	Path     string         `db:"path"`
	Content  types.JSONText `db:"content"`
	UploadAt time.Time      `db:"upload_at"`
	IsPublic bool           `db:"is_public"`
}

// ValidationError reports why an uploaded document was rejected
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// New validates content and builds an unsaved, private dataset owned by userID
func New(userID int64, title string, content []byte, now time.Time) (*DataSet, error) {
	if err := ValidateContent(content); err != nil {
		return nil, err
	}

	path, err := NewPath()
	if err != nil {
		return nil, err
	}

	return &DataSet{
		UserID:   userID,
		Title:    Truncate(title, MaxTitleLength),
		Path:     path,
		Content:  types.JSONText(content),
		UploadAt: now.UTC(),
	}, nil
}

// NewPath returns 192 random bits encoded as unpadded base64url
func NewPath() (string, error) {
	buf := make([]byte, pathBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate data set path: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// TitleFromFilename strips directories and the extension, then truncates
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	title := strings.TrimSuffix(base, filepath.Ext(base))
	return Truncate(title, MaxGeneratedTitleLength)
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
