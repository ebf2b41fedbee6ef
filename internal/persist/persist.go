// Package persist keeps the durable slice of client state: the settings
// blob, stored under the application key.
package persist

import (
	"context"
	"encoding/hex"
	"encoding/json/v2"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/goodaideas/goodaideas/internal/domain"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// BlobVersion is the current on-disk blob version.
const BlobVersion = 1

// Storage is durable key-value storage for opaque blobs.
type Storage interface {
	// Load returns the blob stored under key, or a NOT_FOUND error.
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, blob []byte) error
	Close() error
}

// Watcher is implemented by storage that can report writes made by other
// processes.
type Watcher interface {
	Watch(ctx context.Context, key string, fn func(blob []byte)) error
}

type blob struct {
	Version int       `json:"version"`
	State   blobState `json:"state"`
}

type blobState struct {
	Settings *domain.SettingsPatch `json:"settings"`
}

// EncodeSettings serializes the complete settings subtree.
func EncodeSettings(s domain.Settings) ([]byte, error) {
	p := s.Patch()
	data, err := json.Marshal(blob{Version: BlobVersion, State: blobState{Settings: &p}})
	if err != nil {
		return nil, fmt.Errorf("encode settings blob: %w", err)
	}
	return data, nil
}

// DecodeSettings reads a settings blob. Fields missing from an older blob
// take their default values; unknown enum values reject the blob.
func DecodeSettings(data []byte) (domain.Settings, error) {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		return domain.Settings{}, domainerrors.Wrap(err, domainerrors.CodeValidation, "malformed settings blob")
	}
	if b.Version > BlobVersion {
		return domain.Settings{}, domainerrors.Validationf("settings blob version %d is newer than %d", b.Version, BlobVersion)
	}
	if b.State.Settings == nil {
		return domain.Settings{}, domainerrors.Validation("settings blob has no settings")
	}
	return domain.DefaultSettings().Merge(*b.State.Settings)
}

// Fingerprint returns the blake3 digest of blob as hex.
func Fingerprint(blob []byte) string {
	sum := blake3.Sum256(blob)
	return hex.EncodeToString(sum[:])
}
