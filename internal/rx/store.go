// Package rx stashes prescription files on the device. Files stay local,
// inline-encoded under a namespaced key, until an order is actually placed;
// the checkout hand-off dereferences and uploads them.
package rx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/lenshaus/storefront-core/pkg/config"
	pkgerrors "github.com/lenshaus/storefront-core/pkg/errors"
	"github.com/lenshaus/storefront-core/pkg/logger"
	"github.com/lenshaus/storefront-core/pkg/storage"
)

// Kind groups the accepted media formats.
type Kind string

const (
	KindImage    Kind = "image"
	KindDocument Kind = "document"
)

var kindByMIME = map[string]Kind{
	"image/png":       KindImage,
	"image/jpeg":      KindImage,
	"image/webp":      KindImage,
	"image/gif":       KindImage,
	"application/pdf": KindDocument,
}

// Payload is the stored record for one prescription file.
type Payload struct {
	OwnerKey string    `json:"ownerKey"`
	Filename string    `json:"filename"`
	MIME     string    `json:"mime"`
	Kind     Kind      `json:"kind"`
	Encoded  string    `json:"data"`
	Size     int64     `json:"size"`
	StoredAt time.Time `json:"storedAt"`
}

// Decode returns the original file bytes.
func (p *Payload) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Encoded)
}

// Store maps an owning context (a product id, typically) to one stashed file.
type Store struct {
	storage  storage.Store
	logger   *logger.Logger
	maxBytes int64
	prefix   string
}

// NewStore wires the prescription stash over the local KV backend.
func NewStore(cfg config.RxConfig, st storage.Store, logg *logger.Logger) (*Store, error) {
	if st == nil {
		return nil, fmt.Errorf("storage backend is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	maxBytes := cfg.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = 2621440 // 2.5 MB
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "rx"
	}
	return &Store{
		storage:  st,
		logger:   logg,
		maxBytes: maxBytes,
		prefix:   prefix,
	}, nil
}

// Store validates and persists the file under the owner's key, overwriting any
// prior value. A rejected file leaves the prior value untouched.
func (s *Store) Store(ctx context.Context, ownerKey, filename string, content []byte) (string, error) {
	if ownerKey == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "owner key is required")
	}
	size := int64(len(content))
	if size == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "file is empty")
	}
	if size > s.maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeAssetTooLarge, "file exceeds the size ceiling").
			WithDetails(map[string]int64{"size": size, "limit": s.maxBytes})
	}

	detected := mimetype.Detect(content)
	kind, ok := kindByMIME[detected.String()]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeAssetUnsupported, "file must be an image or a PDF").
			WithDetails(map[string]string{"mime": detected.String()})
	}

	payload := Payload{
		OwnerKey: ownerKey,
		Filename: filename,
		MIME:     detected.String(),
		Kind:     kind,
		Encoded:  base64.StdEncoding.EncodeToString(content),
		Size:     size,
		StoredAt: time.Now().UTC(),
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payload")
	}

	key := s.key(ownerKey)
	if err := s.storage.Set(ctx, key, string(encoded)); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist prescription")
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"owner": ownerKey,
		"mime":  payload.MIME,
		"bytes": size,
	}), "prescription stored")
	return key, nil
}

// Retrieve returns the stored payload, or nil when none exists.
func (s *Store) Retrieve(ctx context.Context, ownerKey string) (*Payload, error) {
	raw, err := s.storage.Get(ctx, s.key(ownerKey))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read prescription")
	}
	var payload Payload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode prescription")
	}
	return &payload, nil
}

// Remove deletes the owner's payload. Missing keys are a no-op.
func (s *Store) Remove(ctx context.Context, ownerKey string) error {
	if err := s.storage.Delete(ctx, s.key(ownerKey)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove prescription")
	}
	return nil
}

// All returns every stashed payload, for order assembly.
func (s *Store) All(ctx context.Context) ([]Payload, error) {
	keys, err := s.storage.Keys(ctx, s.keyPrefix())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list prescriptions")
	}
	payloads := make([]Payload, 0, len(keys))
	for _, key := range keys {
		raw, err := s.storage.Get(ctx, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read prescription")
		}
		var payload Payload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode prescription")
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

// Sweep clears every stashed payload after a completed checkout.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	removed, err := s.storage.DeletePrefix(ctx, s.keyPrefix())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sweep prescriptions")
	}
	return removed, nil
}

func (s *Store) key(ownerKey string) string {
	return storage.Key(s.prefix, ownerKey)
}

// keyPrefix carries the trailing separator so a sibling namespace sharing the
// same leading characters never matches.
func (s *Store) keyPrefix() string {
	return storage.Key(s.prefix) + ":"
}
