package chat

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mycampus-app/quickchat/internal/models"
)

// StagedAttachment is a file selected for sending but not yet transmitted.
// Its preview spool file is a scarce resource released exactly once, by
// either Unstage or the drain-for-send path.
type StagedAttachment struct {
	Name       string
	MimeType   string
	Type       models.AttachmentType
	Size       int64
	PreviewRef string

	payload     []byte
	previewPath string
	release     sync.Once
}

// Encode builds the immutable wire attachment from the staged payload.
func (a *StagedAttachment) Encode() models.Attachment {
	return models.Attachment{
		Name:     a.Name,
		DataURL:  fmt.Sprintf("data:%s;base64,%s", a.MimeType, base64.StdEncoding.EncodeToString(a.payload)),
		Type:     a.Type,
		MimeType: a.MimeType,
		Size:     a.Size,
	}
}

// Release frees the preview spool. Any lifecycle path may call it; only the
// first call has an effect.
func (a *StagedAttachment) Release() {
	a.release.Do(func() {
		if a.previewPath != "" {
			_ = os.Remove(a.previewPath)
		}
	})
}

// PreviewPath points at the spooled preview copy while it is staged.
func (a *StagedAttachment) PreviewPath() string { return a.previewPath }

// AttachmentStaging manages locally selected files before send.
type AttachmentStaging struct {
	mu     sync.Mutex
	dir    string
	staged []*StagedAttachment
}

func NewAttachmentStaging(dir string) (*AttachmentStaging, error) {
	if dir == "" {
		d, err := os.MkdirTemp("", "quickchat-staging-*")
		if err != nil {
			return nil, fmt.Errorf("create staging dir: %w", err)
		}
		dir = d
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &AttachmentStaging{dir: dir}, nil
}

// Stage classifies and spools a selected file. No size or type policy is
// enforced here; that decision belongs to the caller.
func (s *AttachmentStaging) Stage(name, mimeType string, payload []byte) (*StagedAttachment, error) {
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}

	ref := uuid.NewString()
	previewPath := filepath.Join(s.dir, ref)
	if err := os.WriteFile(previewPath, payload, 0o600); err != nil {
		return nil, fmt.Errorf("spool preview for %s: %w", name, err)
	}

	att := &StagedAttachment{
		Name:        name,
		MimeType:    mimeType,
		Type:        ClassifyAttachment(name, mimeType),
		Size:        int64(len(payload)),
		PreviewRef:  ref,
		payload:     payload,
		previewPath: previewPath,
	}

	s.mu.Lock()
	s.staged = append(s.staged, att)
	s.mu.Unlock()
	return att, nil
}

// Unstage removes the entry matching previewRef and releases its preview.
// Unknown refs, including refs already released, are a no-op.
func (s *AttachmentStaging) Unstage(previewRef string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, att := range s.staged {
		if att.PreviewRef == previewRef {
			s.staged = append(s.staged[:i], s.staged[i+1:]...)
			att.Release()
			return
		}
	}
}

// DrainForSend atomically returns and clears the staged set, so files staged
// while a send is in flight are not swept into it.
func (s *AttachmentStaging) DrainForSend() []*StagedAttachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.staged
	s.staged = nil
	return out
}

// Staged returns the currently staged entries in order.
func (s *AttachmentStaging) Staged() []*StagedAttachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*StagedAttachment, len(s.staged))
	copy(out, s.staged)
	return out
}

// Close releases everything still staged. Used on session teardown.
func (s *AttachmentStaging) Close() {
	for _, att := range s.DrainForSend() {
		att.Release()
	}
}

// ClassifyAttachment buckets a file into the four renderable kinds, by
// declared mime type first and extension as fallback.
func ClassifyAttachment(name, mimeType string) models.AttachmentType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.AttachmentImage
	case strings.HasPrefix(mimeType, "audio/"):
		return models.AttachmentAudio
	case mimeType == "application/zip" || strings.HasSuffix(strings.ToLower(name), ".zip"):
		return models.AttachmentZip
	default:
		return models.AttachmentDocument
	}
}
