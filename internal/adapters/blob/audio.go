// Package blob stores binary message attachments out of line.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/dkeye/Chat/internal/domain"
)

const AudioDir = "audio"

var ErrBadName = errors.New("bad attachment name")

// AudioStore writes voice clips under AudioDir of a filesystem.
type AudioStore struct {
	fs      afero.Fs
	baseURL string
}

// NewAudioStore serves files under baseURL + "audio/". baseURL gets a trailing slash.
func NewAudioStore(fs afero.Fs, baseURL string) *AudioStore {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &AudioStore{fs: fs, baseURL: baseURL}
}

// NewOsAudioStore roots the store at a directory on disk.
func NewOsAudioStore(root, baseURL string) *AudioStore {
	return NewAudioStore(afero.NewBasePathFs(afero.NewOsFs(), root), baseURL)
}

// Save writes data to a freshly named file. The file is complete and synced
// before Save returns; on any failure nothing is left behind.
func (s *AudioStore) Save(ctx context.Context, data []byte, format string) (domain.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Attachment{}, err
	}
	if err := s.fs.MkdirAll(AudioDir, 0o755); err != nil {
		return domain.Attachment{}, fmt.Errorf("create audio dir: %w", err)
	}
	name := uuid.NewString() + "." + format
	p := path.Join(AudioDir, name)

	f, err := s.fs.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("create attachment: %w", err)
	}
	_, werr := f.Write(data)
	if werr == nil {
		werr = f.Sync()
	}
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = ctx.Err()
	}
	if werr != nil {
		_ = s.fs.Remove(p)
		return domain.Attachment{}, fmt.Errorf("write attachment: %w", werr)
	}
	return domain.Attachment{Name: name, Path: p, URL: s.baseURL + AudioDir + "/" + name}, nil
}

// Remove deletes a stored clip by file name.
func (s *AudioStore) Remove(name string) error {
	p, err := s.resolve(name)
	if err != nil {
		return err
	}
	return s.fs.Remove(p)
}

// Open returns the clip contents and the sniffed content type.
func (s *AudioStore) Open(name string) ([]byte, string, error) {
	p, err := s.resolve(name)
	if err != nil {
		return nil, "", err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, mimetype.Detect(data).String(), nil
}

func (s *AudioStore) resolve(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", ErrBadName
	}
	return path.Join(AudioDir, name), nil
}
