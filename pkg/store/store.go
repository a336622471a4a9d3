package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/ostren/ember/pkg/errors"
	"github.com/ostren/ember/pkg/structs"
)

// Store holds job outputs. Artifacts are immutable once written; the
// checksum computed on write is verified on every read.
type Store interface {
	Write(jobID string, data []byte) (*structs.Artifact, error)
	Read(location string) ([]byte, error)
}

const artPrefix = "art"

// Filesystem is a Store over a shared directory (in deployment, a volume
// mounted by every worker and gateway). The namespace is flat: one artifact
// per job id, no directory semantics beyond that.
type Filesystem struct {
	root string
}

// NewFilesystem returns a Store rooted at the given directory.
func NewFilesystem(root string) (*Filesystem, error) {
	err := os.MkdirAll(filepath.Join(root, artPrefix), 0755)
	if err != nil {
		return nil, err
	}
	return &Filesystem{root: root}, nil
}

// Write stores data for the given job and returns its artifact record.
// The data file lands via rename so readers never see a partial artifact.
func (f *Filesystem) Write(jobID string, data []byte) (*structs.Artifact, error) {
	location := path.Join(artPrefix, jobID)
	dst := filepath.Join(f.root, artPrefix, jobID)

	sum := sha256.Sum256(data)
	checksum := hex.EncodeToString(sum[:])

	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, err
	}
	if err := os.WriteFile(dst+".sum", []byte(checksum), 0644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return nil, err
	}

	return &structs.Artifact{
		JobID:     jobID,
		Location:  location,
		Checksum:  checksum,
		Size:      int64(len(data)),
		CreatedAt: time.Now().Unix(),
	}, nil
}

// Read returns the bytes at the given location, verifying their checksum.
func (f *Filesystem) Read(location string) ([]byte, error) {
	fpath, err := f.resolve(location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(fpath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w artifact %s", errors.ErrNotFound, location)
	}
	if err != nil {
		return nil, err
	}

	want, err := os.ReadFile(fpath + ".sum")
	if err != nil {
		return nil, fmt.Errorf("%w missing checksum for %s", errors.ErrCorruptArtifact, location)
	}
	sum := sha256.Sum256(data)
	if hex.EncodeToString(sum[:]) != strings.TrimSpace(string(want)) {
		return nil, fmt.Errorf("%w checksum mismatch for %s", errors.ErrCorruptArtifact, location)
	}

	return data, nil
}

// resolve maps a location back under our root, refusing path escapes.
func (f *Filesystem) resolve(location string) (string, error) {
	clean := path.Clean("/" + location)
	if !strings.HasPrefix(clean, "/"+artPrefix+"/") {
		return "", fmt.Errorf("%w bad location %s", errors.ErrInvalidRequest, location)
	}
	return filepath.Join(f.root, filepath.FromSlash(clean)), nil
}
