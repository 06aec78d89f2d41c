package store

import (
	"bytes"
	"fmt"

	"github.com/muurk/apportal/internal/logging"
	"github.com/muurk/apportal/internal/param"
	"go.uber.org/zap"
)

// VersionLength is the size of the version tag at the start of the region.
const VersionLength = 4

// RegionSize returns the number of bytes needed to persist reg.
func RegionSize(reg *param.Registry) int {
	return VersionLength + reg.TotalEncodedSize()
}

// Store reads and writes a registry against a Region.
type Store struct {
	region  Region
	version [VersionLength]byte
}

// New creates a Store. The version tag is NUL padded or truncated to
// VersionLength bytes.
func New(region Region, version string) *Store {
	s := &Store{region: region}
	copy(s.version[:], version)
	return s
}

// Version returns the compiled-in tag as stored on disk.
func (s *Store) Version() []byte {
	return append([]byte(nil), s.version[:]...)
}

// Region returns the underlying region.
func (s *Store) Region() Region {
	return s.region
}

func (s *Store) checkLayout(reg *param.Registry) error {
	need := RegionSize(reg)
	if have := s.region.Size(); have < need {
		return newError(ErrTypeLayout,
			fmt.Sprintf("region holds %d bytes, registry needs %d", have, need), nil)
	}
	return nil
}

// Load copies the stored values into the registry buffers. When the
// version tag does not match it returns a version mismatch error and no
// buffer is modified. Empty values are replaced by the parameter default.
func (s *Store) Load(reg *param.Registry) error {
	if err := s.checkLayout(reg); err != nil {
		return err
	}

	tag := make([]byte, VersionLength)
	if _, err := s.region.ReadAt(tag, 0); err != nil {
		return newError(ErrTypeStorageRead, "failed to read version tag", err)
	}
	if !bytes.Equal(tag, s.version[:]) {
		logging.Info("Stored config version does not match",
			zap.ByteString("stored", tag),
			zap.ByteString("expected", s.version[:]),
		)
		return newError(ErrTypeVersionMismatch,
			fmt.Sprintf("stored tag %q, expected %q", tag, s.version[:]), nil)
	}

	// Read everything before touching any buffer so a read failure never
	// leaves the registry half loaded.
	image := make([]byte, reg.TotalEncodedSize())
	if _, err := s.region.ReadAt(image, VersionLength); err != nil {
		return newError(ErrTypeStorageRead, "failed to read config fields", err)
	}

	offset := 0
	for p := range reg.Fields() {
		n := p.Capacity()
		buf := p.Buffer()
		copy(buf, image[offset:offset+n])
		if n > 0 {
			buf[n-1] = 0
		}
		offset += n

		usedDefault := false
		if p.Value() == "" && p.DefaultValue != "" {
			p.SetValue(p.DefaultValue)
			usedDefault = true
		}
		logging.LogParameter("Loaded config", p.ID, p.Value(), p.IsPassword(), usedDefault)
	}

	return nil
}

// Save writes the version tag and every field, then commits the region.
func (s *Store) Save(reg *param.Registry) error {
	if err := s.checkLayout(reg); err != nil {
		return err
	}

	if _, err := s.region.WriteAt(s.version[:], 0); err != nil {
		return newError(ErrTypeStorageWrite, "failed to write version tag", err)
	}

	offset := int64(VersionLength)
	for p := range reg.Fields() {
		logging.LogParameter("Saving config", p.ID, p.Value(), p.IsPassword(), false)
		if _, err := s.region.WriteAt(p.Buffer(), offset); err != nil {
			return newError(ErrTypeStorageWrite,
				fmt.Sprintf("failed to write field %q", p.ID), err)
		}
		offset += int64(p.Capacity())
	}

	if err := s.region.Commit(); err != nil {
		return newError(ErrTypeStorageWrite, "failed to commit region", err)
	}

	logging.Info("Configuration saved", zap.Int64("bytes", offset))
	return nil
}
