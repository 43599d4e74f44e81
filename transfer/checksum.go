package transfer

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/vietddude/objstore"
)

// ChecksumMode selects how a finished transfer is validated.
type ChecksumMode int

const (
	// ChecksumAuto picks the strongest checksum the object carries:
	// crc32c when present, else md5, else none.
	ChecksumAuto ChecksumMode = iota
	ChecksumCRC32C
	ChecksumMD5
	ChecksumDisabled
)

func (m ChecksumMode) String() string {
	switch m {
	case ChecksumCRC32C:
		return "crc32c"
	case ChecksumMD5:
		return "md5"
	case ChecksumDisabled:
		return "disabled"
	default:
		return "auto"
	}
}

// ParseChecksumMode maps a config string to a mode.
func ParseChecksumMode(s string) (ChecksumMode, error) {
	switch s {
	case "", "auto":
		return ChecksumAuto, nil
	case "crc32c":
		return ChecksumCRC32C, nil
	case "md5":
		return ChecksumMD5, nil
	case "disabled", "none":
		return ChecksumDisabled, nil
	default:
		return ChecksumAuto, fmt.Errorf("unknown checksum mode %q", s)
	}
}

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// checksums is a whole-object digest pair.
type checksums struct {
	crc32c uint32
	md5    []byte
}

// computeChecksums digests size bytes from r in one sequential pass.
func computeChecksums(r io.ReaderAt, size int64) (checksums, error) {
	crc := crc32.New(castagnoli)
	md := md5.New()
	section := io.NewSectionReader(r, 0, size)
	if _, err := io.Copy(io.MultiWriter(crc, md), section); err != nil {
		return checksums{}, fmt.Errorf("digest source: %w", err)
	}
	return checksums{crc32c: crc.Sum32(), md5: md.Sum(nil)}, nil
}

// verify compares local digests against the attrs the service reported,
// honoring the configured mode. Returns nil when nothing can be compared.
func (m ChecksumMode) verify(local checksums, attrs *objstore.ObjectAttrs) error {
	switch m {
	case ChecksumDisabled:
		return nil
	case ChecksumCRC32C:
		if !attrs.HasCRC32C {
			return fmt.Errorf("%w: service reported no crc32c", ErrChecksumUnavailable)
		}
		return compareCRC(local.crc32c, attrs.CRC32C)
	case ChecksumMD5:
		if len(attrs.MD5) == 0 {
			return fmt.Errorf("%w: service reported no md5", ErrChecksumUnavailable)
		}
		return compareMD5(local.md5, attrs.MD5)
	default: // ChecksumAuto
		if attrs.HasCRC32C {
			return compareCRC(local.crc32c, attrs.CRC32C)
		}
		if len(attrs.MD5) > 0 {
			return compareMD5(local.md5, attrs.MD5)
		}
		return nil
	}
}

func compareCRC(got, want uint32) error {
	if got != want {
		return &IntegrityError{Algorithm: "crc32c", Want: fmt.Sprintf("%08x", want), Got: fmt.Sprintf("%08x", got)}
	}
	return nil
}

func compareMD5(got, want []byte) error {
	if !bytes.Equal(got, want) {
		return &IntegrityError{Algorithm: "md5", Want: fmt.Sprintf("%x", want), Got: fmt.Sprintf("%x", got)}
	}
	return nil
}
