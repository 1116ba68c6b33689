package object

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	if _, err := w.Write(buf[:]); err != nil {
		return errors.Wrap(err, "object: write u64")
	}
	return nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "object: read u64")
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
