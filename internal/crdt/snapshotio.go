package crdt

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// writeU64/readU64/writeBytes/readBytes are the shared primitives the
// on-disk snapshot format builds on: fixed-width integers and
// length-prefixed byte strings. Every CRDT variant's SaveSnapshot/
// LoadSnapshot pair is written in terms of these.

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "crdt: write uint64")
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "crdt: read uint64")
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

func writeI64(w io.Writer, v int64) error { return writeU64(w, uint64(v)) }

func readI64(r io.Reader) (int64, error) {
	v, err := readU64(r)
	return int64(v), err
}

func writeBytesField(w io.Writer, b []byte) error {
	if err := writeU64(w, uint64(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return errors.Wrap(err, "crdt: write bytes payload")
}

func readBytesField(r io.Reader) ([]byte, error) {
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(err, "crdt: read bytes payload")
		}
	}
	return buf, nil
}
