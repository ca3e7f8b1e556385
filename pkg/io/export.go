package io

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/gagern/confoo/pkg/errors"
)

// WriteOBJ writes m as v and f lines to w. Coordinates use the shortest
// representation that reads back to the same float64.
func WriteOBJ(m *ObjMesh, w io.Writer) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)
	for _, p := range m.Points {
		buf = append(buf[:0], 'v')
		for _, c := range [3]float64{p.X, p.Y, p.Z} {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, c, 'g', -1, 64)
		}
		buf = append(buf, '\n')
		bw.Write(buf)
	}
	for _, f := range m.Faces {
		buf = append(buf[:0], 'f')
		for _, v := range f {
			buf = append(buf, ' ')
			buf = strconv.AppendInt(buf, int64(v), 10)
		}
		buf = append(buf, '\n')
		bw.Write(buf)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write obj")
	}
	return nil
}

// ExportOBJ writes m to the OBJ file at path.
// This is a convenience wrapper around [WriteOBJ] for file-based output.
func ExportOBJ(m *ObjMesh, path string) error {
	return export(path, func(w io.Writer) error { return WriteOBJ(m, w) })
}

// WriteJSON encodes d as indented JSON and writes it to w. The output can
// be re-imported with [ReadJSON].
func WriteJSON(d *MeshDoc, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(d); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidFormat, err, "encode")
	}
	return nil
}

// ExportJSON writes d to the JSON file at path.
func ExportJSON(d *MeshDoc, path string) error {
	return export(path, func(w io.Writer) error { return WriteJSON(d, w) })
}

func export(path string, write func(io.Writer) error) error {
	if err := errors.ValidatePath(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidPath, err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "close %s", path)
	}
	return nil
}
