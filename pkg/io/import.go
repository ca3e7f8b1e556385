package io

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/gagern/confoo/pkg/errors"
	"github.com/gagern/confoo/pkg/mesh"
)

const maxLineLength = 1 << 20

// ReadOBJ parses an OBJ document from r.
//
// ReadOBJ returns a PARSE_ERROR naming the line if:
//   - A v statement has fewer than three or more than four numbers
//   - A face has fewer than three corners or a malformed corner entry
//   - A face refers to index 0 or to a vertex that is never defined
//
// ReadOBJ does not close r.
func ReadOBJ(r io.Reader) (*ObjMesh, error) {
	m := &ObjMesh{}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineLength)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			p, err := parseVertex(fields[1:])
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeParse, err, "line %d", lineNo)
			}
			m.Points = append(m.Points, p)
		case "f":
			corners, err := parseFace(fields[1:], len(m.Points))
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeParse, err, "line %d", lineNo)
			}
			for i := 1; i+1 < len(corners); i++ {
				m.Faces = append(m.Faces, mesh.Triangle[int]{corners[0], corners[i], corners[i+1]})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "read")
	}

	for _, f := range m.Faces {
		for _, v := range f {
			if v > len(m.Points) {
				return nil, errors.New(errors.ErrCodeParse, "face refers to undefined vertex %d", v)
			}
		}
	}
	return m, nil
}

func parseVertex(args []string) (r3.Vec, error) {
	if len(args) != 3 && len(args) != 4 {
		return r3.Vec{}, errors.New(errors.ErrCodeParse, "vertex needs 3 coordinates, got %d", len(args))
	}
	var c [3]float64
	for i := range c {
		f, err := strconv.ParseFloat(args[i], 64)
		if err != nil {
			return r3.Vec{}, errors.Wrap(errors.ErrCodeParse, err, "vertex coordinate %q", args[i])
		}
		c[i] = f
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// parseFace resolves the vertex indices of a face whose corners are
// written after n vertices have been defined.
func parseFace(args []string, n int) ([]int, error) {
	if len(args) < 3 {
		return nil, errors.New(errors.ErrCodeParse, "face needs at least 3 corners, got %d", len(args))
	}
	corners := make([]int, len(args))
	for i, arg := range args {
		ref, _, _ := strings.Cut(arg, "/")
		idx, err := strconv.Atoi(ref)
		if err != nil {
			return nil, errors.New(errors.ErrCodeParse, "invalid face corner %q", arg)
		}
		switch {
		case idx == 0:
			return nil, errors.New(errors.ErrCodeParse, "vertex index 0 in face corner %q", arg)
		case idx < 0:
			idx += n + 1
			if idx < 1 {
				return nil, errors.New(errors.ErrCodeParse, "relative index %q before first vertex", arg)
			}
		}
		corners[i] = idx
	}
	return corners, nil
}

// ImportOBJ reads the OBJ file at path. It returns the same errors as
// [ReadOBJ], plus FILE_NOT_FOUND when path does not exist.
func ImportOBJ(path string) (*ObjMesh, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadOBJ(f)
}

// ReadJSON decodes a [MeshDoc] from r.
//
// ReadJSON returns a PARSE_ERROR if the JSON is malformed, if two vertices
// share an id, or if a triangle names an id that is not listed. ReadJSON
// does not close r.
func ReadJSON(r io.Reader) (*MeshDoc, error) {
	var d MeshDoc
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParse, err, "decode")
	}

	d.index = make(map[int]int, len(d.Vertices))
	for i, v := range d.Vertices {
		if _, dup := d.index[v.ID]; dup {
			return nil, errors.New(errors.ErrCodeParse, "duplicate vertex id %d", v.ID)
		}
		d.index[v.ID] = i
	}
	for _, t := range d.Tris {
		for _, v := range t {
			if _, ok := d.index[v]; !ok {
				return nil, errors.New(errors.ErrCodeParse, "triangle %v: unknown vertex %d", t, v)
			}
		}
	}
	return &d, nil
}

// ImportJSON reads the JSON mesh file at path. It returns the same errors
// as [ReadJSON], plus FILE_NOT_FOUND when path does not exist.
func ImportJSON(path string) (*MeshDoc, error) {
	f, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadJSON(f)
}

func open(path string) (*os.File, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open %s", path)
	}
	return f, nil
}
