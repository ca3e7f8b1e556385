package pipeline

import (
	"bytes"

	"github.com/gagern/confoo/pkg/errors"
	cio "github.com/gagern/confoo/pkg/io"
)

// Parse reads an OBJ mesh. Empty input and meshes without faces are
// rejected, since there is nothing to flatten.
func Parse(data []byte) (*cio.ObjMesh, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "empty mesh")
	}
	m, err := cio.ReadOBJ(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if len(m.Faces) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidMesh, "mesh has no faces")
	}
	return m, nil
}
