package conformal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gagern/confoo/pkg/errors"
)

func TestTaskWait(t *testing.T) {
	c, err := New(square())
	require.NoError(t, err)
	require.NoError(t, c.FixedBoundaryCurvature(map[int]float64{1: deg(90), 2: deg(90), 3: deg(90), 4: deg(90)}))

	task := c.Start(context.Background())
	<-task.Done()
	r, err := task.Wait()
	require.NoError(t, err)
	assertConsistentLayout(t, r)

	_, err = c.Start(context.Background()).Wait()
	assert.True(t, errors.Is(err, errors.ErrCodeMisuse))
}

func TestCallDrainsErrors(t *testing.T) {
	c, err := New(rightTriangle())
	require.NoError(t, err)

	assert.Nil(t, c.Call(context.Background()))
	assert.Nil(t, c.Call(context.Background()), "undrained error blocks the next call")
	err = c.Err()
	assert.True(t, errors.Is(err, errors.ErrCodeMisuse))
	assert.Contains(t, err.Error(), "not collected")
	assert.NoError(t, c.Err())

	ok, err := New(rightTriangle())
	require.NoError(t, err)
	ok.IsometricBoundaryCondition()
	assert.NotNil(t, ok.Call(context.Background()))
	assert.NoError(t, ok.Err())
}
