package saga

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	calls []string
}

func (r *recorder) step(name string, execErr, compErr error) Step {
	return Func(name,
		func(context.Context) error {
			r.calls = append(r.calls, "exec:"+name)
			return execErr
		},
		func(context.Context) error {
			r.calls = append(r.calls, "comp:"+name)
			return compErr
		},
	)
}

func TestRun_AllSucceed(t *testing.T) {
	rec := &recorder{}
	o := New(rec.step("a", nil, nil), rec.step("b", nil, nil))

	require.NoError(t, o.Run(context.Background()))
	assert.Equal(t, []string{"exec:a", "exec:b"}, rec.calls)
}

func TestRun_CompensatesInReverse(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{}
	o := New(
		rec.step("a", nil, nil),
		rec.step("b", nil, nil),
		rec.step("c", boom, nil),
		rec.step("d", nil, nil),
	)

	err := o.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c", "comp:b", "comp:a"}, rec.calls)
}

func TestRun_CompensationFailureIsReported(t *testing.T) {
	boom := errors.New("boom")
	stuck := errors.New("stuck")
	rec := &recorder{}
	o := New(
		rec.step("a", nil, nil),
		rec.step("b", nil, stuck),
		rec.step("c", boom, nil),
	)

	err := o.Run(context.Background())

	var cErr *CompensationError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "c", cErr.Step)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, map[string]error{"b": stuck}, cErr.Failures)
	assert.Equal(t, []string{"exec:a", "exec:b", "exec:c", "comp:b", "comp:a"}, rec.calls)
}

func TestRun_CompensationIgnoresCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var compCtxErr error
	o := New(
		Func("reserve", func(context.Context) error { return nil }, func(ctx context.Context) error {
			compCtxErr = ctx.Err()
			return nil
		}),
		Func("fail", func(context.Context) error {
			cancel()
			return context.Canceled
		}, nil),
	)

	err := o.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, compCtxErr)
}
