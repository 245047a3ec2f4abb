package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	generator "csb/data-generator"
)

func TestGeneratorValidator(t *testing.T) {
	values := generator.ByteArrayGenerator{Size: 16}
	v := GeneratorValidator{Generator: values}

	require.NoError(t, v.Validate(7, values.Generate(7)))

	err := v.Validate(7, values.Generate(7)[:8])
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, -1, verr.Index)

	corrupted := values.Generate(7)
	corrupted[5] ^= 0xff
	err = v.Validate(7, corrupted)
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, 5, verr.Index)
	assert.EqualValues(t, 7, verr.Seed)
}

func TestParseValidationMode(t *testing.T) {
	for _, m := range []ValidationMode{ValidationNone, ValidationUpdate, ValidationStrict} {
		got, err := ParseValidationMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseValidationMode("lenient")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func readOnly(t *testing.T, s *countingStore, mode ValidationMode, n int64) *Accessor {
	cfg, err := NewConfig().
		Store(s).
		Ratio(OpGet, 1).
		Validation(mode).
		Termination(IterationCount(n)).
		Build()
	require.NoError(t, err)
	acc, err := NewAccessor(cfg)
	require.NoError(t, err)
	return acc
}

func TestStrictValidationFailsOnMissingValue(t *testing.T) {
	s := newCountingStore("kv")
	err := readOnly(t, s, ValidationStrict, 10).Run(context.Background())

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.EqualValues(t, 0, verr.Seed)
	assert.Equal(t, "key-0", verr.Key)
	assert.Equal(t, 1, s.Calls("get"))
}

func TestStrictValidationDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore("kv")
	require.NoError(t, s.Store.Put(ctx, "key-0", []byte("garbage")))

	err := readOnly(t, s, ValidationStrict, 1).Run(ctx)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "key-0", verr.Key)
}

func TestUpdateValidationWritesBack(t *testing.T) {
	ctx := context.Background()
	s := newCountingStore("kv")
	require.NoError(t, readOnly(t, s, ValidationUpdate, 5).Run(ctx))

	assert.Equal(t, 5, s.Calls("get"))
	assert.Equal(t, 5, s.Calls("put"))
	v, err := s.Get(ctx, "key-3")
	require.NoError(t, err)
	assert.Equal(t, generator.ByteArrayGenerator{Size: 128}.Generate(3), v)
}
