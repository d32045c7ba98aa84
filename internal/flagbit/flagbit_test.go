package flagbit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

const stateMask = 0xff

func jobState() Set {
	return Set{
		EqualFlag("PENDING", 0, stateMask),
		EqualFlag("RUNNING", 1, stateMask),
		EqualFlag("COMPLETED", 3, stateMask),
		BitFlag("REQUEUED", 0x400),
		BitFlag("COMPLETING", 0x8000),
		BitFlag("UPDATE_DB", 0x10000).Hide(),
	}
}

func TestSet_Names(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		in   uint64
		want []string
	}{
		{name: "zero is the zero valued state", in: 0, want: []string{"PENDING"}},
		{name: "equal then bit", in: 1 | 0x8000, want: []string{"RUNNING", "COMPLETING"}},
		{name: "hidden bits are not reported", in: 3 | 0x10000, want: []string{"COMPLETED"}},
		{name: "unnamed state", in: 0x42, want: nil},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, jobState().Names(tc.in))
		})
	}
}

func TestSet_Names_FirstEqualPerMaskWins(t *testing.T) {
	t.Parallel()
	s := Set{
		EqualFlag("OFF", 0, 0x3),
		EqualFlag("NONE", 0, 0x3),
		EqualFlag("LOW", 0, 0xc),
	}

	assert.Equal(t, []string{"OFF", "LOW"}, s.Names(0))
}

func TestSet_Value(t *testing.T) {
	t.Parallel()
	s := jobState()

	v, err := s.Value([]string{"running", " Completing", "update_db"})
	require.NoError(t, err)
	assert.Equal(t, uint64(1|0x8000|0x10000), v)

	v, err = s.Value(nil)
	require.NoError(t, err)
	assert.Zero(t, v)
}

func TestSet_Value_OrderIndependent(t *testing.T) {
	t.Parallel()
	// A bit that lives inside the mask of an exclusive state.
	s := Set{
		EqualFlag("IDLE", 0, 0x0f),
		EqualFlag("BUSY", 1, 0x0f),
		BitFlag("DRAIN", 0x02),
		BitFlag("FAIL", 0x100),
	}
	testCases := []struct {
		name  string
		names []string
	}{
		{name: "state first", names: []string{"BUSY", "DRAIN", "FAIL"}},
		{name: "state last", names: []string{"DRAIN", "FAIL", "BUSY"}},
		{name: "state between", names: []string{"FAIL", "BUSY", "DRAIN"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			// Act
			v, err := s.Value(tc.names)

			// Assert
			require.NoError(t, err)
			assert.Equal(t, uint64(0x01|0x02|0x100), v)
		})
	}
}

func TestSet_Value_Errors(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name  string
		names []string
		err   error
	}{
		{name: "unknown flag", names: []string{"RUNNING", "EXPLODED"}, err: ErrUnknownFlag},
		{name: "duplicate name", names: []string{"REQUEUED", "requeued"}, err: ErrConflictingFlags},
		{name: "two states of one field", names: []string{"RUNNING", "COMPLETED"}, err: ErrConflictingFlags},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := jobState().Value(tc.names)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestSet_DumpParseIsStable(t *testing.T) {
	t.Parallel()
	s := jobState()
	for _, in := range []uint64{0, 1, 3 | 0x400, 1 | 0x400 | 0x8000} {
		// Arrange
		first := s.Dump(in)

		// Act
		parsed, err := s.Parse(first)
		require.NoError(t, err)
		second := s.Dump(parsed)

		// Assert
		assert.True(t, first.RawEquals(second), "dump(%#x) = %#v, after parse %#v", in, first, second)
	}
}

func TestSet_Parse_Inputs(t *testing.T) {
	t.Parallel()
	s := jobState()

	v, err := s.Parse(cty.StringVal("RUNNING,REQUEUED"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1|0x400), v)

	v, err = s.Parse(cty.SetVal([]cty.Value{cty.StringVal("COMPLETING")}))
	require.NoError(t, err)
	assert.Equal(t, uint64(0x8000), v)

	v, err = s.Parse(cty.NullVal(cty.List(cty.String)))
	require.NoError(t, err)
	assert.Zero(t, v)

	_, err = s.Parse(cty.True)
	require.Error(t, err)

	_, err = s.Parse(cty.TupleVal([]cty.Value{cty.NullVal(cty.String)}))
	require.Error(t, err)
}

func TestSet_Dump_Empty(t *testing.T) {
	t.Parallel()
	s := Set{BitFlag("A", 1)}

	assert.True(t, s.Dump(0).RawEquals(cty.EmptyTupleVal))
}

func TestSet_Validate(t *testing.T) {
	t.Parallel()
	require.NoError(t, jobState().Validate(32))

	testCases := []struct {
		name    string
		set     Set
		bits    int
		wantErr string
	}{
		{name: "empty flag array", set: Set{}, bits: 8, wantErr: "no entries"},
		{name: "zero bit flag", set: Set{BitFlag("A", 0)}, bits: 8, wantErr: "has no bits"},
		{name: "bit outside mask", set: Set{{Kind: Bit, Name: "A", Value: 3, Mask: 1}}, bits: 8, wantErr: "outside its mask"},
		{name: "equal outside mask", set: Set{EqualFlag("A", 4, 3)}, bits: 8, wantErr: "outside its mask"},
		{name: "equal after bit", set: Set{BitFlag("A", 1), EqualFlag("B", 0, 1)}, bits: 8, wantErr: "must be declared before"},
		{name: "duplicate names", set: Set{BitFlag("A", 1), BitFlag("a", 2)}, bits: 8, wantErr: "duplicates"},
		{name: "does not fit", set: Set{BitFlag("A", 1 << 9)}, bits: 8, wantErr: "does not fit in 8 bits"},
		{name: "no name", set: Set{BitFlag("", 1)}, bits: 8, wantErr: "has no name"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.set.Validate(tc.bits)
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
