package component

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func rawKind(name string, tag string) Kind {
	return Kind{
		Name:        name,
		Serialize:   func(any) (json.RawMessage, error) { return json.RawMessage(`"` + tag + `"`), nil },
		Deserialize: func(json.RawMessage) (any, error) { return tag, nil },
		Default:     func() any { return tag },
	}
}

func TestRegistryRegister(t *testing.T) {
	tests := []struct {
		name    string
		kinds   []Kind
		wantErr error
	}{
		{name: "single", kinds: []Kind{rawKind("a", "first")}},
		{name: "distinct names", kinds: []Kind{rawKind("a", "first"), rawKind("b", "second")}},
		{name: "duplicate name", kinds: []Kind{rawKind("a", "first"), rawKind("a", "second")}, wantErr: ErrDuplicateRegistration},
		{name: "empty name", kinds: []Kind{rawKind("", "x")}, wantErr: ErrInvalidKind},
		{name: "missing functions", kinds: []Kind{{Name: "a"}}, wantErr: ErrInvalidKind},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry()
			var err error
			for _, k := range tc.kinds {
				if err = r.Register(k); err != nil {
					break
				}
			}
			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, eris.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tc.kinds), r.Len())
		})
	}
}

func TestDuplicateKeepsFirstDescriptor(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(rawKind("a", "first")))
	require.Error(t, r.Register(rawKind("a", "second")))

	k, err := r.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "first", k.Default())
	assert.Equal(t, []string{"a"}, r.Names())
}

func TestRegistryLookupAndSeal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(rawKind("a", "1")))
	require.NoError(t, r.Register(rawKind("b", "2")))

	_, err := r.Get("missing")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.True(t, r.Has("b"))
	assert.Equal(t, 1, r.Order("b"))
	assert.Equal(t, -1, r.Order("missing"))

	r.Seal()
	assert.True(t, r.Sealed())
	err = r.Register(rawKind("c", "3"))
	assert.True(t, eris.Is(err, ErrSealed))
	assert.False(t, r.Has("c"))
}

func TestTypedRegister(t *testing.T) {
	r := NewRegistry()
	h, err := Register(r, "Position", func() position { return position{X: 1} })
	require.NoError(t, err)
	assert.True(t, h.Valid())
	assert.Equal(t, "Position", h.Name())

	k, err := r.Get("Position")
	require.NoError(t, err)

	def, err := As[position](k.Default())
	require.NoError(t, err)
	assert.Equal(t, position{X: 1}, *def)

	data, err := k.Deserialize(json.RawMessage(`{"y":4}`))
	require.NoError(t, err)
	got, err := As[position](data)
	require.NoError(t, err)
	assert.Equal(t, position{X: 1, Y: 4}, *got, "missing fields keep the default")

	raw, err := k.Serialize(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1,"y":4}`, string(raw))

	_, err = k.Serialize("not a position")
	assert.True(t, eris.Is(err, ErrInvalidKind))

	_, err = k.Deserialize(json.RawMessage(`[1,2]`))
	assert.Error(t, err)

	_, err = Register(r, "Position", func() position { return position{} })
	assert.True(t, eris.Is(err, ErrDuplicateRegistration))
}
