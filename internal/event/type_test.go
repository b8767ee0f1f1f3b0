package event

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type plainEvent struct {
	ID     int
	Name   string
	Amount float64
	Tags   [3]string
}

type stampedEvent struct {
	At time.Time
}

type batchEvent struct {
	Items []int
}

type clonedBatch struct {
	Items []int
	Index map[string]int
}

func (b clonedBatch) Clone() clonedBatch {
	out := clonedBatch{
		Items: append([]int(nil), b.Items...),
		Index: make(map[string]int, len(b.Index)),
	}
	for k, v := range b.Index {
		out.Index[k] = v
	}
	return out
}

type callbackEvent struct {
	Done func()
}

type wrongClone struct {
	Items []int
}

func (w wrongClone) Clone() *wrongClone { return &w }

type nestedChan struct {
	Inner struct {
		C chan int
	}
}

func TestTypeOf(t *testing.T) {
	a := TypeOf[plainEvent]()
	b := TypeOf[plainEvent]()
	c := TypeOf[batchEvent]()

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "event.plainEvent", a.String())
	assert.Equal(t, reflect.TypeFor[plainEvent](), a.Reflect())
	assert.False(t, a.IsZero())
	assert.True(t, Type{}.IsZero())
	assert.Equal(t, "<nil>", Type{}.String())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		rt      reflect.Type
		wantErr bool
	}{
		{"plain struct", reflect.TypeFor[plainEvent](), false},
		{"empty struct", reflect.TypeFor[struct{}](), false},
		{"int", reflect.TypeFor[int](), false},
		{"time field", reflect.TypeFor[stampedEvent](), false},
		{"slice with clone", reflect.TypeFor[clonedBatch](), false},
		{"pointer", reflect.TypeFor[*plainEvent](), true},
		{"interface", reflect.TypeFor[error](), true},
		{"func", reflect.TypeFor[func()](), true},
		{"chan", reflect.TypeFor[chan int](), true},
		{"slice without clone", reflect.TypeFor[batchEvent](), true},
		{"func field", reflect.TypeFor[callbackEvent](), true},
		{"clone with wrong signature", reflect.TypeFor[wrongClone](), true},
		{"nested chan", reflect.TypeFor[nestedChan](), true},
		{"nil", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rt)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidType)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestClone(t *testing.T) {
	orig := clonedBatch{Items: []int{1, 2}, Index: map[string]int{"a": 1}}

	cp := Clone(orig)
	cp.Items[0] = 99
	cp.Index["a"] = 99

	assert.Equal(t, 1, orig.Items[0])
	assert.Equal(t, 1, orig.Index["a"])

	p := plainEvent{ID: 7}
	assert.Equal(t, p, Clone(p))
}
