package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	fieldA = Field{Name: "a", Type: TypeInteger, Mode: ModeNullable}
	fieldB = Field{Name: "b", Type: TypeString, Mode: ModeNullable}
	fieldC = Field{Name: "c", Type: TypeString, Mode: ModeNullable}
)

func TestReconcile_Permutation(t *testing.T) {
	data := Block{{int64(1), int64(2)}, {"x", "y"}}

	out, err := Reconcile(Schema{fieldA, fieldB}, data, Schema{fieldB, fieldA})
	require.NoError(t, err)
	assert.Equal(t, Block{{"x", "y"}, {int64(1), int64(2)}}, out)

	// the input block is left untouched
	assert.Equal(t, Block{{int64(1), int64(2)}, {"x", "y"}}, data)
}

func TestReconcile_SupersetPadsNulls(t *testing.T) {
	data := Block{{int64(1), int64(2)}, {"x", "y"}}

	out, err := Reconcile(Schema{fieldA, fieldB}, data, Schema{fieldA, fieldB, fieldC})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, Column{nil, nil}, out[2])
}

func TestReconcile_SupersetInsertedInMiddle(t *testing.T) {
	data := Block{{int64(1)}, {"x"}}

	out, err := Reconcile(Schema{fieldA, fieldB}, data, Schema{fieldB, fieldC, fieldA})
	require.NoError(t, err)
	assert.Equal(t, Block{{"x"}, {nil}, {int64(1)}}, out)
}

func TestReconcile_RemovalRejected(t *testing.T) {
	_, err := Reconcile(Schema{fieldA, fieldB}, Block{{}, {}}, Schema{fieldA})
	require.ErrorIs(t, err, ErrSchema)
	require.Contains(t, err.Error(), "schema field removed")
}

func TestReconcile_DuplicateNamesRejected(t *testing.T) {
	_, err := Reconcile(Schema{fieldA, fieldB}, Block{{}, {}}, Schema{fieldA, fieldA, fieldB})
	require.ErrorIs(t, err, ErrSchema)
}

func TestReconcile_ColumnCountMismatch(t *testing.T) {
	_, err := Reconcile(Schema{fieldA, fieldB}, Block{{}}, Schema{fieldB, fieldA})
	require.ErrorIs(t, err, ErrSchema)
}

func TestDiff(t *testing.T) {
	modified := Field{Name: "a", Type: TypeFloat, Mode: ModeNullable}
	changes := Diff(Schema{fieldA, fieldB}, Schema{fieldB, modified, fieldC})

	var actions []string
	for _, c := range changes {
		actions = append(actions, c.FieldName+":"+string(c.Action))
	}
	assert.Equal(t, []string{"b:MOVE", "a:MODIFY", "a:MOVE", "c:ADD"}, actions)

	assert.Empty(t, Diff(Schema{fieldA}, Schema{{Name: "a", Type: TypeInteger, Mode: ModeNullable, Description: "doc"}}))
	assert.Equal(t, ActionDrop, Diff(Schema{fieldA, fieldB}, Schema{fieldA})[0].Action)
}
