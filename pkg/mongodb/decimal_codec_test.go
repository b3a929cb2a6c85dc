package mongodb

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type priced struct {
	Premium decimal.Decimal  `bson:"premium"`
	Cap     *decimal.Decimal `bson:"cap,omitempty"`
}

func TestDecimalCodec_StoresDecimal128(t *testing.T) {
	reg := NewRegistry()
	capValue := decimal.RequireFromString("250000.50")

	raw, err := bson.MarshalWithRegistry(reg, priced{Premium: decimal.RequireFromString("499.99"), Cap: &capValue})
	require.NoError(t, err)

	var doc bson.M
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.IsType(t, primitive.Decimal128{}, doc["premium"])

	var back priced
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &back))
	assert.True(t, back.Premium.Equal(decimal.RequireFromString("499.99")))
	require.NotNil(t, back.Cap)
	assert.True(t, back.Cap.Equal(capValue))
}

func TestDecimalCodec_ReadsLegacyNumbers(t *testing.T) {
	reg := NewRegistry()

	for _, v := range []interface{}{int32(500), int64(500), float64(500), "500"} {
		raw, err := bson.Marshal(bson.M{"premium": v})
		require.NoError(t, err)

		var out priced
		require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &out))
		assert.True(t, out.Premium.Equal(decimal.NewFromInt(500)), "%T", v)
	}
}
