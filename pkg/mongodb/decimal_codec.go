package mongodb

import (
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// NewRegistry returns the default BSON registry extended so decimal.Decimal
// round-trips as Decimal128.
func NewRegistry() *bsoncodec.Registry {
	reg := bson.NewRegistry()
	reg.RegisterTypeEncoder(decimalType, bsoncodec.ValueEncoderFunc(encodeDecimal))
	reg.RegisterTypeDecoder(decimalType, bsoncodec.ValueDecoderFunc(decodeDecimal))
	return reg
}

func encodeDecimal(_ bsoncodec.EncodeContext, vw bsonrw.ValueWriter, val reflect.Value) error {
	if !val.IsValid() || val.Type() != decimalType {
		return bsoncodec.ValueEncoderError{Name: "DecimalEncodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}
	d := val.Interface().(decimal.Decimal)
	d128, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return fmt.Errorf("encode decimal %s: %w", d.String(), err)
	}
	return vw.WriteDecimal128(d128)
}

func decodeDecimal(_ bsoncodec.DecodeContext, vr bsonrw.ValueReader, val reflect.Value) error {
	if !val.CanSet() || val.Type() != decimalType {
		return bsoncodec.ValueDecoderError{Name: "DecimalDecodeValue", Types: []reflect.Type{decimalType}, Received: val}
	}

	var (
		d   decimal.Decimal
		err error
	)
	switch vr.Type() {
	case bsontype.Decimal128:
		var d128 primitive.Decimal128
		if d128, err = vr.ReadDecimal128(); err == nil {
			d, err = decimal.NewFromString(d128.String())
		}
	case bsontype.Double:
		var f float64
		if f, err = vr.ReadDouble(); err == nil {
			d = decimal.NewFromFloat(f)
		}
	case bsontype.Int32:
		var i int32
		if i, err = vr.ReadInt32(); err == nil {
			d = decimal.NewFromInt32(i)
		}
	case bsontype.Int64:
		var i int64
		if i, err = vr.ReadInt64(); err == nil {
			d = decimal.NewFromInt(i)
		}
	case bsontype.String:
		var s string
		if s, err = vr.ReadString(); err == nil {
			d, err = decimal.NewFromString(s)
		}
	case bsontype.Null:
		err = vr.ReadNull()
	default:
		return fmt.Errorf("cannot decode %v into decimal.Decimal", vr.Type())
	}
	if err != nil {
		return err
	}
	val.Set(reflect.ValueOf(d))
	return nil
}
