package onnxfront_test

import (
	"testing"

	"github.com/hidet-go/hidet/onnxfront"
	"github.com/stretchr/testify/require"
)

type gemmLikeAttrs struct {
	Alpha float64 `mapstructure:"alpha"`
	Beta  float64 `mapstructure:"beta"`
	Axes  []int64 `mapstructure:"axes"`
}

func TestDecodeFillsMatchingFields(t *testing.T) {
	attrs := map[string]onnxfront.Attribute{
		"alpha": {Kind: onnxfront.AttrFloat, Float: 2.0},
		"beta":  {Kind: onnxfront.AttrFloat, Float: 0.5},
		"axes":  {Kind: onnxfront.AttrInts, Ints: []int64{0, 1}},
	}

	var out gemmLikeAttrs
	require.NoError(t, onnxfront.Decode(attrs, &out))
	require.Equal(t, 2.0, out.Alpha)
	require.Equal(t, 0.5, out.Beta)
	require.Equal(t, []int64{0, 1}, out.Axes)
}

func TestDecodeLeavesUnsetFieldsAtZeroValue(t *testing.T) {
	attrs := map[string]onnxfront.Attribute{
		"alpha": {Kind: onnxfront.AttrFloat, Float: 3.0},
	}
	var out gemmLikeAttrs
	require.NoError(t, onnxfront.Decode(attrs, &out))
	require.Equal(t, 3.0, out.Alpha)
	require.Zero(t, out.Beta)
	require.Nil(t, out.Axes)
}

func TestDecodeIgnoresUnknownAttributeNames(t *testing.T) {
	attrs := map[string]onnxfront.Attribute{
		"alpha":   {Kind: onnxfront.AttrFloat, Float: 1.0},
		"unknown": {Kind: onnxfront.AttrString, Str: "ignored"},
	}
	var out gemmLikeAttrs
	require.NoError(t, onnxfront.Decode(attrs, &out))
	require.Equal(t, 1.0, out.Alpha)
}
