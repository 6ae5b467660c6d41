// Package initwfn implements functionality to wrap Gorgonia InitWFn
// so that they can be JSON serialized into configuraiton files.
//
// Unlike the Gorgonia initializers, which draw from the global RNG,
// the initializers in this package own a seeded RNG. Every call to
// the wrapped InitWFn advances that RNG, so two networks initialized
// in sequence from the same InitWFn get independent weights while a
// whole run stays reproducible.
package initwfn

import (
	"encoding/json"
	"fmt"
	"reflect"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Type describes different types of InitWFn that are available.
// Type is used to implement a basic type system of InitWFn's.
type Type string

// Available InitWFn types
const (
	HeU    Type = "HeU"
	HeN    Type = "HeN"
	Zeroes Type = "Zeroes"
)

// InitWFn wraps Gorgonia InitWFn so that they can be JSON marshalled and
// unmarshalled.
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// newInitWFn returns a new InitWFn
func newInitWFn(c Config) (*InitWFn, error) {
	init := InitWFn{Type: c.Type(), Config: c}
	init.initWFn = init.Config.Create()

	return &init, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements the fmt.Stringer interface
func (i *InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn: %v}", i.Type, i.Config)
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (i *InitWFn) UnmarshalJSON(data []byte) error {
	config, typeName, err := unmarshalConfig(
		data,
		"Type",
		"Config",
		map[string]reflect.Type{
			string(HeU):    reflect.TypeOf(HeUConfig{}),
			string(HeN):    reflect.TypeOf(HeNConfig{}),
			string(Zeroes): reflect.TypeOf(ZeroesConfig{}),
		})
	if err != nil {
		return err
	}

	i.Type = typeName
	i.Config = config
	i.initWFn = i.Config.Create()

	return nil
}

// unmarshalConfig uses reflection to unmarshall a Config into its
// concrete type. Both the Config and its Type are returned.
func unmarshalConfig(data []byte, typeJsonField, valueJsonField string,
	customTypes map[string]reflect.Type) (Config, Type, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	typeName, ok := m[typeJsonField].(string)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalConfig: missing field %v",
			typeJsonField)
	}
	ty, found := customTypes[typeName]
	if !found {
		return nil, "", fmt.Errorf("unmarshalConfig: no such InitWFn type %v",
			typeName)
	}
	value := reflect.New(ty).Interface().(Config)

	valueBytes, err := json.Marshal(m[valueJsonField])
	if err != nil {
		return nil, "", err
	}

	if err = json.Unmarshal(valueBytes, &value); err != nil {
		return nil, "", err
	}
	concreteValue := reflect.ValueOf(value).Elem().Interface().(Config)

	return concreteValue, Type(typeName), nil
}

// Config implements a Gorgonia InitWFn configuration and can be used to
// create the described Gorgonia InitWFn's.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the type of Gorgonia InitWFn that is returned
	Type() Type
}

// fanIn returns the number of inputs feeding each output unit of a
// weight tensor. Fully connected weights are laid out as (in, out) and
// convolution filters as (out, in, kernelH, kernelW).
func fanIn(s ...int) int {
	switch len(s) {
	case 0:
		return 1
	case 1:
		return s[0]
	case 2:
		return s[0]
	}

	fan := 1
	for _, dim := range s[1:] {
		fan *= dim
	}
	return fan
}

// asDtype converts backing data to the requested Gorgonia dtype
func asDtype(dt tensor.Dtype, data []float64) interface{} {
	switch dt {
	case tensor.Float64:
		return data
	case tensor.Float32:
		out := make([]float32, len(data))
		for i := range data {
			out[i] = float32(data[i])
		}
		return out
	}
	panic(fmt.Sprintf("initwfn: unsupported dtype %v", dt))
}
