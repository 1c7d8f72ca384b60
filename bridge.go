package engine

import (
	"fmt"
	"math"
	"reflect"
)

func mustFunc(goFuncPtr interface{}) reflect.Value {
	goFuncVal := reflect.ValueOf(goFuncPtr)
	if goFuncVal.Kind() != reflect.Func {
		panic("register invalid function")
	}
	return goFuncVal
}

// callGoFunc calls fn with args converted to its parameter types. Missing
// arguments are passed as zero values.
func callGoFunc(fn reflect.Value, args []interface{}) ([]interface{}, error) {
	fnType := fn.Type()
	in := make([]reflect.Value, fnType.NumIn())
	for i := range in {
		var arg interface{}
		if i < len(args) {
			arg = args[i]
		}
		v, err := convertArg(arg, fnType.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument #%d: %w", i+1, err)
		}
		in[i] = v
	}

	rets := fn.Call(in)
	results := make([]interface{}, 0, len(rets))
	for _, ret := range rets {
		results = append(results, ret.Interface())
	}
	return results, nil
}

func convertArg(arg interface{}, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if v.Kind() == reflect.Slice && t.Kind() == reflect.Slice {
		out := reflect.MakeSlice(t, v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			ev, err := convertArg(v.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	}
	if v.Type().ConvertibleTo(t) && (v.Kind() == t.Kind() || (isNumber(v.Kind()) && isNumber(t.Kind()))) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %T as %s", arg, t)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// toInt converts a numeric script value to an int, rejecting fractions.
func toInt(v interface{}) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("nil is not an integer")
	}
	rv := reflect.ValueOf(v)
	if !isNumber(rv.Kind()) {
		return 0, fmt.Errorf("%T is not an integer", v)
	}
	f := rv.Convert(reflect.TypeOf(float64(0))).Float()
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%v is not an integer", v)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("%v is out of the int32 range", v)
	}
	return int(f), nil
}
