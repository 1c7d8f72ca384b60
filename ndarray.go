package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// NdarrayModuleName is the module scripts import to build numeric arrays.
const NdarrayModuleName = "ndarray"

// Ndarray is a contiguous float64 array shared between Go and scripts.
// Indices are 0-based in every engine.
type Ndarray struct {
	data  []float64
	shape []int
}

func NewNdarray(n int) *Ndarray {
	if n < 0 {
		n = 0
	}
	return &Ndarray{data: make([]float64, n), shape: []int{n}}
}

// NdarrayFrom copies values into a new one-dimensional array.
func NdarrayFrom(values []float64) *Ndarray {
	a := NewNdarray(len(values))
	copy(a.data, values)
	return a
}

func (a *Ndarray) Len() int { return len(a.data) }

func (a *Ndarray) Shape() []int { return append([]int(nil), a.shape...) }

func (a *Ndarray) Get(i int) float64 {
	if i < 0 || i >= len(a.data) {
		panic(fmt.Sprintf("ndarray index %d out of range [0, %d)", i, len(a.data)))
	}
	return a.data[i]
}

func (a *Ndarray) Set(i int, v float64) {
	if i < 0 || i >= len(a.data) {
		panic(fmt.Sprintf("ndarray index %d out of range [0, %d)", i, len(a.data)))
	}
	a.data[i] = v
}

func (a *Ndarray) Fill(v float64) {
	for i := range a.data {
		a.data[i] = v
	}
}

func (a *Ndarray) Sum() float64 {
	var s float64
	for _, v := range a.data {
		s += v
	}
	return s
}

// Values returns a copy of the elements.
func (a *Ndarray) Values() []float64 {
	return append([]float64(nil), a.data...)
}

func ndarrayExports() map[string]interface{} {
	return map[string]interface{}{
		"zeros": func(n int) *Ndarray {
			return NewNdarray(n)
		},
		"full": func(n int, v float64) *Ndarray {
			a := NewNdarray(n)
			a.Fill(v)
			return a
		},
		"array": func(values []float64) *Ndarray {
			return NdarrayFrom(values)
		},
	}
}

// ImportNdarray registers the ndarray module in the live runtime. It must
// run before scripts build or read arrays, and runs once per runtime;
// later calls return immediately.
func ImportNdarray() error {
	ip := Instance()
	eng, err := ip.Engine()
	if err != nil {
		return bridgeError("cannot import ndarray", err)
	}
	if ip.ndarrayReady {
		return nil
	}
	if err := eng.RegisterModule(NdarrayModuleName, ndarrayExports()); err != nil {
		return bridgeError("cannot import ndarray", err)
	}
	ip.ndarrayReady = true
	Logger().Debug("ndarray module registered", zap.String("engine", ip.engineType))
	return nil
}
