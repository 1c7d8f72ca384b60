package engine

import (
	"errors"
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestNdarray(t *testing.T) {
	a := NdarrayFrom([]float64{1, 2, 3})
	if a.Len() != 3 || a.Sum() != 6 {
		t.Fatalf("Len = %d, Sum = %v", a.Len(), a.Sum())
	}
	a.Set(0, 10)
	if a.Get(0) != 10 {
		t.Fatalf("Get(0) = %v", a.Get(0))
	}
	a.Fill(0.5)
	if a.Sum() != 1.5 {
		t.Fatalf("Sum after Fill = %v", a.Sum())
	}
	if shape := a.Shape(); len(shape) != 1 || shape[0] != 3 {
		t.Fatalf("Shape = %v", shape)
	}

	values := a.Values()
	values[0] = 99
	if a.Get(0) == 99 {
		t.Fatal("Values shares storage with the array")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Get out of range did not panic")
		}
	}()
	a.Get(3)
}

func TestImportNdarrayRequiresRuntime(t *testing.T) {
	Instance().Finalize()
	err := ImportNdarray()
	if !errors.Is(err, ErrRuntimeBridge) {
		t.Fatalf("ImportNdarray error = %v, want ErrRuntimeBridge", err)
	}
	if !strings.Contains(err.Error(), "cannot import ndarray") {
		t.Fatalf("error message = %q", err.Error())
	}
}

func TestImportNdarrayLua(t *testing.T) {
	ip, _, _ := startInterpreter(t, TypeEngineLua, luaTree())

	if err := ImportNdarray(); err != nil {
		t.Fatal(err)
	}
	if err := ImportNdarray(); err != nil {
		t.Fatalf("second ImportNdarray: %v", err)
	}

	eng := mustEngine(t, ip)
	err := eng.ParseString(`
local nd = require("ndarray")
local a = nd.zeros(3)
a:Set(1, 2.5)
assert(a:Len() == 3, "len")
assert(a:Sum() == 2.5, "sum")
result = nd.array({1, 2, 3})
assert(nd.full(2, 1.5):Sum() == 3, "full")
`)
	if err != nil {
		t.Fatal(err)
	}

	ud, ok := eng.(*LuaEngine).GetVM().GetGlobal("result").(*lua.LUserData)
	if !ok {
		t.Fatal("result is not userdata")
	}
	arr, ok := ud.Value.(*Ndarray)
	if !ok {
		t.Fatalf("result holds %T", ud.Value)
	}
	if arr.Sum() != 6 {
		t.Fatalf("Sum = %v, want 6", arr.Sum())
	}
}

func TestImportNdarrayAfterReinitialize(t *testing.T) {
	ip, _, _ := startInterpreter(t, TypeEngineLua, luaTree())
	if err := ImportNdarray(); err != nil {
		t.Fatal(err)
	}

	ip.Finalize()
	if err := ip.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := mustEngine(t, ip).Import(NdarrayModuleName); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("ndarray present before bootstrap: %v", err)
	}
	if err := ImportNdarray(); err != nil {
		t.Fatal(err)
	}
	if err := mustEngine(t, ip).Import(NdarrayModuleName); err != nil {
		t.Fatal(err)
	}
}

func TestImportNdarrayJs(t *testing.T) {
	ip, _, _ := startInterpreter(t, TypeEngineJs, jsTree())

	if err := ImportNdarray(); err != nil {
		t.Fatal(err)
	}
	eng := mustEngine(t, ip)
	if err := eng.ParseString("function sumFull() { return require('ndarray').full(2, 1.5).Sum(); }"); err != nil {
		t.Fatal(err)
	}
	rets, err := eng.Call("sumFull", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := toInt(rets[0]); err != nil || got != 3 {
		t.Fatalf("sum = %v (%v), want 3", rets[0], err)
	}
}
