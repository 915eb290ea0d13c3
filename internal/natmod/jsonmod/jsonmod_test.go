package jsonmod_test

import (
	"testing"

	"github.com/gopika/gopika/internal/engine"
	"github.com/gopika/gopika/internal/natmod/jsonmod"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
)

func callStatic(t *testing.T, e *engine.Engine, pkg *object.Package, name string, args []value.Value) []value.Value {
	t.Helper()
	v, _, ok := pkg.Slots().Get(e.Interner().GetString(name).Value())
	if !ok {
		t.Fatalf("expected %s to be installed on the json Package", name)
	}
	fn, ok := vm.FunctionFromValue(v)
	if !ok {
		t.Fatalf("expected %s to be a Function value", name)
	}
	results, err := e.NewContext().Call(fn, args, 1)
	if err != nil {
		t.Fatalf("%s call failed: %v", name, err)
	}
	return results
}

func TestDecodeBuildsDictionaryAndArrayTree(t *testing.T) {
	e := engine.New()
	pkg := jsonmod.New(e)

	text := e.Interner().GetString(`{"name":"ada","tags":["x","y"],"age":36,"active":true,"note":null}`).Value()
	results := callStatic(t, e, pkg, "Decode", []value.Value{text})
	if len(results) != 1 {
		t.Fatalf("expected one result")
	}

	d, ok := strtable.DictionaryFromValue(results[0])
	if !ok {
		t.Fatalf("expected Decode to return a Dictionary")
	}

	nameVal, _, ok := d.Table().Get(e.Interner().GetString("name").Value())
	if !ok {
		t.Fatalf("expected a name key")
	}
	nameStr, ok := strtable.AsString(nameVal)
	if !ok || nameStr.String() != "ada" {
		t.Fatalf("expected name = ada, got %+v", nameVal)
	}

	tagsVal, _, ok := d.Table().Get(e.Interner().GetString("tags").Value())
	if !ok {
		t.Fatalf("expected a tags key")
	}
	arr, ok := object.ArrayFromValue(tagsVal)
	if !ok || arr.Len() != 2 {
		t.Fatalf("expected a 2-element array for tags, got %+v", tagsVal)
	}

	ageVal, _, _ := d.Table().Get(e.Interner().GetString("age").Value())
	if ageVal.Int() != 36 {
		t.Fatalf("expected age = 36, got %v", ageVal)
	}

	activeVal, _, _ := d.Table().Get(e.Interner().GetString("active").Value())
	if !activeVal.Bool() {
		t.Fatalf("expected active = true")
	}

	noteVal, _, _ := d.Table().Get(e.Interner().GetString("note").Value())
	if !noteVal.IsNull() {
		t.Fatalf("expected note = null")
	}
}

func TestEncodeRoundTripsThroughDecode(t *testing.T) {
	e := engine.New()
	pkg := jsonmod.New(e)

	arr := object.NewArray(e.Collector(), e.ArrayType(), []value.Value{
		value.IntValue(1), value.IntValue(2), e.Interner().GetString("three").Value(),
	})

	encoded := callStatic(t, e, pkg, "Encode", []value.Value{arr.Value()})
	encStr, ok := strtable.AsString(encoded[0])
	if !ok {
		t.Fatalf("expected Encode to return a string")
	}

	decoded := callStatic(t, e, pkg, "Decode", []value.Value{encStr.Value()})
	roundTripped, ok := object.ArrayFromValue(decoded[0])
	if !ok || roundTripped.Len() != 3 {
		t.Fatalf("expected a round-tripped 3-element array, got %+v", decoded[0])
	}
	if v0, _ := roundTripped.Get(0); v0.Int() != 1 {
		t.Fatalf("expected element 0 = 1, got %v", v0)
	}
}
