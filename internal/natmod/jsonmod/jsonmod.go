// Package jsonmod is a native module bridging JSON text and the
// runtime's own Dictionary/Array/primitive value tree, exercising the
// §4.7 native-binding contract end to end the way a real embedder's
// native module would (SPEC_FULL.md's DOMAIN STACK: gjson + sjson).
package jsonmod

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/gopika/gopika/internal/gc"
	"github.com/gopika/gopika/internal/native"
	"github.com/gopika/gopika/internal/object"
	"github.com/gopika/gopika/internal/perror"
	"github.com/gopika/gopika/internal/strtable"
	"github.com/gopika/gopika/internal/value"
	"github.com/gopika/gopika/internal/vm"
)

// Types is the subset of an Engine this module needs to build Array
// and Dictionary values: the collector, the string interner, and the
// two built-in Types. Engine itself satisfies this, but depending on
// the narrow interface keeps this package from importing
// internal/engine (which would otherwise be a cycle, since
// engine.New wires jsonmod in as a built-in import).
type Types interface {
	Collector() *gc.Collector
	Interner() *strtable.Interner
	ArrayType() *object.Type
	DictionaryType() *object.Type
}

// New builds the "json" Package: a Decode(text) function that parses
// JSON into a Dictionary/Array/primitive tree, and an Encode(value)
// function that renders one back out. engine.WithJSONModule publishes
// the result in an Engine's import cache as "json"; an embedder can
// also return it from a Function given to Engine.RegisterImportFunction
// or from a native module's entry point.
func New(e Types) *object.Package {
	pkg := object.NewPackage(e.Collector(), nil, "json", nil)
	interner := e.Interner()

	native.StaticMethod(e.Collector(), interner, pkg, "Decode", 1,
		func(ctx *vm.Context, self value.Value, args []value.Value) ([]value.Value, error) {
			if len(args) != 1 {
				return nil, perror.New(perror.KindRuntime, "Decode expects one string argument")
			}
			s, ok := strtable.AsString(args[0])
			if !ok {
				return nil, perror.New(perror.KindType, "Decode expects a string argument")
			}
			if !gjson.Valid(s.String()) {
				return nil, perror.New(perror.KindSyntax, "invalid JSON text")
			}
			v := decode(e, gjson.Parse(s.String()))
			return []value.Value{v}, nil
		})

	native.StaticMethod(e.Collector(), interner, pkg, "Encode", 1,
		func(ctx *vm.Context, self value.Value, args []value.Value) ([]value.Value, error) {
			if len(args) != 1 {
				return nil, perror.New(perror.KindRuntime, "Encode expects one argument")
			}
			text, err := encode(args[0])
			if err != nil {
				return nil, err
			}
			return []value.Value{interner.GetString(text).Value()}, nil
		})

	return pkg
}

func decode(e Types, r gjson.Result) value.Value {
	switch r.Type {
	case gjson.Null:
		return value.NilValue
	case gjson.True:
		return value.BoolValue(true)
	case gjson.False:
		return value.BoolValue(false)
	case gjson.Number:
		if r.Num == float64(int64(r.Num)) {
			return value.IntValue(int64(r.Num))
		}
		return value.RealValue(r.Num)
	case gjson.String:
		return e.Interner().GetString(r.Str).Value()
	case gjson.JSON:
		if r.IsArray() {
			return decodeArray(e, r)
		}
		return decodeObject(e, r)
	default:
		return value.NilValue
	}
}

func decodeArray(e Types, r gjson.Result) value.Value {
	items := make([]value.Value, 0, len(r.Array()))
	r.ForEach(func(_, v gjson.Result) bool {
		items = append(items, decode(e, v))
		return true
	})
	return object.NewArray(e.Collector(), e.ArrayType(), items).Value()
}

func decodeObject(e Types, r gjson.Result) value.Value {
	d := strtable.NewDictionary(e.Collector())
	r.ForEach(func(k, v gjson.Result) bool {
		key := e.Interner().GetString(k.String()).Value()
		d.Table().Set(key, decode(e, v), 0)
		return true
	})
	return d.Value()
}

// encode renders v as a JSON document. Scalars are formatted directly;
// Arrays and Dictionaries are assembled by repeatedly splicing each
// element's own encoded JSON into a running document with
// sjson.SetRaw, the idiomatic sjson usage pattern for building a
// document up from its parts rather than from a struct.
func encode(v value.Value) (string, error) {
	switch v.Kind() {
	case value.Null:
		return "null", nil
	case value.Bool:
		if v.Bool() {
			return "true", nil
		}
		return "false", nil
	case value.Integer:
		return strconv.FormatInt(v.Int(), 10), nil
	case value.Real:
		return strconv.FormatFloat(v.Real(), 'g', -1, 64), nil
	case value.String:
		s, ok := strtable.AsString(v)
		if !ok {
			return "", perror.New(perror.KindType, "malformed string value")
		}
		return quoteJSONString(s.String()), nil
	case value.Object:
		switch r := v.Ref().(type) {
		case *object.Array:
			return encodeArray(r)
		case *strtable.Dictionary:
			return encodeDictionary(r)
		}
		return "", perror.New(perror.KindType, "Encode: unsupported object value")
	default:
		return "", perror.New(perror.KindType, "Encode: unsupported value kind")
	}
}

func encodeArray(a *object.Array) (string, error) {
	doc := "[]"
	for i, item := range a.Items() {
		raw, err := encode(item)
		if err != nil {
			return "", err
		}
		doc, err = sjson.SetRaw(doc, strconv.Itoa(i), raw)
		if err != nil {
			return "", perror.Wrap(perror.KindRuntime, err, "encoding array element %d", i)
		}
	}
	return doc, nil
}

func encodeDictionary(d *strtable.Dictionary) (string, error) {
	doc := "{}"
	for _, key := range d.Table().Keys() {
		s, ok := strtable.AsString(key)
		if !ok {
			return "", perror.New(perror.KindType, "Encode: Dictionary keys must be strings")
		}
		val, _, ok := d.Table().Get(key)
		if !ok {
			continue
		}
		raw, err := encode(val)
		if err != nil {
			return "", err
		}
		doc, err = sjson.SetRaw(doc, s.String(), raw)
		if err != nil {
			return "", perror.Wrap(perror.KindRuntime, err, "encoding key %q", s.String())
		}
	}
	return doc, nil
}

// quoteJSONString escapes s the way encoding/json would but without
// depending on it, since gjson/sjson expose no standalone scalar
// string-quoting helper: both packages operate on whole documents, not
// isolated values.
func quoteJSONString(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for _, r := range s {
		switch r {
		case '"':
			out = append(out, '\\', '"')
		case '\\':
			out = append(out, '\\', '\\')
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			if r < 0x20 {
				out = append(out, []byte(fmt.Sprintf("\\u%04x", r))...)
				continue
			}
			out = append(out, string(r)...)
		}
	}
	out = append(out, '"')
	return string(out)
}
