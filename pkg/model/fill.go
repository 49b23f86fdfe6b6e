package model

import (
	"errors"
	"fmt"
	"reflect"

	"src.frand.dev/pkg/prop"
	"src.frand.dev/pkg/strutil"
)

// Fill sets the fields of the struct pointed to by dst to handles from h.
//
// Each exported struct field is matched with the model field named by its
// `prop` tag, or by its name converted to snake case; the tag "-" skips the
// field. The struct field type chooses the handle: *prop.Property[T],
// *prop.Sender[T] and *prop.Receiver[T] for scalars, slices of them for
// arrays, and a pointer to a struct, or a slice of pointers to structs, for
// nested models, filled recursively.
func Fill(h Handles, dst any) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("fill: need pointer to struct, got %T", dst)
	}
	return fill(h, v.Elem())
}

var roles = []role{roleSender, roleReceiver, roleProperty}

func fill(h Handles, v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := sf.Tag.Get("prop")
		switch name {
		case "-":
			continue
		case "":
			name = strutil.CamelToSnake(sf.Name)
		}
		if err := fillField(h, name, v.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func fillField(h Handles, name string, fv reflect.Value) error {
	ft := fv.Type()
	switch {
	case isStructPtr(ft):
		subs, err := h.nested(name)
		if err != nil {
			return err
		}
		if len(subs) != 1 {
			return shapeError(h, name, fmt.Sprintf("%d nested instances, want 1", len(subs)))
		}
		p := reflect.New(ft.Elem())
		if err := fill(subs[0], p.Elem()); err != nil {
			return err
		}
		fv.Set(p)
		return nil
	case ft.Kind() == reflect.Slice && isStructPtr(ft.Elem()):
		subs, err := h.nested(name)
		if err != nil {
			return err
		}
		s := reflect.MakeSlice(ft, len(subs), len(subs))
		for i, sub := range subs {
			p := reflect.New(ft.Elem().Elem())
			if err := fill(sub, p.Elem()); err != nil {
				return err
			}
			s.Index(i).Set(p)
		}
		fv.Set(s)
		return nil
	case ft.Kind() == reflect.Slice:
		for _, r := range roles {
			hs, err := h.handleList(name, r)
			if err == nil && len(hs) == 0 {
				fv.Set(reflect.MakeSlice(ft, 0, 0))
				return nil
			}
			if err != nil || !reflect.TypeOf(hs[0]).AssignableTo(ft.Elem()) {
				continue
			}
			s := reflect.MakeSlice(ft, len(hs), len(hs))
			for i, x := range hs {
				s.Index(i).Set(reflect.ValueOf(x))
			}
			fv.Set(s)
			return nil
		}
		if _, err := h.handleList(name, roleSender); err != nil && !isWrongType(err) {
			return err
		}
	default:
		for _, r := range roles {
			x, err := h.handle(name, r)
			if err == nil && reflect.TypeOf(x).AssignableTo(ft) {
				fv.Set(reflect.ValueOf(x))
				return nil
			}
		}
		if _, err := h.handle(name, roleSender); err != nil && !isWrongType(err) {
			return err
		}
	}
	return shapeError(h, name, fmt.Sprintf("cannot fill %s", ft))
}

func isStructPtr(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct &&
		!isPropType(t)
}

// Reports whether t is a pointer to one of the handle types of package prop.
func isPropType(t reflect.Type) bool {
	return t.Elem().PkgPath() == propPkgPath
}

var propPkgPath = reflect.TypeOf(prop.Task{}).PkgPath()

func isWrongType(err error) bool { return errors.Is(err, ErrWrongType) }
