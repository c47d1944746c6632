package script

import (
	lua "github.com/yuin/gopher-lua"
)

// Builder table fields.
const (
	fieldName             = "name"
	fieldTimeLimit        = "timelimit"
	fieldImageNames       = "imagenames"
	fieldCustomAnimations = "customanimations"
	fieldComponents       = "components"
	fieldTypeID           = "type_id"
	fieldProps            = "props"

	builderTypeName = "matrixclock.builder"
)

// registerBuilder installs the ModuleBuilder global. Its methods, one per
// registered component type, never modify the receiver: each returns a copy
// with one more entry appended to its components list, so aliased
// intermediate builders stay valid.
func registerBuilder(L *lua.LState) {
	methods := L.NewTable()
	for _, typeID := range TypeIDs() {
		methods.RawSetString(typeID, L.NewFunction(appendComponent(typeID)))
	}
	mt := L.NewTypeMetatable(builderTypeName)
	mt.RawSetString("__index", methods)

	mb := L.NewTable()
	mb.RawSetString("new", L.NewFunction(func(L *lua.LState) int {
		b := L.NewTable()
		b.RawSetString(fieldName, L.Get(1))
		b.RawSetString(fieldTimeLimit, L.Get(2))
		b.RawSetString(fieldImageNames, L.Get(3))
		b.RawSetString(fieldCustomAnimations, L.Get(4))
		b.RawSetString(fieldComponents, L.NewTable())
		L.SetMetatable(b, mt)
		L.Push(b)
		return 1
	}))
	L.SetGlobal("ModuleBuilder", mb)
}

// appendComponent returns the builder method for typeID. Arguments after the
// receiver are stored positionally in props, with n holding the count so
// trailing or interior nils survive.
func appendComponent(typeID string) lua.LGFunction {
	return func(L *lua.LState) int {
		self := L.CheckTable(1)

		next := L.NewTable()
		self.ForEach(func(k, v lua.LValue) {
			next.RawSet(k, v)
		})

		comps := L.NewTable()
		if old, ok := self.RawGetString(fieldComponents).(*lua.LTable); ok {
			for i := 1; i <= old.Len(); i++ {
				comps.Append(old.RawGetInt(i))
			}
		}

		n := L.GetTop() - 1
		props := L.NewTable()
		for i := 1; i <= n; i++ {
			props.RawSetInt(i, L.Get(i+1))
		}
		props.RawSetString("n", lua.LNumber(n))

		entry := L.NewTable()
		entry.RawSetString(fieldTypeID, lua.LString(typeID))
		entry.RawSetString(fieldProps, props)
		comps.Append(entry)

		next.RawSetString(fieldComponents, comps)
		L.SetMetatable(next, L.GetMetatable(self))
		L.Push(next)
		return 1
	}
}
