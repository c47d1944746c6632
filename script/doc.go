// Package script builds clock modules and configuration from Lua scripts.
//
// Module scripts return a builder table assembled with ModuleBuilder:
//
//	local red = Color(255, 0, 0)
//	return ModuleBuilder.new("hello", 10, {}, {})
//		:tile(Pos(5, 5), red)
//		:text(Pos(0, 12), "hello", Fonts.Font5x7, red)
//
// Each builder method returns a new table, so intermediate builders can be
// shared. A config script defines get_config, returning
// {brightness = 0..100, modules = {...}, config = {...}}.
//
// Every load runs in a fresh interpreter with only the base, table, string and
// math libraries and a bounded execution time. Strings kept by the resulting
// components are copied through the runtime's [Arena], which is reset when the
// next module loads.
package script
