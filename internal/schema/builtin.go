package schema

import (
	"embed"
	"path"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

func init() {
	for _, def := range Builtin() {
		Register(def)
	}
}

// Builtin returns the definitions shipped with the binary.
func Builtin() []Definition {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		panic(err)
	}

	defs := make([]Definition, 0, len(entries))
	for _, e := range entries {
		data, err := builtinFS.ReadFile(path.Join("builtin", e.Name()))
		if err != nil {
			panic(err)
		}
		def, err := Parse(data)
		if err != nil {
			panic("builtin definition " + e.Name() + ": " + err.Error())
		}
		defs = append(defs, def)
	}
	return defs
}
