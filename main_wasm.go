//go:build js && wasm

package main

import (
	"syscall/js"

	"bell/internal/compiler"
)

func main() {
	js.Global().Set("bellCompile", js.FuncOf(compile))
	js.Global().Set("bellWasmVersion", "0.1.0")
	println("bell WASM lowering core ready")
	<-make(chan struct{})
}

func compile(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return map[string]any{
			"success": false,
			"output":  "Invalid arguments: expected (tree: string, debug: bool)",
		}
	}

	result := compiler.Compile(&compiler.Options{
		Tree:      []byte(args[0].String()),
		Debug:     args[1].Bool(),
		LogFormat: compiler.HTML,
	})

	return map[string]any{
		"success": result.Success,
		"output":  result.Output,
		"listing": result.Listing,
	}
}
