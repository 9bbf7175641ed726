//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"syscall/js"

	"github.com/speakeasy-api/schemafaker"
	"github.com/speakeasy-api/schemafaker/pkg/playground"
	"github.com/speakeasy-api/schemafaker/pkg/render"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

// GenerateExample generates one value for a JSON schema. optionsJSON is an
// engine option map and may be empty; output names a renderer.
func GenerateExample(schemaJSON, optionsJSON, output string) (string, error) {
	raw := map[string]any{}
	if optionsJSON != "" {
		if err := json.Unmarshal([]byte(optionsJSON), &raw); err != nil {
			return "", fmt.Errorf("failed to parse options: %w", err)
		}
	}
	opts, err := schemagen.DecodeOptions(raw)
	if err != nil {
		return "", err
	}

	renderer, err := render.ByName(output)
	if err != nil {
		return "", err
	}

	res, err := schemafaker.GenerateWith(context.Background(), opts, []byte(schemaJSON), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate: %w", err)
	}
	return renderer.Render(res.Value, res.Context)
}

// promisify wraps a Go function to return a JavaScript Promise
func promisify(fn func(args []js.Value) (string, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		// Handler for the Promise
		handler := js.FuncOf(func(this js.Value, promiseArgs []js.Value) interface{} {
			resolve := promiseArgs[0]
			reject := promiseArgs[1]

			// Run this code asynchronously
			go func() {
				result, err := fn(args)
				if err != nil {
					errorConstructor := js.Global().Get("Error")
					errorObject := errorConstructor.New(err.Error())
					reject.Invoke(errorObject)
					return
				}

				resolve.Invoke(result)
			}()

			// The handler of a Promise doesn't return any value
			return nil
		})

		// Create and return the Promise object
		promiseConstructor := js.Global().Get("Promise")
		return promiseConstructor.New(handler)
	})
}

func main() {
	js.Global().Set("GenerateExample", promisify(func(args []js.Value) (string, error) {
		if len(args) < 1 || len(args) > 3 {
			return "", fmt.Errorf("GenerateExample: expected 1-3 args (schemaJSON, optionsJSON, output), got %v", len(args))
		}
		var optionsJSON, output string
		if len(args) > 1 {
			optionsJSON = args[1].String()
		}
		if len(args) > 2 {
			output = args[2].String()
		}
		return GenerateExample(args[0].String(), optionsJSON, output)
	}))

	js.Global().Set("AnnotateExamples", promisify(func(args []js.Value) (string, error) {
		if len(args) != 2 {
			return "", fmt.Errorf("AnnotateExamples: expected 2 args (oasYAML, strict), got %v", len(args))
		}

		result, err := playground.AnnotateExamples(context.Background(), args[0].String(), playground.AnnotateConfig{
			Strict: args[1].Bool(),
		})
		if err != nil {
			return "", err
		}

		jsonBytes, err := json.Marshal(result)
		if err != nil {
			return "", fmt.Errorf("failed to marshal annotate result: %w", err)
		}
		return string(jsonBytes), nil
	}))

	js.Global().Set("ListFormats", promisify(func(args []js.Value) (string, error) {
		jsonBytes, err := json.Marshal(schemafaker.Formats())
		if err != nil {
			return "", fmt.Errorf("failed to marshal formats: %w", err)
		}
		return string(jsonBytes), nil
	}))

	// Keep the program running
	<-make(chan bool)
}
