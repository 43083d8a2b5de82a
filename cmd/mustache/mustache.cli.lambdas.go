package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/robertkrimen/otto"

	"github.com/itsatony/go-mustache"
)

// scriptLambdas holds the lambdas defined by a JavaScript file of the form
//
//	var lambdas = {
//	    bold: function(text, render) { return "<b>" + render(text) + "</b>"; }
//	};
//
// The VM is not safe for concurrent use, so one set serves one render at a time.
type scriptLambdas struct {
	vm    *otto.Otto
	funcs map[string]otto.Value
	err   error
}

func loadLambdas(script []byte) (*scriptLambdas, error) {
	vm := otto.New()
	if _, err := vm.Run(string(script)); err != nil {
		return nil, err
	}

	value, err := vm.Get(LambdasVarName)
	if err != nil {
		return nil, err
	}
	if !value.IsObject() {
		return nil, errors.New(ErrMsgLambdasNotObject)
	}

	obj := value.Object()
	funcs := make(map[string]otto.Value)
	for _, key := range obj.Keys() {
		fn, err := obj.Get(key)
		if err != nil {
			return nil, err
		}
		if !fn.IsFunction() {
			return nil, fmt.Errorf("%s: %s", ErrMsgLambdaNotFunction, key)
		}
		funcs[key] = fn
	}

	return &scriptLambdas{vm: vm, funcs: funcs}, nil
}

// Names returns the lambda names in sorted order.
func (l *scriptLambdas) Names() []string {
	names := make([]string, 0, len(l.funcs))
	for name := range l.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Err returns the first error raised by a script call, if any.
func (l *scriptLambdas) Err() error {
	return l.err
}

// Reset clears the recorded script error before a new render.
func (l *scriptLambdas) Reset() {
	l.err = nil
}

// Merge adds every lambda to view under its name. Existing keys are replaced.
func (l *scriptLambdas) Merge(view map[string]any) {
	for name, fn := range l.funcs {
		view[name] = l.wrap(name, fn)
	}
}

func (l *scriptLambdas) wrap(name string, fn otto.Value) mustache.LambdaFunc {
	return func(text string, render mustache.RenderFunc) string {
		renderArg := func(call otto.FunctionCall) otto.Value {
			out, err := l.vm.ToValue(render(call.Argument(0).String()))
			if err != nil {
				return otto.UndefinedValue()
			}
			return out
		}

		result, err := fn.Call(otto.UndefinedValue(), text, renderArg)
		if err != nil {
			if l.err == nil {
				l.err = fmt.Errorf("%s: %s: %w", ErrMsgLambdaCallFailed, name, err)
			}
			return ""
		}
		if result.IsUndefined() || result.IsNull() {
			return ""
		}
		return result.String()
	}
}
