// Copyright 2017 The Bazel Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import "sort"

// A NameSet is a set of identifiers. The nil NameSet is empty.
type NameSet map[string]bool

// NewNameSet returns a set containing the specified names.
func NewNameSet(names ...string) NameSet {
	s := make(NameSet, len(names))
	for _, name := range names {
		s[name] = true
	}
	return s
}

// Has reports whether name is a member of the set.
func (s NameSet) Has(name string) bool { return s[name] }

// Union returns a new set containing the members of s and t.
func (s NameSet) Union(t NameSet) NameSet {
	u := make(NameSet, len(s)+len(t))
	for name := range s {
		u[name] = true
	}
	for name := range t {
		u[name] = true
	}
	return u
}

// Names returns the members of the set in sorted order.
func (s NameSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builtins is the set of names that are always bound in a Python 3
// module: the contents of the builtins module, the exception
// hierarchy, and the module attributes bound by the import system.
//
// Builtins must not be modified.
// Clients that need a different set should use Options.Builtins.
var Builtins = NewNameSet(
	// functions and types
	"abs", "aiter", "all", "anext", "any", "ascii", "bin", "bool",
	"breakpoint", "bytearray", "bytes", "callable", "chr", "classmethod",
	"compile", "complex", "copyright", "credits", "delattr", "dict", "dir",
	"divmod", "enumerate", "eval", "exec", "exit", "filter", "float",
	"format", "frozenset", "getattr", "globals", "hasattr", "hash", "help",
	"hex", "id", "input", "int", "isinstance", "issubclass", "iter", "len",
	"license", "list", "locals", "map", "max", "memoryview", "min", "next",
	"object", "oct", "open", "ord", "pow", "print", "property", "quit",
	"range", "repr", "reversed", "round", "set", "setattr", "slice",
	"sorted", "staticmethod", "str", "sum", "super", "tuple", "type",
	"vars", "zip", "__import__", "__build_class__",

	// constants
	"Ellipsis", "NotImplemented", "__debug__",

	// module attributes
	"__name__", "__file__", "__doc__", "__builtins__", "__spec__",
	"__loader__", "__package__", "__path__", "__cached__", "__annotations__",

	// exceptions
	"ArithmeticError", "AssertionError", "AttributeError", "BaseException",
	"BaseExceptionGroup", "BlockingIOError", "BrokenPipeError", "BufferError",
	"ChildProcessError", "ConnectionAbortedError", "ConnectionError",
	"ConnectionRefusedError", "ConnectionResetError", "EOFError",
	"EncodingWarning", "EnvironmentError", "Exception", "ExceptionGroup",
	"FileExistsError", "FileNotFoundError", "FloatingPointError",
	"GeneratorExit", "IOError", "ImportError", "IndentationError",
	"IndexError", "InterruptedError", "IsADirectoryError", "KeyError",
	"KeyboardInterrupt", "LookupError", "MemoryError", "ModuleNotFoundError",
	"NameError", "NotADirectoryError", "NotImplementedError", "OSError",
	"OverflowError", "PermissionError", "ProcessLookupError",
	"PythonFinalizationError", "RecursionError", "ReferenceError",
	"RuntimeError", "StopAsyncIteration", "StopIteration", "SyntaxError",
	"SystemError", "SystemExit", "TabError", "TimeoutError", "TypeError",
	"UnboundLocalError", "UnicodeDecodeError", "UnicodeEncodeError",
	"UnicodeError", "UnicodeTranslateError", "ValueError", "ZeroDivisionError",

	// warnings
	"BytesWarning", "DeprecationWarning", "FutureWarning", "ImportWarning",
	"PendingDeprecationWarning", "ResourceWarning", "RuntimeWarning",
	"SyntaxWarning", "UnicodeWarning", "UserWarning", "Warning",
)

// classNames are bound implicitly in every class body.
var classNames = []string{"__module__", "__qualname__"}
