// Package deps reports whether the external binaries clipmatch executes are
// installed.
package deps
