// Package invocation defines the capability shared by every layer of an
// invocation pipeline: a single Invoke method taking call arguments and
// returning a Result or an error.
//
// Layers hold the next Invoker as their only dependency, so a pipeline is a
// linked chain of values implementing Invoker rather than a type hierarchy.
package invocation
