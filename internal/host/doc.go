// Package host declares the interfaces the add-on consumes from the game
// runtime it is loaded into: object/world lookups, the chat pipeline, the
// native interop layer that installs signature hooks, static data tables,
// and a handful of small agent surfaces (emotes, targeting, UI config).
//
// Everything here is an external collaborator. The add-on never implements
// these against a real client in this repository; cmd/ohheysim and the
// hosttest package provide in-memory implementations for development and
// tests.
package host
