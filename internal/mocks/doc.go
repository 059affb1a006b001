// Package mocks provides configurable test doubles for the application's
// service interfaces. Each mock exposes optional Fn fields for custom
// behavior and falls back to simple default values, so tests only configure
// what they care about.
package mocks
