// Package aggregates implements the domain aggregate contracts on top of the
// table-level repos in internal/data/repos.
//
// Every write method owns its transaction and returns errors carrying a
// domain aggregate code.
package aggregates
