// Package model holds the solid being built together with a ledger of its
// edges and faces. Every feature gets a stable ID when an operation creates
// it, so later stages can refer to it by identity instead of re-querying
// positions. Selections are bound to the model generation they were taken
// at and fail once the model changes.
package model
