// Package ir models the translation unit produced by the code generator:
// a module of functions made of basic blocks, with typed memory access on
// word arrays and stack records, wide integer arithmetic, comparisons,
// conditional branches, early returns and subroutine calls.
//
// Every block ends in exactly one terminator. Registers are assigned once.
// Functions may return several values, which is how stack subroutines
// report a value together with a status byte.
//
// A module is lowered by package jit into callable Go closures, or emitted
// ahead of time as Go source by codegen.EmitGo. Module.String prints an
// LLVM-flavoured listing for inspection.
package ir
