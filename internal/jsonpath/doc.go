/*
Package jsonpath provides a structured, type-safe representation for the
dotted paths used to address scalar values inside property-file artifacts.

The format is defined as a dot-separated sequence of segments, where each
segment may carry an optional index, e.g., `regression_metrics.mse.value`
or `folds[0].mse`.

This package enforces the path schema and centralizes all formatting,
parsing, and extraction logic, so that conditions and property references
agree on exactly one addressing syntax.
*/
package jsonpath
