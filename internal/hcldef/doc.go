// Package hcldef provides the HCL front end for pipeline definitions. It
// discovers and parses .hcl files, decodes them against the schema package,
// and translates the result into a populated builder. Step output and
// parameter references are recognized from expression traversals, so data
// dependencies never need to be declared by hand.
package hcldef
