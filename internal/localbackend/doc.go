// Package localbackend runs pipeline graphs in-process. Steps execute one
// at a time in topological order, which keeps runs deterministic and makes
// the conditional state machine easy to follow: by the time a conditional
// is reached, every property file its conditions read has been produced.
package localbackend
