// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary lifecycle of loading a
// pipeline definition, assembling the graph, and either emitting its
// document or running it on the local backend.
package app
