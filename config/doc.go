// Package config provides the configuration tree consumed by pipeline assembly.
//
// A configuration file is loaded into a Tree, a map[string]any with typed accessors
// that fall back to defaults instead of panicking:
//
//	cfg, err := config.Load("pipeline.yaml")
//	pipe, _ := cfg.Child("Pipeline")
//	workers := pipe.Uint("workers", 0)
//	nodes, err := pipe.Children("nodes")
//
// Three syntaxes are supported, chosen by file extension: JSON (.json), YAML (.yaml, .yml)
// and HCL (.hcl). All three produce the same tree shape, so code reading a Tree does not
// know which syntax was used. In HCL, blocks map onto lists of subtrees; see parseHCL.
//
// ValidatePipeline checks a pipeline section against an embedded JSON schema before
// assembly, which turns most structural mistakes into one readable error.
//
// Errors are classified with the errors package: missing keys wrap ErrMissingConfig,
// wrong shapes wrap ErrInvalidConfig and syntax errors wrap ErrParsingFailed; all are
// Invalid.
package config
