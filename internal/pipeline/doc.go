// Package pipeline builds and runs pass pipelines.
//
// A Builder turns an ordered list of pass names into a Pipeline of stages.
// Stages are pass.Pass values: the selected passes themselves, printers
// wrapping analyses in analysis-only mode, module dumps after each selection
// with print-after-each, and the terminal verifier. A Runner executes every
// stage exactly once, in order, with a Manager computing and caching the
// analyses stages ask for.
//
// Execution is sequential. Nothing is rolled back; a transform that breaks
// the module is caught by the verifier stage.
package pipeline
