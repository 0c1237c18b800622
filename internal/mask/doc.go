// Package mask implements the de-identification engine: schema-driven
// entity extraction, similarity-based canonicalization of caller-supplied
// type labels, strategy dispatch over per-type entity batches, and a
// span-planned single-pass substitution into the source text. The engine is
// a pure function of its inputs; model-backed collaborators (embedding,
// LLM extraction) enter through narrow interfaces.
package mask
