// Package scoring assigns a preference score to every device class. Scores
// drive how the allocator splits the budget. A scorer is either backed by a
// pre-fit regression artifact loaded once at startup or by a deterministic
// stub.
package scoring
