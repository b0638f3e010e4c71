// Package scenario scripts the in-memory capabilities with a complete
// restaurant run: research replies, search hits, positioning options and
// per-segment ICP answers. The CLI's mock provider, the examples and the
// tests replay it without network access.
package scenario
