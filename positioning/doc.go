// Package positioning implements the Positioning stage: from research output
// it derives the business's inherent drama, generates three positioning
// options, checks them against the competitor ladder, scores them and ranks
// them for selection.
package positioning
