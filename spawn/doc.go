// Package spawn implements the agent spawn and aggregation manager: it
// resolves and authorizes agent templates, constructs child execution states,
// runs siblings concurrently through the full pipeline, and folds every
// child's cost and run identifier into the parent at conclusion, whether the
// child completed or failed.
package spawn
