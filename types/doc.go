// Package types holds the wire- and store-level data model shared by every
// component of searchcore: requests, job records, language/route decisions,
// places, ranked results, subscriptions and tickets. See SPEC_FULL.md §3.
package types
