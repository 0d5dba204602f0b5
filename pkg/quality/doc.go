// Package quality classifies builds, releases and days into quality states.
//
// Two release classifiers live here on purpose. ClassifyRelease is driven by
// environment state and test counts and yields a QualityState.
// ClassifyReleaseTimeline is stale-aware, looks at test-named environments
// and yields a TimelineStatus. Their precedence rules and status vocabularies
// differ and are kept apart. RollupDay accepts labels from either.
//
// All functions are pure and safe for concurrent use.
package quality
