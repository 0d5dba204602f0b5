// Package config loads the testpulse configuration file.
//
// Load(path) reads YAML, applies defaults (14-day sessions, thresholds 98/70,
// 3 buffer days, 7-day fetch windows, 24h stale cutoff, no cache), applies
// the TESTPULSE_ORG, TESTPULSE_PROJECT and TESTPULSE_REDIS_ADDR overrides and
// validates ranges and enums.
//
// Accessors such as Thresholds, NormalizeOptions, BuildOptions and
// TimelineOptions hand explicit values to the analysis packages, which hold
// no global defaults of their own.
package config
