// Package entitlement caches the result of an expensive external ownership
// check per (subject, evidence key) pair.
//
// The freshness policy is asymmetric on purpose: a positive result is trusted
// until it ages past the freshness window, because re-verifying it is costly
// and its truth is comparatively stable. A negative result is never trusted
// for gating — entitlement can only improve outside this system's control, and
// blocking a newly-entitled subject is judged worse than an extra oracle call.
//
// Concurrent checks for the same pair collapse into a single in-flight oracle
// call; without that, a burst of requests during a staleness window becomes an
// oracle call storm.
package entitlement
