// Package reputation computes bounce and complaint rates against thresholds.
//
// Two monitors share the algorithm but read different sources: the platform
// monitor pulls the provider's aggregate send statistics for the whole
// account, while the brand monitor queries the local delivery event log per
// brand. A per-brand breach suspends the brand's dedicated sending identity;
// a platform breach alerts the operators.
package reputation
