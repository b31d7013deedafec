// Package warmup implements the dedicated sending identity lifecycle.
//
// A brand's dedicated IP moves none -> provisioning -> warming -> active,
// with warming/active -> suspended as the terminal branch inside this core.
// The daily step advances the warmup day, pauses on sending inactivity,
// resumes when sending picks back up, and graduates to active once the
// provider reports warmup done. Suspension records the triggering metrics as
// an audit entry and notifies the brand's account owner.
package warmup
