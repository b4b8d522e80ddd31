// Package licensing holds the content-licensing contract: agreements created
// by registered creators, the single license each agreement can issue, license
// transfers bounded by a transfer ceiling and a block-height window, and
// royalty recipient bookkeeping.
//
// Operations are pure functions of (State, CallContext, inputs). The package
// never reads the wall clock, never draws randomness and performs no I/O; the
// only outward effect is the ordered list of value-movement intents handed to
// an IntentSink.
package licensing
