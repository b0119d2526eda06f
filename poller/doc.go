// Package poller runs the pipeline on a fixed interval.
//
// Each tick is one cycle: the draft stage runs first, then the
// research stage. Running draft before research means an item that
// finishes research in this cycle is not drafted until the next one,
// so no item moves through more than one stage per cycle.
package poller
