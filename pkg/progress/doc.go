// Package progress drives the progress of a batch job: it loads the job's
// checkpoint, works out where to resume, records each finished item and keeps
// a display sink in step.
//
// A Controller moves through these states:
//
//	Uninitialized -> Ready -> Running <-> Paused
//	                           |
//	                           v
//	                        Complete
//
// Init goes straight to Complete, without starting the sink, when the
// checkpoint already covers every item.
package progress
