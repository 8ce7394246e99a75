// Package checkpoint persists which items of a batch job have completed.
//
// Each job directory holds a progress.json file containing a JSON array of
// records, one per completed item, keyed by item ID. The file is created
// empty on first load, read once when a job starts, and rewritten in full
// after every successful item.
//
// A missing file is created; an unreadable or corrupt file is treated as an
// empty checkpoint and left on disk untouched, with a warning logged. Use
// Store.Validate to tell the two apart. Write failures are returned to the
// caller.
package checkpoint
