// Package control publishes the gateway's recording lifecycle notices.
//
// A listening control process learns through these notices whether the host
// can record at all, whether a recording it started is usable, and when a
// recording finished. Notices are JSON payloads on a watermill topic:
//
//	{"kind":"recording_unsupported","reason":"..."}
//	{"kind":"recording_unusable","reason":"..."}
//	{"kind":"recording_finished","recording_id":"...","created":true}
//
// Message IDs are ULIDs, so notices sort by publication time.
package control
