// Package upload accepts file uploads for live WebSocket sessions over
// plain HTTP.
//
// Large binary uploads do not belong on the WebSocket: they would block
// the event stream for the duration of the transfer. Instead the client
// POSTs the raw file body to /uploads/<sessionID>?file_name=... while
// the session stays live, the server stores it under a generated id and
// answers with JSON the client forwards to the application over the
// WebSocket:
//
//	{"file_id": "file_3af1...", "extension": ".png"}
//
// The application later retrieves the content from the same Store using
// file_id plus extension. Storage is pluggable: DiskStore keeps files in
// a local directory, S3Store in an S3 bucket.
package upload
