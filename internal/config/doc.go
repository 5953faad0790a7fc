// Package config loads and validates gatehouse.json.
//
// The configuration file drives the whole server: which directory trees
// are served, how URIs are rewritten, which origins may make
// cross-origin calls, which areas are gated behind sessions, and where
// uploads land. Load fills unset fields with defaults so a minimal file
// like
//
//	{
//	    "hostname": "example.com",
//	    "served-files-dir": "/var/www"
//	}
//
// is a complete configuration.
package config
