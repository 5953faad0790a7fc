// Package gate protects URI subtrees behind session cookies validated
// against a SQL store.
//
// Each gated area is matched by URI prefix. A request without a valid
// "gatekeepr_<areaId>" cookie is answered with a 302 to the area's login
// endpoint under /gk/, carrying the original URI as a return parameter
// and an immediately expiring cookie that clears stale client state.
// Session rows are purged lazily on access: expired sessions and sessions
// idle past the inactivity timeout are deleted before authorization.
package gate
