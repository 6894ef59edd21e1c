// Package types defines the data model shared by every fleetd component:
// connected nodes and the jobs queued and run against them. Nothing in this
// package talks to the network or holds locks; it is plain data, built and
// read under the reactor's single-goroutine discipline.
package types
