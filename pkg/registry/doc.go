/*
Package registry implements fleetd's node connection manager: accepting
node sockets, running the Register handshake, and tracking the set of
currently connected nodes that fan-out jobs address.

A node goes through three states: accepted but unregistered (it can only
call Hello and Register), registered (it has a unique name, a public
object path, and participates in fan-out), and disconnected (removed from
the registry; any call still in flight against it fails on its own closed
connection rather than being routed anywhere).

Registry has exactly one writer: the reactor goroutine. Accept runs on the
reactor, posted there by the listener's accept loop; the
Register handler runs on a bus dispatch goroutine and crosses back onto the
reactor with reactor.Call before touching the node map, the same way the
job engine crosses back from a node's reply goroutine.
*/
package registry
