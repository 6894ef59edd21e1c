/*
Package bus implements fleetd's peer-to-peer message-bus substrate: the
object-path, interface, method, signal and property-change wire model that
both the node protocol and the public client protocol are built on, without
a bus daemon in the middle.

A Conn wraps one net.Conn and speaks length-prefixed JSON frames (Frame in
frame.go): method calls correlated to their replies by a generated serial,
error frames carrying a well-known error name, and fire-and-forget signals.
Call blocks the calling goroutine until a reply, a context cancellation, or
DefaultCallTimeout; Serve runs the read loop that feeds replies back to
waiting callers and incoming calls to a Handler.

Router is the Handler most callers want: it dispatches by exact
path+interface+member match, mirroring how a bus object tree routes a call
to the object and interface implementation that registered for it.

	router := bus.NewRouter()
	router.HandleMethod("/org/fleetd/Orchestrator", "org.fleetd.Orchestrator.Peer", "Register", handleRegister)

	c := bus.NewConn(netConn)
	go c.Serve(ctx, router)

	var reply registerReply
	err := c.Call(ctx, "/org/fleetd/Orchestrator", "org.fleetd.Orchestrator.Peer", "Register", req, &reply)
*/
package bus
