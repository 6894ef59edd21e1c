package bus

import "encoding/json"

// MethodFunc handles one method call and returns its reply body or an
// error to send back to the caller.
type MethodFunc func(body json.RawMessage) (json.RawMessage, *Error)

// SignalFunc handles one incoming signal.
type SignalFunc func(body json.RawMessage)

type methodKey struct {
	path, iface, member string
}

// Router is a Handler that dispatches calls and signals by exact
// path+interface+member match, the way a bus object tree routes requests
// to whichever object and interface implementation owns that path.
type Router struct {
	methods map[methodKey]MethodFunc
	signals map[methodKey]SignalFunc
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{
		methods: make(map[methodKey]MethodFunc),
		signals: make(map[methodKey]SignalFunc),
	}
}

// HandleMethod registers fn to handle calls to path/iface/member.
func (r *Router) HandleMethod(path, iface, member string, fn MethodFunc) {
	r.methods[methodKey{path, iface, member}] = fn
}

// HandleSignalFunc registers fn to handle signals on path/iface/member.
func (r *Router) HandleSignalFunc(path, iface, member string, fn SignalFunc) {
	r.signals[methodKey{path, iface, member}] = fn
}

// HandleCall implements Handler.
func (r *Router) HandleCall(path, iface, member string, body json.RawMessage) (json.RawMessage, *Error) {
	fn, ok := r.methods[methodKey{path, iface, member}]
	if !ok {
		return nil, NewError(ErrNameUnknownMethod, "no method %s.%s on %s", iface, member, path)
	}
	return fn(body)
}

// HandleSignal implements Handler.
func (r *Router) HandleSignal(path, iface, member string, body json.RawMessage) {
	if fn, ok := r.signals[methodKey{path, iface, member}]; ok {
		fn(body)
	}
}
