package nex

// context is a type-erased slot for whatever per-connection state an
// application wants to stash (a session object, a parser, ...). Go's `any`
// already is the idiomatic type-erasure mechanism here, so TcpConnection
// just exposes get/set over a bare field instead of reaching for a library.
type context struct {
	v any
}

func (c *context) Get() any  { return c.v }
func (c *context) Set(v any) { c.v = v }
