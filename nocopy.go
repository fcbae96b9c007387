package nex

// noCopy, embedded by value, lets `go vet -copylocks` flag accidental struct
// copies of types that are meant to live behind a pointer for their whole
// lifetime (Buffer, Channel, EventLoop, ...).
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
