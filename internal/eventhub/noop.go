package eventhub

// NoopHub is a zero-cost Bus implementation used wherever a real Hub has
// not yet been constructed (bootstrap ordering) or a caller's publish is
// not contract-critical. It replaces silent "ignore if not initialized"
// behavior with an explicit, always-safe default.
type NoopHub struct{}

func (NoopHub) Publish(Channel, string, any, map[string]any) {}
func (NoopHub) Subscribe(Channel, int, Callback) func()      { return func() {} }
func (NoopHub) DropCount() int64                             { return 0 }

var _ Bus = NoopHub{}
