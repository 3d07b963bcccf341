// ABOUTME: Assembles every platform tool into a registry.

package hcp

import (
	"github.com/2389/hcp-gateway/internal/tools"
)

// Tools returns the full tool set bound to caller: the operation table
// followed by the composite tools.
func Tools(caller Caller, opts Options) []tools.Definition {
	opts = opts.withDefaults()
	ops := Operations(opts)
	defs := make([]tools.Definition, 0, len(ops)+5)
	for _, op := range ops {
		defs = append(defs, op.Tool(caller, opts))
	}
	return append(defs, compositeTools(caller, opts)...)
}

// NewRegistry builds the tool registry for caller.
func NewRegistry(caller Caller, opts Options) (*tools.Registry, error) {
	return tools.NewRegistry(Tools(caller, opts)...)
}
