package sim

import "fmt"

// CommandKind tags one entry of a command script.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandMemcpy
	CommandKernelLaunch
	CommandPimLayerLaunch
)

// commandTags are the script spellings of each kind.
var commandTags = map[CommandKind]string{
	CommandMemcpy:         "cpu_gpu_mem_copy",
	CommandKernelLaunch:   "kernel_launch",
	CommandPimLayerLaunch: "pim_layer_launch",
}

func (k CommandKind) String() string {
	if tag, ok := commandTags[k]; ok {
		return tag
	}
	if k == CommandUnknown {
		return "unknown"
	}
	return fmt.Sprintf("CommandKind(%d)", int(k))
}

// ParseCommandKind maps a script tag to its kind. Unrecognized tags yield
// CommandUnknown and false.
func ParseCommandKind(tag string) (CommandKind, bool) {
	for k, t := range commandTags {
		if t == tag {
			return k, true
		}
	}
	return CommandUnknown, false
}

// Command is one immutable script entry. Payload is interpreted by the
// TraceReader (memcopy, kernel launch) or the PIM descriptor parser.
type Command struct {
	Kind    CommandKind
	Payload string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s", c.Kind, c.Payload)
}
