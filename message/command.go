// Package message defines the two disjoint, tagged message families that
// flow between an owner scope and a hosted runnable scope: Command
// (owner -> runnable) and Status (runnable -> owner). Go has no closed sum
// type, so each family is one struct and Kind supplies the discriminator
// the wire protocol needs.
package message

import (
	"encoding/gob"
	"fmt"
)

// Command.Args and Status.Value are interface-typed, and gob transmits the
// concrete type of an interface value by registered name - so every plain
// payload type a remote call may carry has to be registered up front.
func init() {
	gob.Register(int(0))
	gob.Register(int64(0))
	gob.Register(uint64(0))
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register("")
	gob.Register([]any(nil))
	gob.Register(map[string]any(nil))
}

// CommandKind discriminates CommandMessage variants on the wire.
type CommandKind int

const (
	// KindStop requests graceful termination of the hosted runnable.
	KindStop CommandKind = iota
	// KindRemoteCall invokes a named method inside the runnable's scope.
	KindRemoteCall
	// KindRemoteGet reads an attribute from an object in the runnable's scope.
	KindRemoteGet
)

func (k CommandKind) String() string {
	switch k {
	case KindStop:
		return "Stop"
	case KindRemoteCall:
		return "RemoteCall"
	case KindRemoteGet:
		return "RemoteGet"
	default:
		return "Unknown"
	}
}

// Command is the tagged union of owner->runnable messages. Kind decides
// which of the fields below are populated; Validate checks that shape.
type Command struct {
	Kind CommandKind

	// RemoteCall and RemoteGet share these fields; Args/Kwargs are unused
	// (nil) for RemoteGet.
	CallID     string
	TargetName string
	ReceiverID string // empty means "the runnable itself", not an object reference
	Args       []any
	Kwargs     map[string]any
}

// Stop builds a KindStop command.
func Stop() Command {
	return Command{Kind: KindStop}
}

// RemoteCall builds a KindRemoteCall command.
func RemoteCall(callID, target, receiverID string, args []any, kwargs map[string]any) Command {
	return Command{
		Kind:       KindRemoteCall,
		CallID:     callID,
		TargetName: target,
		ReceiverID: receiverID,
		Args:       args,
		Kwargs:     kwargs,
	}
}

// RemoteGet builds a KindRemoteGet command.
func RemoteGet(callID, attr, receiverID string) Command {
	return Command{
		Kind:       KindRemoteGet,
		CallID:     callID,
		TargetName: attr,
		ReceiverID: receiverID,
	}
}

// Validate checks the union's shape: exactly the fields the Kind implies
// may be set. A dispatcher calls this at its trust boundary, so a
// malformed message off the wire fails with a diagnostic instead of being
// half-interpreted.
func (c Command) Validate() error {
	switch c.Kind {
	case KindStop:
		if c.CallID != "" || c.TargetName != "" || c.ReceiverID != "" || c.Args != nil || c.Kwargs != nil {
			return fmt.Errorf("message: Stop command carries remote-call fields")
		}
	case KindRemoteCall:
		if c.CallID == "" || c.TargetName == "" {
			return fmt.Errorf("message: RemoteCall requires a call id and a target name")
		}
	case KindRemoteGet:
		if c.CallID == "" || c.TargetName == "" {
			return fmt.Errorf("message: RemoteGet requires a call id and an attribute name")
		}
		if c.Args != nil || c.Kwargs != nil {
			return fmt.Errorf("message: RemoteGet %s carries arguments", c.CallID)
		}
	default:
		return fmt.Errorf("message: unknown command kind %d", int(c.Kind))
	}
	return nil
}
