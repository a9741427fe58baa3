package msgs

import (
	"errors"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/armlink/pkg/arm"
	fx "github.com/robotalks/armlink/pkg/framework"
	"github.com/robotalks/armlink/pkg/l0/vision"
)

// CommandErr is the generic reply when a command is rejected before
// reaching the vision link.
type CommandErr struct {
	ID      string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Message string `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(id string, err error) *CommandErr {
	return &CommandErr{ID: id, Message: err.Error()}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() fx.Message { return &CommandErr{} }

// TypeID implements SerializableMessage.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Serializable implements SerializableMessage.
func (m *CommandErr) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// VisionRequest asks the controller to send a command to the
// vision coprocessor.
type VisionRequest struct {
	ID      string `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Command string `protobuf:"bytes,2,opt,name=command,proto3" json:"command,omitempty"`
}

// NewMessage implements Message.
func (m *VisionRequest) NewMessage() fx.Message { return &VisionRequest{} }

// TypeID implements SerializableMessage.
func (m *VisionRequest) TypeID() uint32 { return VisionRequestTypeID }

// Serializable implements SerializableMessage.
func (m *VisionRequest) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *VisionRequest) ProtoMessage() {}

// Reset implements proto.Message.
func (m *VisionRequest) Reset() { *m = VisionRequest{} }

// String implements proto.Message.
func (m *VisionRequest) String() string { return proto.CompactTextString(m) }

// RequestMsg converts to the in-loop message.
func (m *VisionRequest) RequestMsg() *vision.RequestMsg {
	return &vision.RequestMsg{ID: m.ID, Command: m.Command}
}

// JointMove asks the controller to move a servo joint.
type JointMove struct {
	Joint     string `protobuf:"bytes,1,opt,name=joint,proto3" json:"joint,omitempty"`
	Angle     int32  `protobuf:"varint,2,opt,name=angle,proto3" json:"angle,omitempty"`
	Overshoot int32  `protobuf:"varint,3,opt,name=overshoot,proto3" json:"overshoot,omitempty"`
}

// NewMessage implements Message.
func (m *JointMove) NewMessage() fx.Message { return &JointMove{} }

// TypeID implements SerializableMessage.
func (m *JointMove) TypeID() uint32 { return JointMoveTypeID }

// Serializable implements SerializableMessage.
func (m *JointMove) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *JointMove) ProtoMessage() {}

// Reset implements proto.Message.
func (m *JointMove) Reset() { *m = JointMove{} }

// String implements proto.Message.
func (m *JointMove) String() string { return proto.CompactTextString(m) }

// JointMsg converts to the in-loop message.
func (m *JointMove) JointMsg() (*arm.JointMsg, error) {
	j, err := arm.ParseJoint(m.Joint)
	if err != nil {
		return nil, err
	}
	return &arm.JointMsg{Joint: j, Angle: int(m.Angle), Overshoot: int(m.Overshoot)}, nil
}

// VisionResult is the event published for every finished exchange.
type VisionResult struct {
	ID        string  `protobuf:"bytes,1,opt,name=id,proto3" json:"id,omitempty"`
	Command   string  `protobuf:"bytes,2,opt,name=command,proto3" json:"command,omitempty"`
	Values    []int32 `protobuf:"varint,3,rep,packed,name=values,proto3" json:"values,omitempty"`
	Raw       string  `protobuf:"bytes,4,opt,name=raw,proto3" json:"raw,omitempty"`
	Error     string  `protobuf:"bytes,5,opt,name=error,proto3" json:"error,omitempty"`
	Status    string  `protobuf:"bytes,6,opt,name=status,proto3" json:"status,omitempty"`
	IssuedAt  int64   `protobuf:"varint,7,opt,name=issued_at,json=issuedAt,proto3" json:"issued_at,omitempty"`
	LatencyUs int64   `protobuf:"varint,8,opt,name=latency_us,json=latencyUs,proto3" json:"latency_us,omitempty"`
}

// NewMessage implements Message.
func (m *VisionResult) NewMessage() fx.Message { return &VisionResult{} }

// TypeID implements SerializableMessage.
func (m *VisionResult) TypeID() uint32 { return VisionResultTypeID }

// Serializable implements SerializableMessage.
func (m *VisionResult) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *VisionResult) ProtoMessage() {}

// Reset implements proto.Message.
func (m *VisionResult) Reset() { *m = VisionResult{} }

// String implements proto.Message.
func (m *VisionResult) String() string { return proto.CompactTextString(m) }

// NewVisionResult converts a ResultMsg for the wire.
func NewVisionResult(res *vision.ResultMsg) *VisionResult {
	m := &VisionResult{
		ID:        res.ID,
		Command:   res.Command,
		Raw:       res.Raw,
		Status:    vision.StatusDone.String(),
		LatencyUs: res.Latency.Microseconds(),
	}
	if !res.IssuedAt.IsZero() {
		m.IssuedAt = res.IssuedAt.UnixNano()
	}
	if res.Err != nil {
		m.Error, m.Status = res.Err.Error(), vision.StatusError.String()
	}
	if len(res.Values) > 0 {
		m.Values = make([]int32, len(res.Values))
		for n, v := range res.Values {
			m.Values[n] = int32(v)
		}
	}
	return m
}

// OK reports whether values were decoded.
func (m *VisionResult) OK() bool { return m.Error == "" }

// Ints returns the values as ints, empty but not nil when OK.
func (m *VisionResult) Ints() []int {
	if !m.OK() {
		return nil
	}
	values := make([]int, len(m.Values))
	for n, v := range m.Values {
		values[n] = int(v)
	}
	return values
}

// Err returns the failure as an error, or nil.
func (m *VisionResult) Err() error {
	if m.OK() {
		return nil
	}
	return errors.New(m.Error)
}

// Latency returns the latency as duration.
func (m *VisionResult) Latency() time.Duration {
	return time.Duration(m.LatencyUs) * time.Microsecond
}

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupVision  uint32 = 0x00010000
	GroupArm     uint32 = 0x00020000
	GroupCustom  uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	CommandErrTypeID    uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	VisionRequestTypeID uint32 = GroupVision | 0x0000
	VisionResultTypeID  uint32 = GroupVision | TypeIDKindEvent | 0x0000
	JointMoveTypeID     uint32 = GroupArm | 0x0000
)
