// Package msgs provides the wire messages exchanged between an arm
// controller and remote tools over MQTT.
//
// Producer: arm controller (events, replies)
// Consumer: CLI and monitor tools, which also produce commands.
package msgs
