package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"reflect"
	"strings"

	"github.com/robotalks/armlink/pkg/l1/comm/mqtt"
	"github.com/robotalks/armlink/pkg/l1/msgs"
)

var (
	mqttURL    = "mqtt://localhost:1883/armlink/"
	topic      = "#"
	outputJSON bool
)

func init() {
	if val := os.Getenv("ARMLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&topic, "topic", topic, "Topic filter under the prefix, e.g. arm/+/msg.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print messages in JSON.")
}

// formatFrame renders one received frame, meta as is and typed
// messages decoded.
func formatFrame(topic string, payload []byte, asJSON bool) string {
	if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
		if len(payload) == 0 {
			return fmt.Sprintf("%s: (gone)", topic)
		}
		return fmt.Sprintf("%s: %s", topic, string(payload))
	}
	typed, err := msgs.DecodeTyped(payload)
	if err != nil {
		return fmt.Sprintf("%s: bad message: %v", topic, err)
	}
	msg, err := typed.Decode()
	if err != nil {
		return fmt.Sprintf("%s: decode error: (type_id=%x) %v", topic, typed.TypeId, err)
	}
	name := reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
	if asJSON {
		out, err := json.Marshal(msg)
		if err == nil {
			return fmt.Sprintf("%s: [%s] %s", topic, name, out)
		}
	}
	return fmt.Sprintf("%s: [%s] %s", topic, name,
		msg.(msgs.SerializableMessage).Serializable().String())
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub(topic, mqtt.Handler(func(topic string, payload []byte) {
		log.Println(formatFrame(topic, payload, outputJSON))
	}))
	if err := q.ConnectWait(context.Background()); err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
