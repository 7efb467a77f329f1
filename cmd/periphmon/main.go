package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/periph.go/pkg/telemetry"
)

var (
	mqttURL = "mqtt://localhost:1883/periph/"
)

func init() {
	if val := os.Getenv("PERIPH_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := telemetry.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub("#", func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, string(payload))
	})
	<-(chan struct{})(nil)
}
