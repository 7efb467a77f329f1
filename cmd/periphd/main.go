package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/robotalks/periph.go/pkg/config"
	"github.com/robotalks/periph.go/pkg/dht22"
	fx "github.com/robotalks/periph.go/pkg/framework"
	"github.com/robotalks/periph.go/pkg/hw"
	"github.com/robotalks/periph.go/pkg/hw/gpio"
	"github.com/robotalks/periph.go/pkg/hw/i2cdev"
	"github.com/robotalks/periph.go/pkg/mpu6050"
	"github.com/robotalks/periph.go/pkg/pca9685"
	"github.com/robotalks/periph.go/pkg/recorder"
	"github.com/robotalks/periph.go/pkg/telemetry"
	"github.com/robotalks/periph.go/pkg/web"
)

var (
	configFile string
	mqttURL    string
)

func init() {
	if val := os.Getenv("PERIPH_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&configFile, "config", configFile, "Configuration file.")
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL, overrides the configuration.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalln(err)
	}
	if mqttURL != "" {
		cfg.Telemetry.MQTTURL = mqttURL
	}

	feed := telemetry.NewFeed()
	runner := fx.NewRunner().HandleSignals()

	var bus hw.Bus
	if cfg.MPU6050.Enabled || cfg.PCA9685.Enabled {
		b := i2cdev.Open(cfg.I2C.Device)
		defer b.Close()
		bus = b
	}

	var registry *pca9685.Registry
	if cfg.PCA9685.Enabled {
		registry = pca9685.New(bus, cfg.PCA9685.Driver())
		if err := registry.Init(cfg.PCA9685.Boards); err != nil {
			log.Printf("pca9685 init: %v", err)
		}
	}

	if cfg.DHT22.Enabled {
		line, err := gpio.OpenLine(cfg.DHT22.Pin)
		if err != nil {
			log.Fatalln(err)
		}
		defer line.Close()
		dcfg := cfg.DHT22.Driver()
		dcfg.Publish = func(r dht22.Reading) {
			if data, err := r.JSON(); err == nil {
				feed.Post(telemetry.Snapshot{Device: "dht22", At: time.Now(), Data: data})
			}
		}
		sensor := dht22.New(line, dcfg)
		if err := sensor.Init(); err != nil {
			log.Printf("dht22 init: %v", err)
		}
		runner.Go(sensor)
	}

	if cfg.MPU6050.Enabled {
		mcfg := cfg.MPU6050.Driver()
		mcfg.Publish = func(s mpu6050.Sample) {
			if data, err := s.JSON(); err == nil {
				feed.Post(telemetry.Snapshot{Device: "mpu6050", At: time.Now(), Data: data})
			}
		}
		sensor := mpu6050.New(bus, mcfg)
		if err := sensor.Init(); err != nil {
			log.Printf("mpu6050 init: %v", err)
		}
		runner.Go(sensor)
	}

	if cfg.Telemetry.MQTTURL != "" {
		deviceID := cfg.DeviceID
		if deviceID == "" {
			deviceID = telemetry.MachineID()
		}
		pub, err := telemetry.NewPublisher(cfg.Telemetry.MQTTURL, deviceID, feed)
		if err != nil {
			log.Fatalln(err)
		}
		if registry != nil {
			pub.Servo = func(cmd telemetry.ServoCommand) error {
				return registry.SetAngle(cmd.Channels, cmd.Board, cmd.Angle)
			}
		}
		runner.Go(pub)
	}

	if cfg.Recorder.Dir != "" {
		rec := recorder.New(cfg.Recorder.Dir, recorder.Config{})
		pump := fx.RunFunc(func(ctx context.Context) error {
			sub := feed.Subscribe(16)
			return fx.RunWithContextCloser(ctx, sub, func() error {
				for snap := range sub.C {
					if err := rec.Append(snap.Device, snap.Data); err != nil {
						log.Printf("recorder: %v", err)
					}
				}
				return nil
			})
		})
		runner.Go(rec, fx.NamedRun("recorder-pump", pump))
	}

	if cfg.Web.Listen != "" {
		srv := web.NewServer(cfg.Web.Listen, feed)
		if registry != nil {
			srv.Boards = registry.Boards
		}
		runner.Go(srv)
	}

	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
