package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"bme280server/bme280"

	"github.com/aldernero/scd4x"
	"github.com/jessevdk/go-flags"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

type ProgramArgs struct {
	// Server Options
	Host string `short:"H" long:"host" env:"BME280_HOST" default:"127.0.0.1" description:"IP to listen on"`
	Port uint16 `short:"P" long:"port" env:"BME280_PORT" default:"27315" description:"Port to listen on"`

	// Sensor Options
	Interval  uint16 `short:"I" long:"interval" default:"5" description:"Interval between readings"`
	I2CDevice string `short:"D" long:"i2cdev" env:"I2C_DEVICE_PATH" description:"The used I2C device (default: auto)"`
	Address   uint16 `short:"A" long:"addr" env:"I2C_DEVICE_ADDRESS" base:"16" default:"76" description:"I2C address of the BME280, hex"`
	SPIDevice string `short:"S" long:"spidev" env:"SPI_DEVICE_PATH" description:"Use this SPI port instead of I2C"`

	TempOSR     string `long:"osr-t" default:"4x" choice:"1x" choice:"2x" choice:"4x" choice:"8x" choice:"16x" description:"Temperature oversampling"`
	PressureOSR string `long:"osr-p" default:"4x" choice:"off" choice:"1x" choice:"2x" choice:"4x" choice:"8x" choice:"16x" description:"Pressure oversampling"`
	HumidityOSR string `long:"osr-h" default:"4x" choice:"off" choice:"1x" choice:"2x" choice:"4x" choice:"8x" choice:"16x" description:"Humidity oversampling"`
	Filter      string `long:"filter" default:"4" choice:"off" choice:"2" choice:"4" choice:"8" choice:"16" description:"IIR filter coefficient"`
	Standby     string `long:"standby" default:"1s" description:"Standby between measurements in normal mode"`
	Mode        string `long:"mode" default:"normal" choice:"forced" choice:"normal" description:"Sensor power mode"`

	// Companion sensors and outputs
	SCD4x        bool   `long:"scd4x" description:"Also read CO2 from an SCD4x on the same I2C bus"`
	MQTTBroker   string `long:"mqtt-broker" env:"MQTT_BROKER" description:"Publish readings to this MQTT broker, e.g. tcp://localhost:1883"`
	MQTTTopic    string `long:"mqtt-topic" env:"MQTT_TOPIC" default:"sensors/bme280" description:"MQTT topic for readings"`
	MQTTClientID string `long:"mqtt-client-id" env:"MQTT_CLIENT_ID" default:"bme280server" description:"MQTT client ID"`
}

const (
	MIN_TIMEOUT_SECONDS = 2
)

// sensorConfig builds the driver configuration from the command line.
func (a *ProgramArgs) sensorConfig() (bme280.Config, error) {
	var cfg bme280.Config
	var err error
	if cfg.Temperature, err = bme280.ParseOversampling(a.TempOSR); err != nil {
		return cfg, err
	}
	if cfg.Pressure, err = bme280.ParseOversampling(a.PressureOSR); err != nil {
		return cfg, err
	}
	if cfg.Humidity, err = bme280.ParseOversampling(a.HumidityOSR); err != nil {
		return cfg, err
	}
	if cfg.Filter, err = bme280.ParseFilter(a.Filter); err != nil {
		return cfg, err
	}
	if cfg.Standby, err = bme280.ParseStandby(a.Standby); err != nil {
		return cfg, err
	}
	if cfg.Mode, err = bme280.ParseMode(a.Mode); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// updateReading turns every sample into the latest reading. readCO2 and pub
// may be nil.
func updateReading(ch <-chan physic.Env, store *readingStore, readCO2 func() (uint16, error), pub *publisher) {
	for env := range ch {
		reading := NewSensorReading(time.Now())
		reading.SetEnv(env)

		if readCO2 != nil {
			co2, err := readCO2()
			if err != nil {
				log.Printf("error while reading SCD4x data: %v", err)
			} else {
				reading.CO2 = co2
			}
		}

		store.Set(reading)

		if pub != nil {
			if err := pub.Publish(reading); err != nil {
				log.Printf("mqtt publish error: %v", err)
			}
		}
	}
	log.Println("Sensor stopped sending readings")
}

func getOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}

func setupI2CBus(i2cdev string) i2c.BusCloser {
	bus, err := i2creg.Open(i2cdev)
	if err != nil {
		log.Fatalf("Couldn't open I2C device: %v", err)
	}

	return bus
}

// setupBMESensor opens the BME280 over SPI when spidev is set, over I2C
// otherwise. The caller has the responsibility to close the bus.
func setupBMESensor(i2cBus i2c.Bus, args *ProgramArgs) *bme280.Dev {
	cfg, err := args.sensorConfig()
	if err != nil {
		log.Fatalf("Invalid sensor options: %v", err)
	}

	var dev *bme280.Dev
	if args.SPIDevice != "" {
		port, err := spireg.Open(args.SPIDevice)
		if err != nil {
			log.Fatalf("Couldn't open SPI device: %v", err)
		}
		dev, err = bme280.NewSPI(port, &cfg)
		if err != nil {
			log.Fatalf("Couldn't initialize sensor: %v", err)
		}
	} else {
		dev, err = bme280.NewI2C(i2cBus, args.Address, &cfg)
		if err != nil {
			log.Fatalf("Couldn't initialize sensor: %v", err)
		}
	}

	c := dev.Calibration()
	log.Printf("%s calibration: T1=%.0f T2=%.0f T3=%.0f H4=%.0f H5=%.0f", dev, c.T1, c.T2, c.T3, c.H4, c.H5)
	return dev
}

func setupSCDSensor(i2cBus i2c.BusCloser) *scd4x.SCD4x {
	sensor, err := scd4x.SensorInit(i2cBus, false)
	if err != nil {
		log.Fatalln(err.Error())
	}

	fmt.Println("Initializing SCD4x…")
	if err := sensor.StopMeasurements(); err != nil {
		log.Fatalf("Error while trying to stop periodic measurements: %v\n", err)
	}
	if err := sensor.StartMeasurements(); err != nil {
		log.Fatalf("Error while trying to start periodic measurements: %v\n", err)
	}
	fmt.Println("Done")

	return sensor
}

func main() {
	args := ProgramArgs{}
	argParser := flags.NewParser(&args, flags.Default)

	_, err := argParser.Parse()
	if err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		log.Fatal("arg parse fail")
	}

	if _, err := host.Init(); err != nil {
		log.Fatalf("Initialization failed: %v", err)
	}

	// Boring bus setup (error handling happens in these functions)
	var bus i2c.BusCloser
	if args.SPIDevice == "" || args.SCD4x {
		bus = setupI2CBus(args.I2CDevice)
		defer bus.Close()
	}

	bmeDev := setupBMESensor(bus, &args)

	// SenseContinuous will take one reading immediately before looping
	intervalDuration := time.Duration(args.Interval)
	readingChannel, err := bmeDev.SenseContinuous(intervalDuration * time.Second)
	if err != nil {
		log.Fatalf("Couldn't start taking readings: %v", err)
	}
	defer bmeDev.Halt()

	var readCO2 func() (uint16, error)
	if args.SCD4x {
		scdDev := setupSCDSensor(bus)
		defer scdDev.StopMeasurements()
		readCO2 = func() (uint16, error) {
			data, err := scdDev.ReadMeasurement()
			if err != nil {
				return 0, err
			}
			return data.CO2, nil
		}

		fmt.Println("Waking up in a second…")
		// give the sensor time to wake up
		time.Sleep(1 * time.Second)
	}

	var pub *publisher
	if args.MQTTBroker != "" {
		pub, err = newPublisher(args.MQTTBroker, args.MQTTClientID, args.MQTTTopic)
		if err != nil {
			log.Fatalf("Couldn't connect to MQTT broker: %v", err)
		}
		defer pub.Close()
	}

	store := newReadingStore()

	// Start background measurements
	go updateReading(readingChannel, store, readCO2, pub)

	timeoutLen := max(MIN_TIMEOUT_SECONDS, int(args.Interval))

	addr := fmt.Sprintf("%s:%d", args.Host, args.Port)
	srv := &http.Server{
		Addr:         addr,
		ReadTimeout:  time.Duration(timeoutLen) * time.Second,
		WriteTimeout: time.Duration(timeoutLen) * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      newRouter(store, bmeDev),
	}

	go func() {
		if args.Host == "0.0.0.0" {
			localIP := getOutboundIP() // resolve local IP for easier debugging
			log.Printf("Listening on %s:%d…\n", localIP.String(), args.Port)
		} else {
			log.Printf("Listening on %s…\n", addr)
		}

		err := srv.ListenAndServe()
		log.Printf("Shutdown (%v)\n", err)
	}()

	sigChan := make(chan os.Signal, 1)
	// We'll accept graceful shutdowns when quit via SIGINT (Ctrl+C)
	// SIGKILL, SIGQUIT or SIGTERM (Ctrl+/) will not be caught.
	signal.Notify(sigChan, os.Interrupt)

	<-sigChan

	// Give the server a timeout period of 4 seconds
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
	defer cancel()
	// Doesn't block if no connections, but will otherwise wait until the timeout deadline.
	_ = srv.Shutdown(ctx)
}
