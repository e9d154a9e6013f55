// Command uart2i2c emulates an NXP SC18IM704 UART-to-I2C bridge: it listens
// on a serial port for the chip's command protocol and carries the commands
// out on a local I2C bus.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/eplant-data/uart2i2c/internal/bridge"
	"github.com/eplant-data/uart2i2c/internal/config"
	"github.com/eplant-data/uart2i2c/internal/i2cbus"
	"github.com/eplant-data/uart2i2c/internal/serialio"
	"github.com/eplant-data/uart2i2c/internal/version"
)

var (
	portFlag    = flag.String("port", "", "serial port to listen on (defaults to the last used port)")
	baudFlag    = flag.Int("baud", 0, "serial baud rate (default 9600)")
	i2cBusFlag  = flag.String("i2c-bus", "", "I2C bus name (defaults to the first available bus)")
	i2cFreqFlag = flag.Uint("i2c-freq", 0, "I2C clock rate in Hz (default 100000)")
	configFlag  = flag.String("config", "", "path to the config file (defaults to the per-user location)")
	listFlag    = flag.Bool("list", false, "list available serial ports and I2C buses, then exit")
	versionFlag = flag.Bool("version", false, "print version information, then exit")
	verboseFlag = flag.Bool("verbose", false, "log every frame and discarded byte")
)

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("uart2i2c %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	if *listFlag {
		listTransports()
		return
	}

	cfgPath := *configFlag
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			log.Fatalf("failed to resolve config path: %v", err)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// explicit flags win over the persisted config and are saved back for
	// next time, so the port only has to be named once
	if overridden := applyFlags(cfg); overridden {
		if err := cfg.Save(cfgPath); err != nil {
			log.Printf("failed to save config: %v", err)
		}
	}

	if cfg.Port == "" {
		log.Fatal("serial port is required: pass -port (it is remembered for later runs)")
	}

	port, err := serialio.Open(cfg.Port, cfg.Serial)
	if err != nil {
		log.Fatalf("failed to open serial port %s: %v", cfg.Port, err)
	}
	defer port.Close()

	bus, err := i2cbus.OpenPeriph(cfg.I2CBus)
	if err != nil {
		log.Fatalf("failed to open I2C bus: %v", err)
	}
	defer bus.Close()

	if err := bus.SetFrequency(cfg.I2CFrequencyHz); err != nil {
		log.Fatalf("failed to set I2C clock to %d Hz: %v", cfg.I2CFrequencyHz, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := bridge.New(port, bus, bridge.FrameTimeout(cfg.Serial.BaudRate))
	engine.Verbose = *verboseFlag

	if *verboseFlag {
		id, traces := engine.Subscribe()
		defer engine.Unsubscribe(id)
		go func() {
			for t := range traces {
				if t.Err != nil {
					log.Printf("frame %s failed: %v", t.Frame, t.Err)
				} else {
					log.Printf("frame %s", t.Frame)
				}
			}
		}()
	}

	log.Printf("bridging %s (%d baud) to I2C at %d Hz", cfg.Port, cfg.Serial.BaudRate, cfg.I2CFrequencyHz)
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bridge stopped: %v", err)
	}
	log.Print("shutdown complete")
}

// applyFlags copies explicitly set flag values into cfg and reports whether
// anything changed.
func applyFlags(cfg *config.Config) bool {
	overridden := false
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *portFlag
			overridden = true
		case "baud":
			cfg.Serial.BaudRate = *baudFlag
			overridden = true
		case "i2c-bus":
			cfg.I2CBus = *i2cBusFlag
			overridden = true
		case "i2c-freq":
			cfg.I2CFrequencyHz = uint32(*i2cFreqFlag)
			overridden = true
		}
	})
	return overridden
}

func listTransports() {
	ports, err := serialio.ListPorts()
	if err != nil {
		log.Printf("failed to list serial ports: %v", err)
	}
	fmt.Println("serial ports:")
	if len(ports) == 0 {
		fmt.Println("  (none found)")
	}
	for _, p := range ports {
		fmt.Printf("  %s\n", p)
	}

	fmt.Println("i2c buses:")
	buses := i2cbus.ListBuses()
	if len(buses) == 0 {
		fmt.Println("  (none found)")
	}
	for _, b := range buses {
		fmt.Printf("  %s\n", b)
	}
}
