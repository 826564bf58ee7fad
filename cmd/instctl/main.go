// instctl is the bench control tool: it queries and drives the instruments
// named in the bench configuration and can archive readings during a run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/uedlab/instctl/amplifier"
	"github.com/uedlab/instctl/circulator"
	"github.com/uedlab/instctl/delaystage"
	"github.com/uedlab/instctl/gpib"
	"github.com/uedlab/instctl/logger"
	"github.com/uedlab/instctl/pressure"
	"github.com/uedlab/instctl/recorder"
	"github.com/uedlab/instctl/serial"
	"github.com/uedlab/instctl/shutter"
	"github.com/uedlab/instctl/tempctrl"
	"github.com/uedlab/instctl/transport"
)

func main() {
	app := &cli.App{
		Name:  "instctl",
		Usage: "control and monitor the UED bench instruments",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "bench configuration file",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			shutterCmd(),
			pressureCmd(),
			temperatureCmd(),
			stageCmd(),
			amplifierCmd(),
			circulatorCmd(),
			monitorCmd(),
			runsCmd(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "instctl:", err)
		os.Exit(1)
	}
}

type benchKey struct{}

// setup loads the bench config and installs the process logger before any
// command runs.
func setup(c *cli.Context) error {
	cfg, err := loadBench(c.String("config"))
	if err != nil {
		return err
	}

	level, err := parseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	var fileCfg *logger.ZapFileConfig
	if cfg.Log.File != "" {
		fileCfg = &logger.ZapFileConfig{Filename: cfg.Log.File}
	}
	logger.SetLogger(logger.NewZap(level, fileCfg))

	c.Context = context.WithValue(c.Context, benchKey{}, cfg)

	return nil
}

func bench(c *cli.Context) *benchConfig {
	return c.Context.Value(benchKey{}).(*benchConfig)
}

func shutterCmd() *cli.Command {
	return &cli.Command{
		Name:  "shutter",
		Usage: "drive the SC10 beam shutter",
		Subcommands: []*cli.Command{
			{
				Name:  "enable",
				Usage: "enable the shutter (opens it in manual mode)",
				Action: func(c *cli.Context) error {
					return withShutter(c, func(s *shutter.SC10) error {
						return s.Enable(true)
					})
				},
			},
			{
				Name:  "disable",
				Usage: "disable the shutter",
				Action: func(c *cli.Context) error {
					return withShutter(c, func(s *shutter.SC10) error {
						return s.Enable(false)
					})
				},
			},
			{
				Name:  "status",
				Usage: "report enable state and blade position",
				Action: func(c *cli.Context) error {
					return withShutter(c, func(s *shutter.SC10) error {
						enabled, err := s.Enabled()
						if err != nil {
							return err
						}
						open, err := s.Open()
						if err != nil {
							return err
						}
						fmt.Printf("enabled: %v\nopen: %v\n", enabled, open)
						return nil
					})
				},
			},
		},
	}
}

func withShutter(c *cli.Context, fn func(*shutter.SC10) error) error {
	s, err := shutter.OpenSC10(bench(c).Shutter.Port)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

func pressureCmd() *cli.Command {
	return &cli.Command{
		Name:  "pressure",
		Usage: "read the chamber pressure in Torr",
		Action: func(c *cli.Context) error {
			cfg := bench(c)
			gauge, err := pressure.Open(cfg.Pressure.Port, cfg.Pressure.Addr)
			if err != nil {
				return err
			}
			defer gauge.Close()

			torr, err := gauge.Pressure()
			if err != nil {
				return err
			}
			fmt.Printf("%.3e Torr\n", torr)

			return nil
		},
	}
}

// openTempController dials the GPIB controller's serial port and wraps the
// temperature controller behind it. The controller frames its own commands,
// so the link carries no terminators of its own.
func openTempController(cfg *benchConfig) (*tempctrl.ITC503, func(), error) {
	serialCfg, err := serial.NewConfig(cfg.GPIB.Port,
		serial.WithBaudRate(115200),
		serial.WithReadTerminator(""),
		serial.WithWriteTerminator(""),
	)
	if err != nil {
		return nil, nil, err
	}
	link, err := serial.Open(serialCfg)
	if err != nil {
		return nil, nil, err
	}

	itc, cleanup, err := newTempController(link, cfg.Temperature.Addr)
	if err != nil {
		_ = link.Close()
		return nil, nil, err
	}

	return itc, cleanup, nil
}

// newTempController builds the GPIB controller and the ITC503 on top of an
// open link. The ITC503 terminates its lines with CR in both directions.
func newTempController(link transport.Transport, addr int, opts ...tempctrl.Option) (*tempctrl.ITC503, func(), error) {
	ctrl, err := gpib.NewController(link, nil)
	if err != nil {
		return nil, nil, err
	}
	dev, err := ctrl.Device(addr,
		gpib.WithReadTermination("\r"),
		gpib.WithWriteTermination("\r"),
	)
	if err != nil {
		_ = ctrl.Close()
		return nil, nil, err
	}
	itc, err := tempctrl.New(dev, opts...)
	if err != nil {
		_ = ctrl.Close()
		return nil, nil, err
	}

	return itc, func() { _ = ctrl.Close() }, nil
}

func temperatureCmd() *cli.Command {
	return &cli.Command{
		Name:  "temperature",
		Usage: "read or set the sample temperature",
		Subcommands: []*cli.Command{
			{
				Name:  "read",
				Usage: "read sensor temperature and setpoint in Kelvin",
				Action: func(c *cli.Context) error {
					itc, cleanup, err := openTempController(bench(c))
					if err != nil {
						return err
					}
					defer cleanup()

					temp, err := itc.Temperature()
					if err != nil {
						return err
					}
					setpoint, err := itc.Setpoint()
					if err != nil {
						return err
					}
					fmt.Printf("temperature: %.2f K\nsetpoint: %.2f K\n", temp, setpoint)

					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "set the temperature setpoint in Kelvin",
				ArgsUsage: "<kelvin>",
				Action: func(c *cli.Context) error {
					kelvin, err := parseFloatArg(c, "kelvin")
					if err != nil {
						return err
					}

					itc, cleanup, err := openTempController(bench(c))
					if err != nil {
						return err
					}
					defer cleanup()

					return itc.SetTemperature(kelvin)
				},
			},
		},
	}
}

func stageCmd() *cli.Command {
	return &cli.Command{
		Name:  "stage",
		Usage: "drive the optical delay stage",
		Subcommands: []*cli.Command{
			{
				Name:  "position",
				Usage: "report the current stage position",
				Action: func(c *cli.Context) error {
					return withStage(c, func(s *delaystage.XPSQ8) error {
						pos, err := s.CurrentPosition()
						if err != nil {
							return err
						}
						min, max := s.TravelLimits()
						fmt.Printf("position: %.4f mm (limits %.4f to %.4f)\n", pos, min, max)
						return nil
					})
				},
			},
			{
				Name:      "move",
				Usage:     "move to an absolute position in mm",
				ArgsUsage: "<mm>",
				Action: func(c *cli.Context) error {
					mm, err := parseFloatArg(c, "mm")
					if err != nil {
						return err
					}
					return withStage(c, func(s *delaystage.XPSQ8) error {
						return s.AbsoluteMove(mm)
					})
				},
			},
			{
				Name:      "shift",
				Usage:     "shift the pump-probe delay in picoseconds",
				ArgsUsage: "<ps>",
				Action: func(c *cli.Context) error {
					ps, err := parseFloatArg(c, "ps")
					if err != nil {
						return err
					}
					return withStage(c, func(s *delaystage.XPSQ8) error {
						return s.RelativeTimeShift(ps)
					})
				},
			},
		},
	}
}

func withStage(c *cli.Context, fn func(*delaystage.XPSQ8) error) error {
	cfg := bench(c)
	s, err := delaystage.Open(cfg.Stage.Address, delaystage.WithGroup(cfg.Stage.Group))
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

func amplifierCmd() *cli.Command {
	return &cli.Command{
		Name:  "amplifier",
		Usage: "query or switch the RF amplifier",
		Subcommands: []*cli.Command{
			{
				Name:  "status",
				Usage: "report forward and reverse power",
				Action: func(c *cli.Context) error {
					return withAmplifier(c, func(a *amplifier.OphirRF) error {
						fwd, err := a.ForwardPower()
						if err != nil {
							return err
						}
						rev, err := a.ReversePower()
						if err != nil {
							return err
						}
						fmt.Printf("forward: %.1f W\nreverse: %.1f W\n", fwd, rev)
						return nil
					})
				},
			},
			{
				Name:  "standby",
				Usage: "put the amplifier in standby",
				Action: func(c *cli.Context) error {
					return withAmplifier(c, func(a *amplifier.OphirRF) error {
						return a.SetStandby(true)
					})
				},
			},
			{
				Name:  "online",
				Usage: "bring the amplifier online",
				Action: func(c *cli.Context) error {
					return withAmplifier(c, func(a *amplifier.OphirRF) error {
						return a.SetStandby(false)
					})
				},
			},
		},
	}
}

func withAmplifier(c *cli.Context, fn func(*amplifier.OphirRF) error) error {
	cfg := bench(c)
	a, err := amplifier.OpenTCP(cfg.Amplifier.Host, cfg.Amplifier.Port)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(a)
}

func circulatorCmd() *cli.Command {
	return &cli.Command{
		Name:  "circulator",
		Usage: "read or set the chiller bath temperature",
		Subcommands: []*cli.Command{
			{
				Name:  "read",
				Usage: "read the bath temperature in Celsius",
				Action: func(c *cli.Context) error {
					bath, err := circulator.Open(bench(c).Circulator.Port)
					if err != nil {
						return err
					}
					defer bath.Close()

					temp, err := bath.Temperature()
					if err != nil {
						return err
					}
					fmt.Printf("%.2f C\n", temp)

					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "set the bath setpoint in Celsius",
				ArgsUsage: "<celsius>",
				Action: func(c *cli.Context) error {
					celsius, err := parseFloatArg(c, "celsius")
					if err != nil {
						return err
					}

					bath, err := circulator.Open(bench(c).Circulator.Port)
					if err != nil {
						return err
					}
					defer bath.Close()

					return bath.SetTemperature(celsius)
				},
			},
		},
	}
}

func monitorCmd() *cli.Command {
	return &cli.Command{
		Name:  "monitor",
		Usage: "periodically record chamber pressure to the archive until interrupted",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Value: 10 * time.Second,
				Usage: "time between readings",
			},
			&cli.StringFlag{
				Name:  "operator",
				Value: "",
				Usage: "operator name recorded with the run",
			},
			&cli.StringFlag{
				Name:  "notes",
				Value: "",
				Usage: "free-form notes recorded with the run",
			},
		},
		Action: monitorAction,
	}
}

func monitorAction(c *cli.Context) error {
	cfg := bench(c)
	log := logger.GetLogger()

	store, err := recorder.Open(cfg.Archive.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	gauge, err := pressure.Open(cfg.Pressure.Port, cfg.Pressure.Addr)
	if err != nil {
		return err
	}
	defer gauge.Close()

	run, err := store.StartRun(c.String("operator"), c.String("notes"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.EndRun(run.ID); err != nil {
			log.Error("failed to end run", "run_id", run.ID, "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(c.Duration("interval"))
	defer ticker.Stop()

	log.Info("monitoring", "run_id", run.ID, "interval", c.Duration("interval"))
	for {
		select {
		case <-ctx.Done():
			log.Info("monitor stopped", "run_id", run.ID)
			return nil
		case <-ticker.C:
			torr, err := gauge.Pressure()
			if err != nil {
				log.Error("pressure read failed", "error", err)
				continue
			}
			if err := store.Record(run.ID, "kl979", "pressure", "Torr", torr); err != nil {
				return err
			}
			log.Info("reading archived", "pressure_torr", torr)
		}
	}
}

func runsCmd() *cli.Command {
	return &cli.Command{
		Name:  "runs",
		Usage: "list archived measurement runs",
		Action: func(c *cli.Context) error {
			store, err := recorder.Open(bench(c).Archive.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs()
			if err != nil {
				return err
			}
			for _, run := range runs {
				readings, err := store.Readings(run.ID)
				if err != nil {
					return err
				}
				fmt.Printf("%s  %s  %s  %d readings\n",
					run.ID, run.StartedAt.Format(time.RFC3339), run.Operator, len(readings))
			}

			return nil
		},
	}
}

func parseFloatArg(c *cli.Context, name string) (float64, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one argument: <%s>", name)
	}
	var v float64
	if _, err := fmt.Sscanf(c.Args().First(), "%g", &v); err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, c.Args().First())
	}

	return v, nil
}
